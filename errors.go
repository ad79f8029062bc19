package fbclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofirebird/fbclient/bind"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these sentinels, so callers can classify failures with errors.Is.
var (
	// ErrInterface marks misuse of the driver's own state machine, such as
	// operating on a closed resource.
	ErrInterface = errors.New("interface error")

	// ErrOperational marks engine or network refusal and resource
	// exhaustion reported by the engine.
	ErrOperational = errors.New("operational error")

	// ErrData marks values that cannot be represented in the wire format,
	// such as strings not encodable in the connection charset.
	ErrData = errors.New("data error")

	// ErrIntegrity marks engine-reported constraint violations.
	ErrIntegrity = errors.New("integrity error")

	// ErrProgramming marks malformed requests: bad SQL, unknown savepoint,
	// a tag that is illegal for the parameter buffer kind, execution
	// against an inactive transaction.
	ErrProgramming = errors.New("programming error")

	// ErrMalformedBuffer marks a codec-level decode failure in a tagged
	// buffer (truncated payload, length running past the buffer end).
	ErrMalformedBuffer = errors.New("malformed buffer")

	// ErrNotSupported marks operations unavailable for the connected
	// engine version.
	ErrNotSupported = errors.New("not supported")

	// ErrInternal marks conditions that indicate a bug in the driver or
	// the engine rather than in the caller.
	ErrInternal = errors.New("internal error")
)

func interfaceErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInterface, fmt.Sprintf(format, args...))
}

func operationalErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOperational, fmt.Sprintf(format, args...))
}

func dataErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrData, fmt.Sprintf(format, args...))
}

func programmingErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProgramming, fmt.Sprintf(format, args...))
}

func malformedErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedBuffer, fmt.Sprintf(format, args...))
}

func notSupportedErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotSupported, fmt.Sprintf(format, args...))
}

func internalErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// EngineError is an error reported by the engine through its status
// vector, classified into one of the driver error kinds. The full code
// chain from the status vector is preserved; Unwrap exposes both the kind
// sentinel and the underlying bind.StatusError so errors.Is and errors.As
// keep working across the translation boundary.
type EngineError struct {
	// Op names the driver operation during which the engine failed.
	Op string

	kind   error
	status *bind.StatusError
}

func (e *EngineError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.status.Error())
	return b.String()
}

func (e *EngineError) Unwrap() []error {
	return []error{e.kind, e.status}
}

// GDSCodes returns the engine status codes, primary code first.
func (e *EngineError) GDSCodes() []uint32 {
	return e.status.GDSCodes
}

// SQLState returns the SQLSTATE reported by the engine, if any.
func (e *EngineError) SQLState() string {
	return e.status.SQLState
}

// Engine status codes with a fixed classification. Codes absent from both
// tables classify as operational.
var integrityGDSCodes = map[uint32]struct{}{
	335544349: {}, // no_dup (unique key)
	335544665: {}, // unique_key_violation
	335544466: {}, // foreign_key
	335544838: {}, // foreign_key_target_doesnt_exist
	335544839: {}, // foreign_key_references_present
	335544347: {}, // not_valid (validation constraint)
	335544558: {}, // check_constraint
}

var programmingGDSCodes = map[uint32]struct{}{
	335544569: {}, // dsql_error
	335544436: {}, // sqlerr
	335544351: {}, // no_meta_update
	335544664: {}, // dsql_duplicate_spec
	335544573: {}, // dsql_datatype_err
	335544807: {}, // sql_dialect_conflict_num
}

var dataGDSCodes = map[uint32]struct{}{
	335544321: {}, // arith_except
	335544652: {}, // conversion error
	335544334: {}, // convert_error
	335544916: {}, // decprecision_err
}

func classifyStatus(st *bind.StatusError) error {
	if len(st.GDSCodes) == 0 {
		return ErrOperational
	}
	code := st.GDSCodes[0]
	if _, ok := integrityGDSCodes[code]; ok {
		return ErrIntegrity
	}
	if _, ok := programmingGDSCodes[code]; ok {
		return ErrProgramming
	}
	if _, ok := dataGDSCodes[code]; ok {
		return ErrData
	}
	return ErrOperational
}

// wrapStatus translates an error returned by a binding call into the
// driver taxonomy. Non-status errors (context cancellation and the like)
// pass through untouched.
func wrapStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	var st *bind.StatusError
	if errors.As(err, &st) {
		return &EngineError{Op: op, kind: classifyStatus(st), status: st}
	}
	return fmt.Errorf("%s: %w", op, err)
}
