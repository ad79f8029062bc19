package bind

import (
	"fmt"
	"strings"
)

// StatusError carries an engine status vector. The engine reports errors
// as a chain of GDS codes with formatted messages; the chain is preserved
// here in order, primary condition first.
type StatusError struct {
	// GDSCodes is the status code chain, primary first.
	GDSCodes []uint32

	// Messages holds the formatted message for each chain entry.
	Messages []string

	// SQLCode is the legacy SQL code, zero when not reported.
	SQLCode int32

	// SQLState is the SQLSTATE value, empty when not reported.
	SQLState string
}

func (e *StatusError) Error() string {
	if len(e.Messages) == 0 {
		if len(e.GDSCodes) == 0 {
			return "engine error"
		}
		return fmt.Sprintf("engine error %d", e.GDSCodes[0])
	}
	return strings.Join(e.Messages, "\n- ")
}

// Statusf builds a single-entry StatusError, mainly for bindings and
// tests.
func Statusf(gds uint32, format string, args ...any) *StatusError {
	return &StatusError{
		GDSCodes: []uint32{gds},
		Messages: []string{fmt.Sprintf(format, args...)},
	}
}
