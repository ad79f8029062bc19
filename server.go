package fbclient

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gofirebird/fbclient/bind"
	"github.com/gofirebird/fbclient/internal/logging"
	"github.com/gofirebird/fbclient/internal/metrics"
)

// Server is one service manager attachment. It runs administrative
// tasks (backup, restore, statistics, log retrieval) and answers
// server-level info queries.
type Server struct {
	mu  sync.Mutex
	id  string
	log *slog.Logger

	svc      bind.Service
	target   string
	encoding string
	closed   bool
}

// ConnectServer attaches to the service manager at target.
func ConnectServer(ctx context.Context, engine bind.Engine, target string, spb *SPB) (*Server, error) {
	var spbBytes []byte
	encoding := "UTF8"
	if spb != nil {
		var err error
		spbBytes, err = spb.Render()
		if err != nil {
			return nil, err
		}
		encoding = spb.encoding()
	}
	svc, err := engine.AttachService(ctx, target, spbBytes)
	if err != nil {
		return nil, wrapStatus("attach service", err)
	}
	s := &Server{
		id:       uuid.NewString()[:8],
		svc:      svc,
		target:   target,
		encoding: encoding,
	}
	s.log = logging.Driver().With("srv", s.id)
	s.log.Debug("service manager attached", "target", target)
	return s, nil
}

// Target returns the service attach target.
func (s *Server) Target() string { return s.target }

func (s *Server) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return interfaceErrf("service manager attachment is closed")
	}
	return nil
}

// Close detaches from the service manager. Closing twice is a no-op.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	err := s.svc.Detach(ctx)
	s.log.Debug("service manager detached", "target", s.target)
	return wrapStatus("detach service", err)
}

// query submits one service info request with truncation retry.
// timeout, when positive, rides along as a send item so the engine
// returns a data-not-ready marker instead of blocking forever.
func (s *Server) query(ctx context.Context, request []byte, timeout time.Duration) ([]byte, error) {
	var send []byte
	if timeout > 0 {
		b := &Buffer{}
		b.PutTag(byte(SrvInfoTimeout))
		b.PutShort(4)
		b.PutInt(int32(timeout / time.Second))
		send = b.Bytes()
	}
	for size := infoBufInitial; ; size *= 2 {
		response := make([]byte, size)
		if err := s.svc.Query(ctx, send, request, response); err != nil {
			return nil, wrapStatus("service query", err)
		}
		if len(response) > 0 && response[0] == infoTruncated {
			if size >= infoBufMax {
				return nil, operationalErrf("service response still truncated at %d bytes", size)
			}
			continue
		}
		return response, nil
	}
}

// Info returns the server info provider.
func (s *Server) Info() *ServerInfo {
	metrics.RecordInfoRequest("server")
	return &ServerInfo{srv: s}
}

// ServerInfo answers typed queries about the attached server.
type ServerInfo struct {
	srv *Server
}

func (si *ServerInfo) getItems(ctx context.Context, codes ...SrvInfoCode) ([]InfoItem, error) {
	if err := si.srv.ensureOpen(); err != nil {
		return nil, err
	}
	request := make([]byte, 0, len(codes))
	for _, c := range codes {
		request = append(request, byte(c))
	}
	response, err := si.srv.query(ctx, request, 0)
	if err != nil {
		return nil, err
	}
	return NewBuffer(response).Items()
}

func (si *ServerInfo) getString(ctx context.Context, code SrvInfoCode) (string, error) {
	items, err := si.getItems(ctx, code)
	if err != nil {
		return "", err
	}
	s, ok := itemString(items, byte(code))
	if !ok {
		return "", operationalErrf("server returned no data for info code %d", code)
	}
	return s, nil
}

func (si *ServerInfo) getInt(ctx context.Context, code SrvInfoCode) (int64, error) {
	items, err := si.getItems(ctx, code)
	if err != nil {
		return 0, err
	}
	v, ok, err := itemInt(items, byte(code))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, operationalErrf("server returned no data for info code %d", code)
	}
	return v, nil
}

// Version returns the server version banner.
func (si *ServerInfo) Version(ctx context.Context) (string, error) {
	return si.getString(ctx, SrvInfoServerVersion)
}

// Architecture returns the server implementation string.
func (si *ServerInfo) Architecture(ctx context.Context) (string, error) {
	return si.getString(ctx, SrvInfoImplementation)
}

// Capabilities returns the server capability bit mask.
func (si *ServerInfo) Capabilities(ctx context.Context) (int64, error) {
	return si.getInt(ctx, SrvInfoCapabilities)
}

// HomeDirectory returns the server installation directory.
func (si *ServerInfo) HomeDirectory(ctx context.Context) (string, error) {
	return si.getString(ctx, SrvInfoGetEnv)
}

// LockDirectory returns the lock table directory.
func (si *ServerInfo) LockDirectory(ctx context.Context) (string, error) {
	return si.getString(ctx, SrvInfoGetEnvLock)
}

// MessageDirectory returns the message file directory.
func (si *ServerInfo) MessageDirectory(ctx context.Context) (string, error) {
	return si.getString(ctx, SrvInfoGetEnvMsg)
}

// SecurityDatabase returns the path of the security database.
func (si *ServerInfo) SecurityDatabase(ctx context.Context) (string, error) {
	return si.getString(ctx, SrvInfoUserDBPath)
}

// AttachedDatabases returns the number of attachments and the paths of
// currently attached databases. The response cluster carries its own
// layout: bare 4-byte counts and 2-byte length strings up to a flag
// end marker.
func (si *ServerInfo) AttachedDatabases(ctx context.Context) (attachments int64, databases []string, err error) {
	if err := si.srv.ensureOpen(); err != nil {
		return 0, nil, err
	}
	response, err := si.srv.query(ctx, []byte{byte(SrvInfoSrvDBInfo)}, 0)
	if err != nil {
		return 0, nil, err
	}
	buf := NewBuffer(response)
	tag, err := buf.GetTag()
	if err != nil {
		return 0, nil, err
	}
	if tag != byte(SrvInfoSrvDBInfo) {
		return 0, nil, malformedErrf("server db info response starts with tag %d", tag)
	}
	for {
		tag, err := buf.GetTag()
		if err != nil {
			return 0, nil, err
		}
		switch tag {
		case infoFlagEnd, infoEnd:
			return attachments, databases, nil
		case srvDBInfoAtt:
			v, err := buf.GetInt()
			if err != nil {
				return 0, nil, err
			}
			attachments = int64(v)
		case srvDBInfoDB:
			if _, err := buf.GetInt(); err != nil { // database count, redundant
				return 0, nil, err
			}
		case byte(SPBDBName):
			name, err := buf.GetSizedBytes()
			if err != nil {
				return 0, nil, err
			}
			databases = append(databases, string(name))
		default:
			return 0, nil, malformedErrf("unexpected tag %d in server db info response", tag)
		}
	}
}

// start launches a service task and records it.
func (s *Server) start(ctx context.Context, req *SPBStart) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	rendered, err := req.Render()
	if err != nil {
		return err
	}
	if err := s.svc.Start(ctx, rendered); err != nil {
		return wrapStatus("start service task", err)
	}
	metrics.RecordServiceTask(actionLabel(req.Action()))
	s.log.Debug("service task started", "action", actionLabel(req.Action()))
	return nil
}

func actionLabel(a ServerAction) string {
	switch a {
	case ActionBackup:
		return "backup"
	case ActionRestore:
		return "restore"
	case ActionDBStats:
		return "statistics"
	case ActionGetFBLog:
		return "server_log"
	case ActionRepair:
		return "repair"
	case ActionValidate:
		return "validate"
	default:
		return "other"
	}
}

// streamLines drains a running task one line at a time (the LINE
// protocol). An empty line item means the task finished.
func (s *Server) streamLines(ctx context.Context, timeout time.Duration, onLine func(string)) error {
	request := []byte{byte(SrvInfoLine)}
	for {
		response, err := s.query(ctx, request, timeout)
		if err != nil {
			return err
		}
		if len(response) > 0 && response[0] == infoDataNotReady {
			continue
		}
		items, err := NewBuffer(response).Items()
		if err != nil {
			return err
		}
		line, ok := itemString(items, byte(SrvInfoLine))
		if !ok || line == "" {
			return nil
		}
		if onLine != nil {
			onLine(line)
		}
	}
}

// streamToEOF drains a running task in raw chunks (the TO_EOF
// protocol) into w. An empty chunk means the task finished.
func (s *Server) streamToEOF(ctx context.Context, timeout time.Duration, w io.Writer) error {
	request := []byte{byte(SrvInfoToEOF)}
	for {
		response, err := s.query(ctx, request, timeout)
		if err != nil {
			return err
		}
		if len(response) > 0 && response[0] == infoDataNotReady {
			continue
		}
		items, err := NewBuffer(response).Items()
		if err != nil {
			return err
		}
		chunk, ok := firstItem(items, byte(SrvInfoToEOF))
		if !ok || len(chunk.Payload) == 0 {
			return nil
		}
		if _, err := w.Write(chunk.Payload); err != nil {
			return operationalErrf("writing service output: %v", err)
		}
	}
}

// GetLog streams the server log into w.
func (s *Server) GetLog(ctx context.Context, w io.Writer) error {
	if err := s.start(ctx, NewSPBStart(ActionGetFBLog, s.encoding)); err != nil {
		return err
	}
	return s.streamToEOF(ctx, 0, w)
}

// BackupOptions configures a backup task.
type BackupOptions struct {
	Database    string
	BackupFiles []string
	Flags       BackupFlag
	BlockFactor int32
	Timeout     time.Duration
}

// Backup runs a database backup on the server. When onLine is given
// the task runs verbose and reports progress one line at a time; the
// call returns when the task finishes.
func (s *Server) Backup(ctx context.Context, opts BackupOptions, onLine func(string)) error {
	if opts.Database == "" || len(opts.BackupFiles) == 0 {
		return programmingErrf("backup needs a database and at least one backup file")
	}
	req := NewSPBStart(ActionBackup, s.encoding)
	req.AddString(byte(SPBDBName), opts.Database)
	for _, f := range opts.BackupFiles {
		req.AddString(spbBkpFile, f)
	}
	if opts.BlockFactor > 0 {
		req.AddInt(spbBkpFactor, opts.BlockFactor)
	}
	if opts.Flags != 0 {
		req.AddInt(byte(SPBOptions), int32(opts.Flags))
	}
	if onLine != nil {
		req.AddMarker(byte(SPBVerbose))
	}
	if err := s.start(ctx, req); err != nil {
		return err
	}
	if onLine == nil {
		return nil
	}
	return s.streamLines(ctx, opts.Timeout, onLine)
}

// RestoreOptions configures a restore task.
type RestoreOptions struct {
	BackupFiles []string
	Database    string
	Flags       RestoreFlag
	PageSize    int32
	CacheSize   int32
	Timeout     time.Duration
}

// Restore rebuilds a database from backup files. Without an explicit
// replace or create flag the task runs in create mode.
func (s *Server) Restore(ctx context.Context, opts RestoreOptions, onLine func(string)) error {
	if opts.Database == "" || len(opts.BackupFiles) == 0 {
		return programmingErrf("restore needs a database and at least one backup file")
	}
	flags := opts.Flags
	if flags&(RestoreCreate|RestoreReplace) == 0 {
		flags |= RestoreCreate
	}
	req := NewSPBStart(ActionRestore, s.encoding)
	for _, f := range opts.BackupFiles {
		req.AddString(spbBkpFile, f)
	}
	req.AddString(byte(SPBDBName), opts.Database)
	if opts.PageSize > 0 {
		req.AddInt(spbResPageSize, opts.PageSize)
	}
	if opts.CacheSize > 0 {
		req.AddInt(spbResBuffers, opts.CacheSize)
	}
	req.AddInt(byte(SPBOptions), int32(flags))
	if onLine != nil {
		req.AddMarker(byte(SPBVerbose))
	}
	if err := s.start(ctx, req); err != nil {
		return err
	}
	if onLine == nil {
		return nil
	}
	return s.streamLines(ctx, opts.Timeout, onLine)
}

// GetStatistics runs gstat-style analysis on a database, reporting the
// output one line at a time.
func (s *Server) GetStatistics(ctx context.Context, database string, flags StatFlag, onLine func(string)) error {
	if database == "" {
		return programmingErrf("statistics need a database")
	}
	req := NewSPBStart(ActionDBStats, s.encoding)
	req.AddString(byte(SPBDBName), database)
	if flags != 0 {
		req.AddInt(byte(SPBOptions), int32(flags))
	}
	if err := s.start(ctx, req); err != nil {
		return err
	}
	return s.streamLines(ctx, 0, onLine)
}
