package fbclient

import (
	"context"
	"io"
	"sync"

	"github.com/gofirebird/fbclient/bind"
)

// infoResponse renders items in the engine's info response layout.
func infoResponse(items ...InfoItem) []byte {
	b := &Buffer{}
	for _, it := range items {
		b.PutTag(it.Tag)
		b.PutShort(uint16(len(it.Payload)))
		b.PutBytes(it.Payload)
	}
	b.PutTag(infoEnd)
	return b.Bytes()
}

func intPayload(width int, v int64) []byte {
	b := &Buffer{}
	switch width {
	case 1:
		b.PutByte(byte(v))
	case 2:
		b.PutShort(uint16(v))
	case 4:
		b.PutInt(int32(v))
	case 8:
		b.PutBigint(v)
	}
	return b.Bytes()
}

func versionBannerPayload(banners ...string) []byte {
	b := &Buffer{}
	b.PutByte(byte(len(banners)))
	for _, s := range banners {
		b.PutByte(byte(len(s)))
		b.PutBytes([]byte(s))
	}
	return b.Bytes()
}

const mockBanner = "LI-V3.0.10.33601 Firebird 3.0"

// defaultInfoFn answers any attachment info request with a version
// banner item and an attachment id, enough for attach and ping.
func defaultInfoFn(request, response []byte) error {
	resp := infoResponse(
		InfoItem{Tag: byte(DbInfoFirebirdVersion), Payload: versionBannerPayload(mockBanner)},
		InfoItem{Tag: byte(DbInfoAttachmentID), Payload: intPayload(4, 7)},
	)
	copy(response, resp)
	return nil
}

type mockEngine struct {
	mu      sync.Mutex
	att     *mockAttachment
	svc     *mockService
	attachN int
	createN int

	failAttach error
}

func newMockEngine() *mockEngine {
	return &mockEngine{att: newMockAttachment(), svc: newMockService()}
}

func (e *mockEngine) Attach(ctx context.Context, target string, dpb []byte) (bind.Attachment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attachN++
	if e.failAttach != nil {
		return nil, e.failAttach
	}
	e.att.dpb = dpb
	return e.att, nil
}

func (e *mockEngine) Create(ctx context.Context, target string, dpb []byte) (bind.Attachment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.createN++
	e.att.dpb = dpb
	return e.att, nil
}

func (e *mockEngine) AttachService(ctx context.Context, target string, spb []byte) (bind.Service, error) {
	e.svc.spb = spb
	return e.svc, nil
}

type mockAttachment struct {
	mu    sync.Mutex
	calls map[string]int

	dpb  []byte
	tpbs [][]byte

	infoFn  func(request, response []byte) error
	execErr error

	warnings []*bind.StatusError

	nextStmt *mockStatement
	lastTra  *mockTransaction

	lastEPB      []byte
	lastCB       bind.EventCallback
	sub          *mockSubscription
	queueDeliver []byte // if set, delivered synchronously inside QueueEvents
}

func newMockAttachment() *mockAttachment {
	return &mockAttachment{
		calls:  make(map[string]int),
		infoFn: defaultInfoFn,
		sub:    &mockSubscription{},
	}
}

func (a *mockAttachment) called(name string) {
	a.mu.Lock()
	a.calls[name]++
	a.mu.Unlock()
}

func (a *mockAttachment) callCount(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[name]
}

func (a *mockAttachment) GetInfo(ctx context.Context, request, response []byte) error {
	a.called("GetInfo")
	return a.infoFn(request, response)
}

func (a *mockAttachment) StartTransaction(ctx context.Context, tpb []byte) (bind.Transaction, error) {
	a.called("StartTransaction")
	a.mu.Lock()
	a.tpbs = append(a.tpbs, tpb)
	a.mu.Unlock()
	tra := newMockTransaction()
	a.lastTra = tra
	return tra, nil
}

func (a *mockAttachment) Prepare(ctx context.Context, tra bind.Transaction, sql string, dialect uint) (bind.Statement, error) {
	a.called("Prepare")
	st := a.nextStmt
	if st == nil {
		st = newMockStatement(StmtInsert, nil)
	}
	st.sql = sql
	return st, nil
}

func (a *mockAttachment) ExecuteImmediate(ctx context.Context, tra bind.Transaction, sql string, dialect uint) error {
	a.called("ExecuteImmediate")
	a.mu.Lock()
	a.calls["sql:"+sql]++
	err := a.execErr
	a.mu.Unlock()
	return err
}

func (a *mockAttachment) OpenBlob(ctx context.Context, tra bind.Transaction, id bind.BlobID, bpb []byte) (bind.Blob, error) {
	a.called("OpenBlob")
	return &mockBlob{content: []byte("blob content here")}, nil
}

func (a *mockAttachment) CreateBlob(ctx context.Context, tra bind.Transaction, bpb []byte) (bind.Blob, bind.BlobID, error) {
	a.called("CreateBlob")
	return &mockBlob{}, bind.BlobID(42), nil
}

func (a *mockAttachment) QueueEvents(ctx context.Context, epb []byte, cb bind.EventCallback) (bind.EventSubscription, error) {
	a.called("QueueEvents")
	a.mu.Lock()
	a.lastEPB = epb
	a.lastCB = cb
	deliver := a.queueDeliver
	a.mu.Unlock()
	if deliver != nil {
		cb(deliver)
	}
	return a.sub, nil
}

func (a *mockAttachment) CancelOperation(ctx context.Context, kind bind.CancelKind) error {
	a.called("CancelOperation")
	return nil
}

func (a *mockAttachment) TakeWarnings() []*bind.StatusError {
	a.mu.Lock()
	defer a.mu.Unlock()
	w := a.warnings
	a.warnings = nil
	return w
}

func (a *mockAttachment) Detach(ctx context.Context) error {
	a.called("Detach")
	return nil
}

func (a *mockAttachment) DropDatabase(ctx context.Context) error {
	a.called("DropDatabase")
	return nil
}

type mockTransaction struct {
	mu    sync.Mutex
	calls map[string]int

	prepareErr error
}

func newMockTransaction() *mockTransaction {
	return &mockTransaction{calls: make(map[string]int)}
}

func (t *mockTransaction) called(name string) {
	t.mu.Lock()
	t.calls[name]++
	t.mu.Unlock()
}

func (t *mockTransaction) callCount(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[name]
}

func (t *mockTransaction) GetInfo(ctx context.Context, request, response []byte) error {
	t.called("GetInfo")
	resp := infoResponse(
		InfoItem{Tag: byte(TraInfoID), Payload: intPayload(4, 99)},
		InfoItem{Tag: byte(TraInfoIsolation), Payload: []byte{TraReportedConcurrency}},
		InfoItem{Tag: byte(TraInfoAccess), Payload: intPayload(1, TraReportedReadWrite)},
	)
	copy(response, resp)
	return nil
}

func (t *mockTransaction) Commit(ctx context.Context) error {
	t.called("Commit")
	return nil
}

func (t *mockTransaction) CommitRetaining(ctx context.Context) error {
	t.called("CommitRetaining")
	return nil
}

func (t *mockTransaction) Rollback(ctx context.Context) error {
	t.called("Rollback")
	return nil
}

func (t *mockTransaction) RollbackRetaining(ctx context.Context) error {
	t.called("RollbackRetaining")
	return nil
}

func (t *mockTransaction) Prepare2PC(ctx context.Context) error {
	t.called("Prepare2PC")
	return t.prepareErr
}

type mockStatement struct {
	mu    sync.Mutex
	calls map[string]int

	sql      string
	stmtType StatementType
	rows     [][]any
	in, out  []bind.FieldDesc

	execErr    error
	rsCloseErr error
	records    []byte
	block      chan struct{}
}

func newMockStatement(stmtType StatementType, rows [][]any) *mockStatement {
	return &mockStatement{
		calls:    make(map[string]int),
		stmtType: stmtType,
		rows:     rows,
	}
}

func (s *mockStatement) called(name string) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
}

func (s *mockStatement) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *mockStatement) GetInfo(ctx context.Context, request, response []byte) error {
	s.called("GetInfo")
	items := []InfoItem{
		{Tag: byte(StmtInfoStmtType), Payload: intPayload(4, int64(s.stmtType))},
	}
	if s.records != nil {
		items = append(items, InfoItem{Tag: byte(StmtInfoRecords), Payload: s.records})
	}
	copy(response, infoResponse(items...))
	return nil
}

func (s *mockStatement) Fields() (in, out []bind.FieldDesc) {
	return s.in, s.out
}

func (s *mockStatement) Execute(ctx context.Context, tra bind.Transaction, params []any) error {
	s.called("Execute")
	s.mu.Lock()
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	return s.execErr
}

func (s *mockStatement) OpenCursor(ctx context.Context, tra bind.Transaction, params []any) (bind.ResultSet, error) {
	s.called("OpenCursor")
	if s.execErr != nil {
		return nil, s.execErr
	}
	return &mockResultSet{rows: s.rows, closeErr: s.rsCloseErr}, nil
}

func (s *mockStatement) Free(ctx context.Context) error {
	s.called("Free")
	return nil
}

type mockResultSet struct {
	mu       sync.Mutex
	rows     [][]any
	pos      int
	closed   bool
	closeN   int
	closeErr error
}

func (r *mockResultSet) FetchNext(ctx context.Context) ([]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, io.EOF
	}
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *mockResultSet) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.closeN++
	return r.closeErr
}

type mockBlob struct {
	mu      sync.Mutex
	content []byte
	pos     int
	written []byte
	closed  bool
}

func (b *mockBlob) GetSegment(ctx context.Context, p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pos >= len(b.content) {
		return 0, io.EOF
	}
	n := copy(p, b.content[b.pos:])
	b.pos += n
	return n, nil
}

func (b *mockBlob) PutSegment(ctx context.Context, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.written = append(b.written, p...)
	return nil
}

func (b *mockBlob) GetInfo(ctx context.Context, request, response []byte) error {
	resp := infoResponse(
		InfoItem{Tag: byte(BlobInfoNumSegments), Payload: intPayload(4, 3)},
		InfoItem{Tag: byte(BlobInfoMaxSegment), Payload: intPayload(4, 64)},
		InfoItem{Tag: byte(BlobInfoTotalLength), Payload: intPayload(4, int64(len(b.content)))},
		InfoItem{Tag: byte(BlobInfoType), Payload: intPayload(1, BlobSegmented)},
	)
	copy(response, resp)
	return nil
}

func (b *mockBlob) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *mockBlob) Cancel(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type mockSubscription struct {
	mu       sync.Mutex
	requeueN int
	cancelN  int
}

func (s *mockSubscription) Requeue(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requeueN++
	return nil
}

func (s *mockSubscription) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelN++
	return nil
}

func (s *mockSubscription) counts() (requeue, cancel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requeueN, s.cancelN
}

// mockService replays a scripted queue of query responses.
type mockService struct {
	mu        sync.Mutex
	spb       []byte
	started   [][]byte
	responses [][]byte
	queryN    int
	detachN   int
}

func newMockService() *mockService {
	return &mockService{}
}

func (s *mockService) push(response []byte) {
	s.mu.Lock()
	s.responses = append(s.responses, response)
	s.mu.Unlock()
}

func (s *mockService) Query(ctx context.Context, sendItems, request, response []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryN++
	if len(s.responses) == 0 {
		copy(response, []byte{infoEnd})
		return nil
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	copy(response, next)
	return nil
}

func (s *mockService) Start(ctx context.Context, request []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, request)
	return nil
}

func (s *mockService) Detach(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachN++
	return nil
}
