package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hikgate/hikgate-core/internal/audit"
	"github.com/hikgate/hikgate-core/internal/auth"
	"github.com/hikgate/hikgate-core/internal/events"
	"github.com/hikgate/hikgate-core/internal/hikcentral"
	"github.com/hikgate/hikgate-core/internal/infrastructure/database"
	"github.com/hikgate/hikgate-core/internal/infrastructure/logging"
	"github.com/hikgate/hikgate-core/internal/person"
	"github.com/hikgate/hikgate-core/internal/search"
	"github.com/hikgate/hikgate-core/internal/vehicle"
	_ "github.com/hikgate/hikgate-core/migrations"
)

const testSecret = "api-test-secret-0123456789abcdef"

// vendorErr builds a business error as returned by the gateway.
func vendorErr(code, msg string) error {
	return &hikcentral.VendorError{Path: "/test", Code: code, Msg: msg}
}

// transportErr builds a local failure.
func transportErr() error {
	return &hikcentral.VendorError{Path: "/test", Code: hikcentral.CodeTransport, Msg: "connection refused"}
}

type fakeVendor struct {
	mu sync.Mutex

	person    *hikcentral.Person
	getErr    error
	faceErr   error
	assignErr error
	groups    []hikcentral.AccessGroup
	orgs      []hikcentral.Organization
	listErr   error

	faces   map[string]string
	assigns [][2]string
}

func (f *fakeVendor) GetPersonByCode(_ context.Context, code string) (*hikcentral.Person, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.person == nil || f.person.PersonCode != code {
		return nil, vendorErr("128", "person does not exist")
	}
	p := *f.person
	return &p, nil
}

func (f *fakeVendor) UpdateFace(_ context.Context, code, face string) error {
	if f.faceErr != nil {
		return f.faceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.faces == nil {
		f.faces = make(map[string]string)
	}
	f.faces[code] = face
	return nil
}

func (f *fakeVendor) AssignAccessLevel(_ context.Context, code, groupID string) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigns = append(f.assigns, [2]string{code, groupID})
	return nil
}

func (f *fakeVendor) ListAccessGroups(_ context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.AccessGroup], error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &hikcentral.Page[hikcentral.AccessGroup]{Total: len(f.groups), PageNo: pageNo, PageSize: pageSize, List: f.groups}, nil
}

func (f *fakeVendor) ListOrganizations(_ context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.Organization], error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &hikcentral.Page[hikcentral.Organization]{Total: len(f.orgs), PageNo: pageNo, PageSize: pageSize, List: f.orgs}, nil
}

type fakeWorkflow struct {
	mu       sync.Mutex
	report   *person.Report
	err      error
	requests []person.Request
	updated  []string
}

func (f *fakeWorkflow) Create(_ context.Context, req person.Request) (*person.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.report, f.err
}

func (f *fakeWorkflow) Update(_ context.Context, personID string, req person.Request) (*person.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.updated = append(f.updated, personID)
	return f.report, f.err
}

func (f *fakeWorkflow) last() person.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeSearcher struct {
	listing  *search.Listing
	err      error
	query    string
	pageNo   int
	pageSize int
	vehicles map[string][]vehicle.Summary
}

func (f *fakeSearcher) Search(_ context.Context, q string) (*search.Listing, error) {
	f.query = q
	return f.listing, f.err
}

func (f *fakeSearcher) Page(_ context.Context, pageNo, pageSize int) (*search.Listing, error) {
	f.pageNo, f.pageSize = pageNo, pageSize
	return f.listing, f.err
}

func (f *fakeSearcher) Enrich(_ context.Context, results []search.Result) {
	for i := range results {
		results[i].Vehicles = f.vehicles[results[i].PersonCode]
	}
}

type fakeVehicleCache struct {
	index       vehicle.Index
	err         error
	expires     time.Time
	invalidated int
}

func (f *fakeVehicleCache) Get(context.Context) (vehicle.Index, error) { return f.index, f.err }
func (f *fakeVehicleCache) Invalidate()                                 { f.invalidated++ }
func (f *fakeVehicleCache) ExpiresAt() time.Time                        { return f.expires }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) error { return f.err }

// testEnv is a server with fakes behind every vendor-facing dependency and
// a real SQLite store for users and audit.
type testEnv struct {
	srv      *Server
	handler  http.Handler
	db       *sql.DB
	users    *auth.SQLiteUserRepository
	tokens   *auth.TokenIssuer
	vendor   *fakeVendor
	workflow *fakeWorkflow
	searcher *fakeSearcher
	vehicles *fakeVehicleCache
	events   *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "api.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}

	env := &testEnv{
		db:       db.DB,
		users:    auth.NewUserRepository(db.DB),
		tokens:   auth.NewTokenIssuer(testSecret, time.Hour),
		vendor:   &fakeVendor{},
		workflow: &fakeWorkflow{report: &person.Report{PersonID: "501", PersonCode: "EMP-1"}},
		searcher: &fakeSearcher{listing: &search.Listing{Persons: []search.Result{}}},
		vehicles: &fakeVehicleCache{index: vehicle.Index{}},
		events:   &recordingPublisher{},
	}

	srv, err := New(Deps{
		Logger:     logging.Discard(),
		Vendor:     env.vendor,
		Workflow:   env.workflow,
		Searcher:   env.searcher,
		Vehicles:   env.vehicles,
		Users:      env.users,
		Tokens:     env.tokens,
		Audit:      audit.NewSQLiteRepository(db.DB),
		Events:     env.events,
		DefaultOrg: "1",
		Health:     map[string]HealthChecker{"database": db},
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	env.srv = srv
	env.handler = srv.buildRouter()
	return env
}

// createUser stores an active account with password "password123".
func (e *testEnv) createUser(t *testing.T, username string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u := &auth.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return u
}

// tokenFor creates a user with role and returns a bearer token for them.
func (e *testEnv) tokenFor(t *testing.T, username string, role auth.Role) string {
	t.Helper()

	u := e.createUser(t, username, role)
	tok, err := e.tokens.Issue(u)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	return tok
}

// do sends a request through the full router.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// eventKinds hands queued events to the recording publisher and returns
// every kind seen so far.
func (e *testEnv) eventKinds() []events.Kind {
	for n := len(e.srv.eventCh); n > 0; n-- {
		e.events.Publish(<-e.srv.eventCh) //nolint:errcheck // recording publisher never fails
	}
	return e.events.kinds()
}

// drainAudit returns the entries queued so far without writing them.
func (e *testEnv) drainAudit() []*audit.Entry {
	var out []*audit.Entry
	for {
		select {
		case entry := <-e.srv.auditCh:
			out = append(out, entry)
		default:
			return out
		}
	}
}

func newRecorder() *httptest.ResponseRecorder { return httptest.NewRecorder() }

// envelopeResponse decodes a vendor-backed success response.
type envelopeResponse struct {
	Message string          `json:"message"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelopeResponse {
	t.Helper()
	var env envelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) Error {
	t.Helper()
	var e Error
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decoding error: %v (body %s)", err, rec.Body.String())
	}
	return e
}
