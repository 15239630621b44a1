package hikcentral

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

var testCreds = Credentials{AppKey: "23456789", AppSecret: "s3cr3t-s3cr3t", UserID: "admin"}

// recordedCall is one request seen by fakeVendor.
type recordedCall struct {
	Path   string
	Header http.Header
	Body   []byte
}

// fakeVendor is an httptest appliance that routes by path.
type fakeVendor struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	calls  []recordedCall
	routes map[string]http.HandlerFunc
}

func newFakeVendor(t *testing.T) *fakeVendor {
	t.Helper()
	f := &fakeVendor{t: t, routes: map[string]http.HandlerFunc{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeVendor) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
	r.Body = io.NopCloser(bytes.NewReader(body))
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
	h, ok := f.routes[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		writeVendor(w, map[string]any{"code": "404", "msg": "no route"})
		return
	}
	h(w, r)
}

func (f *fakeVendor) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = h
}

// reply registers a fixed JSON reply for path.
func (f *fakeVendor) reply(path string, v any) {
	f.handle(path, func(w http.ResponseWriter, _ *http.Request) { writeVendor(w, v) })
}

func (f *fakeVendor) callsTo(path string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeVendor) client() *Client {
	c := New(Config{BaseURL: f.srv.URL, Credentials: testCreds, Timeout: 5 * time.Second})
	c.now = func() time.Time { return time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC) }
	c.nonce = func() string { return "0b6f6f2e-8c8c-4a8e-9d2a-1f4b2c3d4e5f" }
	return c
}

func writeVendor(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}

func decodeBody(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("request body is not JSON: %v (%s)", err, b)
	}
	return m
}

// pagedPersons serves n persons named p1..pn with the pageNo/pageSize from the request.
func pagedPersons(n int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck // test server
		start := (req.PageNo - 1) * req.PageSize
		list := []map[string]any{}
		for i := start; i < start+req.PageSize && i < n; i++ {
			list = append(list, map[string]any{"personId": i + 1, "personCode": "C" + itoa(i+1)})
		}
		writeVendor(w, map[string]any{"code": "0", "msg": "Success", "data": map[string]any{
			"total": n, "pageNo": req.PageNo, "pageSize": req.PageSize, "list": list,
		}})
	}
}

func itoa(i int) string {
	b, _ := json.Marshal(i) //nolint:errcheck // ints always marshal
	return string(b)
}

func mustRead(t *testing.T, r *http.Request) []byte {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("reading request body: %v", err)
	}
	return b
}
