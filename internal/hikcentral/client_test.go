package hikcentral

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	paths []string
	codes []string
}

func (o *recordingObserver) WriteVendorCall(path, code string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, path)
	o.codes = append(o.codes, code)
}

func TestSendSignsRequest(t *testing.T) {
	fv := newFakeVendor(t)
	fv.reply(pathListPersons, map[string]any{"code": "0", "msg": "Success"})

	resp := fv.client().Send(context.Background(), pathListPersons, pageRequest{PageNo: 1, PageSize: 10})
	require.True(t, resp.OK(), "resp = %+v", resp)

	calls := fv.callsTo(pathListPersons)
	require.Len(t, calls, 1)
	h, body := calls[0].Header, calls[0].Body

	assert.Equal(t, `{"pageNo":1,"pageSize":10}`, string(body))
	assert.Equal(t, ContentMD5(body), h.Get("Content-MD5"))
	assert.Equal(t, "application/json", h.Get("Accept"))
	assert.Equal(t, "application/json; charset=UTF-8", h.Get("Content-Type"))
	assert.Equal(t, "Sun, 01 Mar 2026 15:04:05 GMT", h.Get("Date"))
	assert.Equal(t, "admin", h.Get("userId"))
	assert.Equal(t, "23456789", h.Get("X-Ca-Key"))
	assert.Equal(t, "0b6f6f2e-8c8c-4a8e-9d2a-1f4b2c3d4e5f", h.Get("X-Ca-Nonce"))
	assert.Equal(t, "1772377445000", h.Get("X-Ca-Timestamp"))
	assert.Equal(t, "userid,x-ca-key,x-ca-nonce,x-ca-timestamp", h.Get("X-Ca-Signature-Headers"))
	assert.Equal(t, "HmacSHA256", h.Get("X-Ca-Signature-Method"))

	want := testCreds.Sign(SignInput{
		Path:       pathListPersons,
		ContentMD5: h.Get("Content-MD5"),
		Date:       h.Get("Date"),
		Nonce:      h.Get("X-Ca-Nonce"),
		Timestamp:  h.Get("X-Ca-Timestamp"),
	})
	assert.Equal(t, want, h.Get("X-Ca-Signature"))
}

func TestSendHeaderCasingIsVerbatim(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() }) //nolint:errcheck // test cleanup

	raw := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			raw <- ""
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		var head strings.Builder
		for {
			line, err := r.ReadString('\n')
			head.WriteString(line)
			if err != nil || line == "\r\n" {
				break
			}
		}
		raw <- head.String()

		body := `{"code":"0","msg":"Success"}`
		fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
	}()

	c := New(Config{BaseURL: "http://" + ln.Addr().String(), Credentials: testCreds, Timeout: 5 * time.Second})
	resp := c.Send(context.Background(), "/p", nil)
	require.True(t, resp.OK(), "resp = %+v", resp)

	head := <-raw
	for _, name := range []string{"userId:", "Content-MD5:", "X-Ca-Key:", "X-Ca-Nonce:", "X-Ca-Timestamp:", "X-Ca-Signature:", "X-Ca-Signature-Headers:"} {
		assert.Contains(t, head, "\r\n"+name+" ", "header %q not sent verbatim", name)
	}
	assert.Contains(t, head, "Connection: close")
}

func TestSendBodyEncoding(t *testing.T) {
	fv := newFakeVendor(t)
	fv.reply("/p", map[string]any{"code": "0"})

	fv.client().Send(context.Background(), "/p", map[string]string{"personName": "Ana <Ñ> & Co"})
	fv.client().Send(context.Background(), "/p", nil)

	calls := fv.callsTo("/p")
	require.Len(t, calls, 2)
	assert.Equal(t, `{"personName":"Ana <Ñ> & Co"}`, string(calls[0].Body))
	assert.Equal(t, `{}`, string(calls[1].Body))
}

func TestSendResultCodes(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode string
		wantMsg  string
	}{
		{
			name:     "string code",
			handler:  func(w http.ResponseWriter, _ *http.Request) { writeVendor(w, map[string]any{"code": "0", "msg": "Success"}) },
			wantCode: CodeOK,
			wantMsg:  "Success",
		},
		{
			name:     "numeric code",
			handler:  func(w http.ResponseWriter, _ *http.Request) { writeVendor(w, map[string]any{"code": 128, "msg": "bad"}) },
			wantCode: "128",
			wantMsg:  "bad",
		},
		{
			name: "html error page",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("<html>bad gateway</html>")) //nolint:errcheck // test server
			},
			wantCode: CodeHTTP,
			wantMsg:  "Non-JSON response (HTTP 502)",
		},
		{
			name: "json array",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`[1,2,3]`)) //nolint:errcheck // test server
			},
			wantCode: CodeHTTP,
			wantMsg:  "Non-JSON response (HTTP 200)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := newFakeVendor(t)
			fv.handle("/p", tt.handler)

			resp := fv.client().Send(context.Background(), "/p", nil)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Msg)
		})
	}
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	c := New(Config{BaseURL: url, Credentials: testCreds, Timeout: time.Second})
	c.SetObserver(obs)

	resp := c.Send(context.Background(), "/p", nil)
	require.NotNil(t, resp)
	assert.Equal(t, CodeTransport, resp.Code)
	assert.NotEmpty(t, resp.Msg)
	assert.Equal(t, []string{CodeTransport}, obs.codes)

	var ve *VendorError
	require.ErrorAs(t, resp.Err("/p"), &ve)
	assert.True(t, ve.Local())
}

func TestSendEncodeError(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Credentials: testCreds})

	resp := c.Send(context.Background(), "/p", map[string]any{"bad": make(chan int)})
	assert.Equal(t, CodeEncode, resp.Code)
}

func TestSendReportsToObserver(t *testing.T) {
	fv := newFakeVendor(t)
	fv.reply("/ok", map[string]any{"code": "0"})
	fv.reply("/fail", map[string]any{"code": "5", "msg": "nope"})

	obs := &recordingObserver{}
	c := fv.client()
	c.SetObserver(obs)

	c.Send(context.Background(), "/ok", nil)
	c.Send(context.Background(), "/fail", nil)

	assert.Equal(t, []string{"/ok", "/fail"}, obs.paths)
	assert.Equal(t, []string{"0", "5"}, obs.codes)
}
