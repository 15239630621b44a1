package hikcentral

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const defaultTimeout = 20 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL     string
	Credentials Credentials

	// VerifySSL enables certificate verification. Appliances usually ship
	// with a self-signed certificate, so it defaults to off.
	VerifySSL bool

	// Timeout bounds each call. Zero means 20s.
	Timeout time.Duration

	// VehicleGroup is the vehicleGroupIndexCode used for vehicle list and add.
	VehicleGroup string
}

// Observer receives one sample per vendor call.
type Observer interface {
	WriteVendorCall(path, code string, elapsed time.Duration)
}

// Logger is the subset of logging.Logger the client needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Client performs signed calls against one appliance.
//
// Client is safe for concurrent use.
type Client struct {
	rest         *resty.Client
	creds        Credentials
	vehicleGroup string

	now      func() time.Time
	nonce    func() string
	observer Observer
	logger   Logger
}

// New builds a client from cfg.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	group := cfg.VehicleGroup
	if group == "" {
		group = "2"
	}

	rest := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetCloseConnection(true).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: !cfg.VerifySSL}) //nolint:gosec // configurable for self-signed appliances

	return &Client{
		rest:         rest,
		creds:        cfg.Credentials,
		vehicleGroup: group,
		now:          time.Now,
		nonce:        uuid.NewString,
		logger:       noopLogger{},
	}
}

// SetObserver installs a per-call observer. Must be called before use.
func (c *Client) SetObserver(o Observer) {
	c.observer = o
}

// SetLogger installs a logger. Must be called before use.
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	c.logger = l
}

// Send signs body and POSTs it to path. The returned Response is never nil:
// transport errors, non-JSON replies and encoding failures are reported as
// CodeTransport, CodeHTTP and CodeEncode respectively.
func (c *Client) Send(ctx context.Context, path string, body any) *Response {
	start := c.now()
	resp := c.send(ctx, path, body)

	elapsed := c.now().Sub(start)
	if !resp.OK() {
		c.logger.Warn("vendor call failed", "path", path, "code", resp.Code, "msg", resp.Msg, "elapsed", elapsed)
	} else {
		c.logger.Debug("vendor call", "path", path, "elapsed", elapsed)
	}
	if c.observer != nil {
		c.observer.WriteVendorCall(path, resp.Code, elapsed)
	}
	return resp
}

func (c *Client) send(ctx context.Context, path string, body any) *Response {
	payload, err := encodeBody(body)
	if err != nil {
		return &Response{Code: CodeEncode, Msg: err.Error()}
	}

	now := c.now()
	in := SignInput{
		Path:       path,
		ContentMD5: ContentMD5(payload),
		Date:       now.UTC().Format(http.TimeFormat),
		Nonce:      c.nonce(),
		Timestamp:  strconv.FormatInt(now.UnixMilli(), 10),
	}

	// The appliance matches header names case-sensitively, so every header
	// is set verbatim.
	r := c.rest.R().
		SetContext(ctx).
		SetHeaderVerbatim("Accept", acceptJSON).
		SetHeaderVerbatim("Content-Type", contentTypeJSON).
		SetHeaderVerbatim("Content-MD5", in.ContentMD5).
		SetHeaderVerbatim("Date", in.Date).
		SetHeaderVerbatim("userId", c.creds.UserID).
		SetHeaderVerbatim("X-Ca-Key", c.creds.AppKey).
		SetHeaderVerbatim("X-Ca-Nonce", in.Nonce).
		SetHeaderVerbatim("X-Ca-Timestamp", in.Timestamp).
		SetHeaderVerbatim("X-Ca-Signature-Headers", signatureHeaders).
		SetHeaderVerbatim("X-Ca-Signature-Method", signatureMethod).
		SetHeaderVerbatim("X-Ca-Signature", c.creds.Sign(in)).
		SetBody(payload)

	res, err := r.Post(path)
	if err != nil {
		return &Response{Code: CodeTransport, Msg: err.Error()}
	}
	return parseResponse(res.StatusCode(), res.Body())
}

// encodeBody renders body as compact JSON without HTML escaping. A nil
// body is sent as an empty object.
func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return []byte("{}"), nil
	}
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
