package hikcentral

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Response is the vendor envelope {code, msg, data}.
type Response struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`

	// Status is the HTTP status of the reply, zero when nothing came back.
	Status int `json:"-"`
}

// UnmarshalJSON accepts code and msg as either strings or numbers.
func (r *Response) UnmarshalJSON(b []byte) error {
	var raw struct {
		Code json.RawMessage `json:"code"`
		Msg  json.RawMessage `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Code = scalarString(raw.Code)
	r.Msg = scalarString(raw.Msg)
	r.Data = raw.Data
	return nil
}

// OK reports whether the vendor accepted the call.
func (r *Response) OK() bool {
	return r.Code == CodeOK
}

// Err returns a *VendorError for a failed call, nil on success.
func (r *Response) Err(path string) error {
	if r.OK() {
		return nil
	}
	return &VendorError{Path: path, Code: r.Code, Msg: r.Msg}
}

// Decode unmarshals the data payload into v. A null or absent payload leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 || bytes.Equal(r.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decoding vendor data: %w", err)
	}
	return nil
}

// parseResponse turns a raw HTTP reply into a Response. Replies that are not
// a JSON object become CodeHTTP.
func parseResponse(status int, body []byte) *Response {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nonJSON(status)
	}

	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nonJSON(status)
	}
	resp.Status = status
	return &resp
}

func nonJSON(status int) *Response {
	return &Response{
		Code:   CodeHTTP,
		Msg:    fmt.Sprintf("Non-JSON response (HTTP %d)", status),
		Status: status,
	}
}

// scalarString renders a JSON string or number as a Go string.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}

// dataID extracts an identifier from a data payload that is either a bare
// scalar or an object carrying key.
func dataID(raw json.RawMessage, key string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		return scalarString(obj[key])
	}
	return scalarString(raw)
}
