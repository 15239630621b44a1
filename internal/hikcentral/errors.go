package hikcentral

import (
	"errors"
	"fmt"
)

// Result codes. CodeOK is the vendor's success code; the rest are produced
// locally when a call never reached a well-formed vendor reply.
const (
	CodeOK        = "0"
	CodeTransport = "ERROR"
	CodeHTTP      = "HTTP_ERROR"
	CodeEncode    = "ENCODE_ERROR"
)

var (
	// ErrPersonNotResolved is returned when a personCode does not map to a vendor person.
	ErrPersonNotResolved = errors.New("person could not be resolved")

	// ErrMissingPersonID is returned when the vendor knows the person but reports no personId.
	ErrMissingPersonID = errors.New("person has no personId")
)

// VendorError is a call that completed with a non-success code.
type VendorError struct {
	Path string
	Code string
	Msg  string
}

func (e *VendorError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("hikcentral %s: code %s", e.Path, e.Code)
	}
	return fmt.Sprintf("hikcentral %s: code %s: %s", e.Path, e.Code, e.Msg)
}

// Local reports whether the failure happened on this side of the wire
// (transport, non-JSON reply, encoding) rather than as a vendor business error.
func (e *VendorError) Local() bool {
	switch e.Code {
	case CodeTransport, CodeHTTP, CodeEncode:
		return true
	}
	return false
}

// IsLocal reports whether err wraps a VendorError produced locally.
func IsLocal(err error) bool {
	var ve *VendorError
	return errors.As(err, &ve) && ve.Local()
}
