package hikcentral

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentMD5(t *testing.T) {
	body := []byte(`{"pageNo":1,"pageSize":10}`)
	got := ContentMD5(body)

	assert.Len(t, got, 24)
	assert.Equal(t, got, ContentMD5([]byte(`{"pageNo":1,"pageSize":10}`)))
	assert.NotEqual(t, got, ContentMD5([]byte(`{"pageNo":1, "pageSize":10}`)))
	assert.Equal(t, "1B2M2Y8AsgTpgAmY7PhCfg==", ContentMD5(nil))
}

func TestStringToSign(t *testing.T) {
	in := SignInput{
		Path:       "/artemis/api/resource/v1/person/personList",
		ContentMD5: "md5==",
		Date:       "Sun, 01 Mar 2026 15:04:05 GMT",
		Nonce:      "n-1",
		Timestamp:  "1772377445000",
	}

	want := "POST\n" +
		"application/json\n" +
		"md5==\n" +
		"application/json; charset=UTF-8\n" +
		"Sun, 01 Mar 2026 15:04:05 GMT\n" +
		"userid:admin\n" +
		"x-ca-key:23456789\n" +
		"x-ca-nonce:n-1\n" +
		"x-ca-timestamp:1772377445000\n" +
		"/artemis/api/resource/v1/person/personList"

	assert.Equal(t, want, testCreds.StringToSign(in))
}

func TestSignDeterministicAndSensitive(t *testing.T) {
	base := SignInput{
		Path:       "/artemis/api/resource/v1/vehicle/vehicleList",
		ContentMD5: ContentMD5([]byte(`{}`)),
		Date:       "Sun, 01 Mar 2026 15:04:05 GMT",
		Nonce:      "n-1",
		Timestamp:  "1772377445000",
	}
	sig := testCreds.Sign(base)
	assert.Equal(t, sig, testCreds.Sign(base))

	variants := map[string]func(SignInput, Credentials) (SignInput, Credentials){
		"path":      func(in SignInput, c Credentials) (SignInput, Credentials) { in.Path += "x"; return in, c },
		"md5":       func(in SignInput, c Credentials) (SignInput, Credentials) { in.ContentMD5 = "x"; return in, c },
		"date":      func(in SignInput, c Credentials) (SignInput, Credentials) { in.Date = "x"; return in, c },
		"nonce":     func(in SignInput, c Credentials) (SignInput, Credentials) { in.Nonce = "n-2"; return in, c },
		"timestamp": func(in SignInput, c Credentials) (SignInput, Credentials) { in.Timestamp = "1"; return in, c },
		"app key":   func(in SignInput, c Credentials) (SignInput, Credentials) { c.AppKey = "other"; return in, c },
		"secret":    func(in SignInput, c Credentials) (SignInput, Credentials) { c.AppSecret = "other"; return in, c },
		"user":      func(in SignInput, c Credentials) (SignInput, Credentials) { c.UserID = "other"; return in, c },
	}
	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			in, creds := mutate(base, testCreds)
			assert.NotEqual(t, sig, creds.Sign(in))
		})
	}
}
