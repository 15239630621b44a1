package hikcentral

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // Content-MD5 is mandated by the vendor protocol
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const (
	acceptJSON       = "application/json"
	contentTypeJSON  = "application/json; charset=UTF-8"
	signatureHeaders = "userid,x-ca-key,x-ca-nonce,x-ca-timestamp"
	signatureMethod  = "HmacSHA256"
)

// Credentials identify the integrating application to the appliance.
type Credentials struct {
	AppKey    string
	AppSecret string
	UserID    string
}

// SignInput holds the per-request values that enter the signature.
type SignInput struct {
	Path       string
	ContentMD5 string
	Date       string
	Nonce      string
	Timestamp  string
}

// ContentMD5 returns base64(MD5(body)).
func ContentMD5(body []byte) string {
	sum := md5.Sum(body) //nolint:gosec // see import
	return base64.StdEncoding.EncodeToString(sum[:])
}

// StringToSign builds the canonical string for a POST.
func (c Credentials) StringToSign(in SignInput) string {
	signed := strings.Join([]string{
		"userid:" + c.UserID,
		"x-ca-key:" + c.AppKey,
		"x-ca-nonce:" + in.Nonce,
		"x-ca-timestamp:" + in.Timestamp,
	}, "\n")

	return strings.Join([]string{
		"POST",
		acceptJSON,
		in.ContentMD5,
		contentTypeJSON,
		in.Date,
		signed,
		in.Path,
	}, "\n")
}

// Sign returns base64(HMAC-SHA256(AppSecret, StringToSign(in))).
func (c Credentials) Sign(in SignInput) string {
	mac := hmac.New(sha256.New, []byte(c.AppSecret))
	mac.Write([]byte(c.StringToSign(in))) //nolint:errcheck // hash writes never fail
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
