package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/go-github/v45/github"
)

const sha256Prefix = "sha256="

// VerifySignature checks an X-Hub-Signature-256 header against the raw
// request body. The body must be the exact bytes received; a re-encoded
// payload will not match.
func VerifySignature(rawBody []byte, signatureHeader string, secret []byte) error {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(signatureHeader, sha256Prefix) {
		return ErrInvalidSignature
	}
	if len(secret) == 0 {
		return ErrInvalidSignature
	}
	// go-github decodes the hex digest and compares with hmac.Equal
	if err := github.ValidateSignature(signatureHeader, rawBody, secret); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the X-Hub-Signature-256 header value for body
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return sha256Prefix + hex.EncodeToString(mac.Sum(nil))
}
