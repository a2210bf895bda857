package mcp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// LinkSigner builds display URLs whose payload travels in the URL itself,
// signed so the web frontend can trust it without a database lookup.
type LinkSigner struct {
	BaseURL string
	Secret  []byte
}

func NewLinkSigner(baseURL string, secret []byte) *LinkSigner {
	return &LinkSigner{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Secret:  secret,
	}
}

// DisplayURL encodes payload as base64url JSON under path and appends an
// HMAC-SHA256 signature.
func (s *LinkSigner) DisplayURL(path string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode display payload: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(data)
	return fmt.Sprintf("%s/%s?d=%s&sig=%s", s.BaseURL, strings.Trim(path, "/"), encoded, s.sign(encoded)), nil
}

// Verify checks the signature over an encoded payload and returns the
// decoded JSON bytes.
func (s *LinkSigner) Verify(encoded, signature string) ([]byte, error) {
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(signature)) {
		return nil, fmt.Errorf("display payload signature mismatch")
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode display payload: %w", err)
	}
	return data, nil
}

func (s *LinkSigner) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}
