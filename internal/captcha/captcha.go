// internal/captcha/captcha.go
//
// Registration challenges, tracked per client address. Each challenge is a
// five-character code rendered as a QR PNG; the client scans or decodes it
// and types the code back. One pending challenge per address at a time.
package captcha

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength is the expected answer length; anything else is rejected
	// before comparing.
	CodeLength = 5

	qrSize = 256
)

// Registry keeps the pending challenge per address.
type Registry struct {
	mu    sync.Mutex
	codes map[string]string
}

func NewRegistry() *Registry {
	return &Registry{codes: make(map[string]string)}
}

// Issue creates a fresh challenge for the address, replacing any pending
// one, and returns the image as base64 PNG.
func (r *Registry) Issue(addr string) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", err
	}
	png, err := qrcode.Encode(code, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("render captcha: %w", err)
	}

	r.mu.Lock()
	r.codes[addr] = code
	r.mu.Unlock()

	return base64.StdEncoding.EncodeToString(png), nil
}

// Pending reports whether the address has an outstanding challenge.
func (r *Registry) Pending(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.codes[addr]
	return ok
}

// Verify compares an answer, case-insensitively, against the pending
// challenge. The challenge stays pending on a wrong answer so the client
// may retry; call Remove once registration succeeds.
func (r *Registry) Verify(addr, answer string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[addr]
	return ok && strings.ToUpper(answer) == code
}

// Remove drops the pending challenge for the address.
func (r *Registry) Remove(addr string) {
	r.mu.Lock()
	delete(r.codes, addr)
	r.mu.Unlock()
}

func newCode() (string, error) {
	raw := make([]byte, CodeLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	code := make([]byte, CodeLength)
	for i, b := range raw {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}
