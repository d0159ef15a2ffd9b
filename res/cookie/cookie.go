// Package cookie seals arbitrary values into tamper-evident, encrypted,
// self-expiring strings suitable for client-side storage. Without the
// server secret a sealed value can be neither read nor forged; rotating
// the secret invalidates every outstanding cookie, which is the intended
// fail-closed behavior.
package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"
)

// payload wraps the caller's value with its own expiry so a stale cookie
// self-invalidates before any store lookup happens.
type payload struct {
	Value   json.RawMessage `json:"value"`
	Expires time.Time       `json:"expires"`
}

type Codec struct {
	prefix string
	aead   cipher.AEAD
}

// New derives the AES-256-GCM key as sha256(secret); the secret itself is
// never used as key material directly. The prefix namespaces cookie names
// per deployment.
func New(prefix, secret string) (*Codec, error) {
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Codec{prefix: prefix, aead: aead}, nil
}

// Name returns the prefix-qualified cookie name.
func (c *Codec) Name(name string) string {
	return c.prefix + name
}

// Seal serializes {value, expires: now+ttl} to JSON and encrypts it with a
// fresh random nonce. The result is a single opaque base64url string.
func (c *Codec) Seal(value interface{}, ttl time.Duration) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}

	plaintext, err := json.Marshal(payload{Value: raw, Expires: time.Now().UTC().Add(ttl)})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts and authenticates a sealed token into v. It reports false
// for every failure mode alike (tampered, truncated, wrong key, expired,
// malformed) so callers cannot be used as a padding or timing oracle for
// why a token was rejected.
func (c *Codec) Open(token string, v interface{}) bool {
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	if len(sealed) < c.aead.NonceSize() {
		return false
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return false
	}

	var p payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return false
	}
	if !p.Expires.After(time.Now()) {
		return false
	}

	return json.Unmarshal(p.Value, v) == nil
}
