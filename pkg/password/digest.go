package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Security question and captcha answers are short, low-entropy strings.
// They are stored as salted SHA-256 digests and compared in constant
// time so neither the store nor timing reveals the answer.

// NewSalt generates a random hex-encoded salt for answer digests.
func NewSalt() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// DigestAnswer computes the stored digest for an answer. Answers are
// normalized (trimmed, lower-cased) before digesting so that case and
// surrounding whitespace do not fail a correct answer.
func DigestAnswer(answer, salt string) string {
	normalized := NormalizeAnswer(answer)
	sum := sha256.Sum256([]byte(salt + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

// VerifyAnswer checks an answer against a stored digest in constant time.
func VerifyAnswer(answer, salt, digest string) bool {
	computed := DigestAnswer(answer, salt)
	return hmac.Equal([]byte(computed), []byte(digest))
}

// NormalizeAnswer canonicalizes an answer before digesting.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
