package logging

import (
	"crypto/sha256"
	"encoding/hex"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyProvider  = "provider"
	KeyEndpoint  = "endpoint"
	KeySessionID = "session_id"
	KeyAccount   = "account_hash"
	KeyError     = "error"
	KeyEvent     = "event"
)

// AnonymizeAccount returns a hashed representation of an account label
// for logging purposes. Log entries for one account stay correlatable
// without exposing the user's identity.
func AnonymizeAccount(label string) string {
	if label == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(label))
	return "account:" + hex.EncodeToString(hash[:8])
}
