package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/sawamura722/cardcapital/internal/domain/auth"
)

// HeaderAPIKey is the request header carrying the caller's API key.
const HeaderAPIKey = "api_key"

// SecurityHandler authenticates back-office requests via HMAC-SHA256 hashed
// API keys and enforces the admin scope.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// HashKey computes the hex HMAC-SHA256 of a raw API key under the pepper.
// The same function is used when seeding keys so lookups match.
func (s *SecurityHandler) HashKey(raw string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Require wraps next so it only runs for requests carrying a valid admin key.
func (s *SecurityHandler) Require(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok := s.authenticate(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Code: http.StatusUnauthorized, Message: "unauthorized"})
			return
		}
		if !info.HasScope(auth.ScopeAdmin) {
			writeJSON(w, http.StatusForbidden, errorBody{Code: http.StatusForbidden, Message: "forbidden"})
			return
		}
		next(w, r)
	})
}

func (s *SecurityHandler) authenticate(r *http.Request) (*auth.APIKeyInfo, bool) {
	raw := r.Header.Get(HeaderAPIKey)
	if raw == "" {
		return nil, false
	}

	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(raw))
	hash := mac.Sum(nil)

	info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
	if err != nil {
		return nil, false
	}

	// Constant-time comparison guards against timing side-channels even though
	// the lookup already succeeded; the stored hash could differ from what we
	// computed if the repository returns a stale or wrong row.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, false
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, false
	}
	return info, true
}
