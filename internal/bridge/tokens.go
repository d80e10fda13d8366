package bridge

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"vidbee/internal/constants"
)

// issueToken mints a 16-byte random hex token valid for constants.TokenTTL.
func (s *Server) issueToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)

	s.tokensMu.Lock()
	s.tokens[token] = time.Now().Add(constants.TokenTTL)
	s.tokensMu.Unlock()

	return token, nil
}

// consumeToken reports whether token is currently valid, removing it
// either way: a valid token is single-use, and an expired one is pruned
// on first lookup per spec.
func (s *Server) consumeToken(token string) bool {
	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()

	expiry, ok := s.tokens[token]
	delete(s.tokens, token)
	if !ok {
		return false
	}
	return time.Now().Before(expiry)
}

func tokenTTLMillis() int64 {
	return constants.TokenTTL.Milliseconds()
}
