package service

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Revoked entries self-expire at the token's own expiry, so the ledger never
// accumulates tokens that are no longer verifiable anyway. Tokens revoked at
// or past their expiry still get a short floor TTL.
const (
	ledgerCleanupInterval = 10 * time.Minute
	revokedFloorTTL       = time.Minute
)

// RevocationLedger is the process-wide set of revoked session tokens.
type RevocationLedger struct {
	tokens *gocache.Cache
}

func NewRevocationLedger() *RevocationLedger {
	return &RevocationLedger{
		tokens: gocache.New(gocache.NoExpiration, ledgerCleanupInterval),
	}
}

// Revoke adds the token when absent, with a TTL matching its remaining
// validity.
func (l *RevocationLedger) Revoke(token string, expiry time.Time) {
	if l.IsRevoked(token) {
		return
	}

	ttl := time.Until(expiry)
	if ttl <= 0 {
		ttl = revokedFloorTTL
	}
	l.tokens.Set(token, struct{}{}, ttl)
}

func (l *RevocationLedger) IsRevoked(token string) bool {
	_, found := l.tokens.Get(token)
	return found
}
