// Package verification answers the public question "is this credential
// genuine right now" and records every answer it gives.
package verification

import (
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
)

// Verdict is the outcome of a verification scan.
type Verdict string

const (
	// VerdictValid means the credential is active, unexpired, and its stored
	// file still matches the digest fixed at ingestion.
	VerdictValid Verdict = "valid"
	// VerdictExpired means the credential's expiry date has passed.
	VerdictExpired Verdict = "expired"
	// VerdictRevoked means the holder revoked the credential. Revocation
	// outranks expiry when both apply.
	VerdictRevoked Verdict = "revoked"
	// VerdictMismatch means the stored file no longer hashes to the recorded
	// digest. The credential must be treated as tampered.
	VerdictMismatch Verdict = "mismatch"
	// VerdictNotFound means no credential carries the presented token.
	VerdictNotFound Verdict = "not_found"
)

// Log is one verification scan against a real credential. Scans of unknown
// tokens are never logged; there is no credential to attribute them to.
type Log struct {
	ID           uuid.UUID
	CredentialID id.CredentialID
	Token        string
	Verdict      Verdict

	HashMatch          bool
	BlockchainVerified bool

	IPAddress string
	UserAgent string
	Browser   string
	OS        string
	Referrer  string

	CreatedAt time.Time
}

// ParseClient fills Browser and OS from the raw user-agent string.
func (l *Log) ParseClient() {
	if l.UserAgent == "" {
		return
	}
	ua := useragent.New(l.UserAgent)
	name, version := ua.Browser()
	l.Browser = name
	if version != "" {
		l.Browser = name + " " + version
	}
	l.OS = ua.OS()
}
