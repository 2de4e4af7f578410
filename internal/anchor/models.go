// Package anchor records attempts to commit a credential's identity and
// content hash to the on-chain registry. Anchors are append-style: pending
// rows transition once to confirmed or failed and are never mutated again;
// failed anchors are retained for audit.
package anchor

import (
	"time"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
)

// Status is the anchor lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Anchor is one attempt to anchor a credential on chain.
//
// The pending row is written before the transaction is submitted so an
// in-flight crash leaves a recoverable record rather than an untracked
// on-chain side effect. At most one confirmed anchor exists per credential;
// the store enforces this.
type Anchor struct {
	ID           id.AnchorID
	CredentialID id.CredentialID

	ChainName       string
	Network         string
	ContractAddress string

	Status Status

	TxHash        string
	BlockNumber   uint64
	BlockTime     *time.Time
	Confirmations uint64
	GasUsed       uint64

	FailureReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the anchor has reached a final state.
func (a *Anchor) Terminal() bool {
	return a.Status == StatusConfirmed || a.Status == StatusFailed
}
