// Package chain defines the blockchain boundary for credential anchoring.
// Services depend on the Client interface; the go-ethereum implementation
// lives in ethereum.go.
package chain

import (
	"context"
	"time"

	"github.com/creerlio2026/creerlio-platform-sub005/contracts/registry"
)

// Receipt summarizes a mined registry transaction.
type Receipt struct {
	TxHash        string
	BlockNumber   uint64
	BlockTime     time.Time
	Confirmations uint64
	GasUsed       uint64
}

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks

// Client is the registry contract boundary. Implementations must respect
// context deadlines on every call; the anchoring service bounds confirmation
// waits through the context it passes in.
type Client interface {
	// Issue records (idHash -> contentHash) on the registry and waits for
	// block inclusion.
	Issue(ctx context.Context, idHash, contentHash [32]byte) (Receipt, error)
	// Revoke marks the record for idHash revoked on the registry.
	Revoke(ctx context.Context, idHash [32]byte) (Receipt, error)
	// Read returns the current on-chain record for idHash. A missing record
	// is not an error; Exists is false.
	Read(ctx context.Context, idHash [32]byte) (registry.Record, error)
	// TxURL formats a block-explorer link for a transaction hash.
	TxURL(txHash string) string
}
