package audit

import "context"

// Store appends audit events durably. The postgres implementation writes to
// the transactional outbox; the memory implementation backs tests.
type Store interface {
	Append(ctx context.Context, event Event) error
}
