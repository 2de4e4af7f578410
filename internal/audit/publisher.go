package audit

import (
	"context"
	"log/slog"

	"github.com/creerlio2026/creerlio-platform-sub005/pkg/requestcontext"
)

// Publisher is the emission point services depend on. Emission failures are
// logged, never propagated: audit is a best-effort side effect of the primary
// operation everywhere except where a store transaction carries it.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// Emit fills in derived fields and appends the event.
func (p *Publisher) Emit(ctx context.Context, action AuditEvent, event Event) {
	event.Action = string(action)
	event.Category = action.Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}
