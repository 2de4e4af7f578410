// Package audit captures key platform actions as append-only events. Events
// are written to a transactional outbox and shipped to Kafka by the outbox
// worker; Kafka is the source of truth for downstream consumers.
package audit

import (
	"time"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category     EventCategory
	Timestamp    time.Time
	UserID       id.UserID
	CredentialID id.CredentialID
	Subject      string
	Action       string
	Decision     string
	Reason       string
	RequestID    string
	ClientIP     string
}

// AuditEvent names one auditable action.
type AuditEvent string

const (
	EventCredentialCreated  AuditEvent = "credential_created"
	EventCredentialRevoked  AuditEvent = "credential_revoked"
	EventAnchorConfirmed    AuditEvent = "anchor_confirmed"
	EventAnchorFailed       AuditEvent = "anchor_failed"
	EventChainRevokeFailed  AuditEvent = "chain_revoke_failed"
	EventCredentialVerified AuditEvent = "credential_verified"
	EventVerifyRateLimited  AuditEvent = "verify_rate_limited"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventCredentialCreated: CategoryCompliance,
	EventCredentialRevoked: CategoryCompliance,
	EventAnchorConfirmed:   CategoryCompliance,

	EventAnchorFailed:      CategorySecurity,
	EventChainRevokeFailed: CategorySecurity,
	EventVerifyRateLimited: CategorySecurity,

	EventCredentialVerified: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
