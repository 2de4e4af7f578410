package verification

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, log *Log) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	query := `
		INSERT INTO verification_logs
			(id, credential_id, token, verdict, hash_match, blockchain_verified, ip_address, user_agent, browser, os, referrer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.db.ExecContext(ctx, query,
		log.ID,
		log.CredentialID.String(),
		log.Token,
		string(log.Verdict),
		log.HashMatch,
		log.BlockchainVerified,
		log.IPAddress,
		log.UserAgent,
		log.Browser,
		log.OS,
		log.Referrer,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append verification log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID id.CredentialID, limit int) ([]*Log, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, credential_id, token, verdict, hash_match, blockchain_verified, ip_address, user_agent, browser, os, referrer, created_at
		FROM verification_logs
		WHERE credential_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, credentialID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification logs: %w", err)
	}
	defer rows.Close()

	var out []*Log
	for rows.Next() {
		var (
			log    Log
			credID string
		)
		if err := rows.Scan(
			&log.ID,
			&credID,
			&log.Token,
			&log.Verdict,
			&log.HashMatch,
			&log.BlockchainVerified,
			&log.IPAddress,
			&log.UserAgent,
			&log.Browser,
			&log.OS,
			&log.Referrer,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan verification log: %w", err)
		}
		parsed, err := id.ParseCredentialID(credID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credential id: %w", err)
		}
		log.CredentialID = parsed
		out = append(out, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verification logs: %w", err)
	}
	return out, nil
}
