package anchor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

const pgUniqueViolation = "23505"

// PostgresStore persists anchors in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed anchor store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const anchorColumns = `
	id, credential_id, chain_name, network, contract_address, status,
	tx_hash, block_number, block_time, confirmations, gas_used,
	failure_reason, created_at, updated_at
`

func (s *PostgresStore) CreatePending(ctx context.Context, a *Anchor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO anchors (`+anchorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		uuid.UUID(a.ID), uuid.UUID(a.CredentialID), a.ChainName, a.Network, a.ContractAddress, string(a.Status),
		a.TxHash, int64(a.BlockNumber), a.BlockTime, int64(a.Confirmations), int64(a.GasUsed),
		a.FailureReason, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pending anchor: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, anchorID id.AnchorID) (*Anchor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+anchorColumns+` FROM anchors WHERE id = $1
	`, uuid.UUID(anchorID))
	return scanAnchor(row)
}

func (s *PostgresStore) FindConfirmedByCredential(ctx context.Context, credentialID id.CredentialID) (*Anchor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+anchorColumns+` FROM anchors
		WHERE credential_id = $1 AND status = $2
	`, uuid.UUID(credentialID), string(StatusConfirmed))
	a, err := scanAnchor(row)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no confirmed anchor for credential")
		}
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*Anchor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+anchorColumns+` FROM anchors
		WHERE credential_id = $1
		ORDER BY created_at DESC
	`, uuid.UUID(credentialID))
	if err != nil {
		return nil, fmt.Errorf("list anchors: %w", err)
	}
	defer rows.Close()

	var out []*Anchor
	for rows.Next() {
		a, err := scanAnchor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anchors: %w", err)
	}
	return out, nil
}

// MarkConfirmed guards on pending status so terminal anchors stay immutable.
// The partial unique index on confirmed anchors turns a concurrent double
// confirm into CodeConflict.
func (s *PostgresStore) MarkConfirmed(ctx context.Context, anchorID id.AnchorID, receipt chain.Receipt) error {
	var blockTime interface{}
	if !receipt.BlockTime.IsZero() {
		blockTime = receipt.BlockTime
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE anchors
		SET status = $2, tx_hash = $3, block_number = $4, block_time = $5,
		    confirmations = $6, gas_used = $7, updated_at = now()
		WHERE id = $1 AND status = $8
	`, uuid.UUID(anchorID), string(StatusConfirmed), receipt.TxHash, int64(receipt.BlockNumber), blockTime,
		int64(receipt.Confirmations), int64(receipt.GasUsed), string(StatusPending))
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.Wrap(dErrors.CodeConflict, "credential already has a confirmed anchor", err)
		}
		return fmt.Errorf("confirm anchor: %w", err)
	}
	return requireOneRow(result, "anchor is already terminal")
}

func (s *PostgresStore) MarkFailed(ctx context.Context, anchorID id.AnchorID, reason string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE anchors
		SET status = $2, failure_reason = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, uuid.UUID(anchorID), string(StatusFailed), reason, string(StatusPending))
	if err != nil {
		return fmt.Errorf("fail anchor: %w", err)
	}
	return requireOneRow(result, "anchor is already terminal")
}

func requireOneRow(result sql.Result, conflictMsg string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("anchor rows affected: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeConflict, conflictMsg)
	}
	return nil
}

func scanAnchor(row interface{ Scan(dest ...any) error }) (*Anchor, error) {
	var (
		a         Anchor
		anchorID  uuid.UUID
		credID    uuid.UUID
		status    string
		blockNum  int64
		confirms  int64
		gasUsed   int64
		blockTime sql.NullTime
	)
	err := row.Scan(
		&anchorID, &credID, &a.ChainName, &a.Network, &a.ContractAddress, &status,
		&a.TxHash, &blockNum, &blockTime, &confirms, &gasUsed,
		&a.FailureReason, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "anchor not found")
		}
		return nil, fmt.Errorf("scan anchor: %w", err)
	}
	a.ID = id.AnchorID(anchorID)
	a.CredentialID = id.CredentialID(credID)
	a.Status = Status(status)
	a.BlockNumber = uint64(blockNum)
	a.Confirmations = uint64(confirms)
	a.GasUsed = uint64(gasUsed)
	if blockTime.Valid {
		bt := blockTime.Time
		a.BlockTime = &bt
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
