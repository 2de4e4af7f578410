package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

const pgUniqueViolation = "23505"

// PostgresStore persists credentials in PostgreSQL.
// This store is pure I/O; authorization and lifecycle rules live in the
// service layer, except the single-statement guards documented on Store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const credentialColumns = `
	id, owner_id, title, description, credential_type, category, issuer_id,
	issued_at, expires_at, status, trust_level, visibility,
	sha256_hash, qr_token, storage_path, scan_count,
	revoked_at, revoked_by, revocation_reason, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, cred *Credential, att *Attachment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create credential: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		uuid.UUID(cred.ID), uuid.UUID(cred.OwnerID), cred.Title, cred.Description,
		cred.Type, cred.Category, issuerIDOrNil(cred.IssuerID),
		cred.IssuedAt, cred.ExpiresAt, string(cred.Status), string(cred.TrustLevel), string(cred.Visibility),
		cred.SHA256Hash, cred.QRToken, cred.StoragePath, cred.ScanCount,
		cred.RevokedAt, userIDOrNil(cred.RevokedBy), cred.RevocationReason,
		cred.CreatedAt, cred.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.Wrap(dErrors.CodeConflict, "verification token already in use", err)
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attachments (id, credential_id, file_name, content_type, size_bytes, sha256_hash, is_primary, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(att.ID), uuid.UUID(att.CredentialID), att.FileName, att.ContentType,
		att.SizeBytes, att.SHA256Hash, att.Primary, att.StoragePath, att.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+` FROM credentials WHERE id = $1
	`, uuid.UUID(credentialID))
	return scanCredential(row)
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+` FROM credentials WHERE qr_token = $1
	`, token)
	return scanCredential(row)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+credentialColumns+` FROM credentials
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []*Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

// Revoke is a guarded single-statement update: the status predicate makes the
// active -> revoked transition atomic under concurrent revocations.
func (s *PostgresStore) Revoke(ctx context.Context, credentialID id.CredentialID, revokedAt time.Time, revokedBy id.UserID, reason string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE credentials
		SET status = $2, revoked_at = $3, revoked_by = $4, revocation_reason = $5, updated_at = $3
		WHERE id = $1 AND status = $6
	`, uuid.UUID(credentialID), string(StatusRevoked), revokedAt, uuid.UUID(revokedBy), reason, string(StatusActive))
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke credential rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, credentialID); err != nil {
			return err
		}
		return dErrors.New(dErrors.CodeConflict, "credential is already revoked")
	}
	return nil
}

func (s *PostgresStore) IncrementScanCount(ctx context.Context, credentialID id.CredentialID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE credentials SET scan_count = scan_count + 1 WHERE id = $1
	`, uuid.UUID(credentialID))
	if err != nil {
		return fmt.Errorf("increment scan count: %w", err)
	}
	return nil
}

func (s *PostgresStore) PrimaryAttachment(ctx context.Context, credentialID id.CredentialID) (*Attachment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, credential_id, file_name, content_type, size_bytes, sha256_hash, is_primary, storage_path, created_at
		FROM attachments
		WHERE credential_id = $1 AND is_primary
	`, uuid.UUID(credentialID))

	var (
		att    Attachment
		attID  uuid.UUID
		credID uuid.UUID
	)
	err := row.Scan(&attID, &credID, &att.FileName, &att.ContentType, &att.SizeBytes, &att.SHA256Hash, &att.Primary, &att.StoragePath, &att.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "primary attachment not found")
		}
		return nil, fmt.Errorf("find primary attachment: %w", err)
	}
	att.ID = id.AttachmentID(attID)
	att.CredentialID = id.CredentialID(credID)
	return &att, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*Credential, error) {
	var (
		cred      Credential
		credID    uuid.UUID
		ownerID   uuid.UUID
		issuerID  *uuid.UUID
		status    string
		trust     string
		vis       string
		revokedBy *uuid.UUID
	)
	err := row.Scan(
		&credID, &ownerID, &cred.Title, &cred.Description, &cred.Type, &cred.Category, &issuerID,
		&cred.IssuedAt, &cred.ExpiresAt, &status, &trust, &vis,
		&cred.SHA256Hash, &cred.QRToken, &cred.StoragePath, &cred.ScanCount,
		&cred.RevokedAt, &revokedBy, &cred.RevocationReason, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	cred.ID = id.CredentialID(credID)
	cred.OwnerID = id.UserID(ownerID)
	cred.Status = Status(status)
	cred.TrustLevel = TrustLevel(trust)
	cred.Visibility = Visibility(vis)
	if issuerID != nil {
		iid := id.IssuerID(*issuerID)
		cred.IssuerID = &iid
	}
	if revokedBy != nil {
		rid := id.UserID(*revokedBy)
		cred.RevokedBy = &rid
	}
	return &cred, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func issuerIDOrNil(issuerID *id.IssuerID) *uuid.UUID {
	if issuerID == nil {
		return nil
	}
	raw := uuid.UUID(*issuerID)
	return &raw
}

func userIDOrNil(userID *id.UserID) *uuid.UUID {
	if userID == nil {
		return nil
	}
	raw := uuid.UUID(*userID)
	return &raw
}

// PostgresIssuerStore persists issuers in PostgreSQL.
type PostgresIssuerStore struct {
	db *sql.DB
}

func NewPostgresIssuerStore(db *sql.DB) *PostgresIssuerStore {
	return &PostgresIssuerStore{db: db}
}

func (s *PostgresIssuerStore) Save(ctx context.Context, issuer *Issuer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issuers (id, name, website, verified)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, website = EXCLUDED.website, verified = EXCLUDED.verified
	`, uuid.UUID(issuer.ID), issuer.Name, issuer.Website, issuer.Verified)
	if err != nil {
		return fmt.Errorf("save issuer: %w", err)
	}
	return nil
}

func (s *PostgresIssuerStore) FindByID(ctx context.Context, issuerID id.IssuerID) (*Issuer, error) {
	var (
		issuer Issuer
		rawID  uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, website, verified FROM issuers WHERE id = $1
	`, uuid.UUID(issuerID)).Scan(&rawID, &issuer.Name, &issuer.Website, &issuer.Verified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "issuer not found")
		}
		return nil, fmt.Errorf("find issuer: %w", err)
	}
	issuer.ID = id.IssuerID(rawID)
	return &issuer, nil
}
