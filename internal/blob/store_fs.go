package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

// FSStore persists blobs on the local filesystem and issues HMAC-signed read
// URLs served by the /files endpoint. Paths are confined to the configured
// root directory.
type FSStore struct {
	root    string
	baseURL string
	secret  []byte
}

// NewFSStore creates the filesystem store rooted at dir. baseURL is the
// public prefix signed URLs are built on (e.g. https://host/files).
func NewFSStore(dir, baseURL, signingSecret string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{
		root:    dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(signingSecret),
	}, nil
}

func (s *FSStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	// Write-then-rename keeps partially written blobs invisible.
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize blob: %w", err)
	}
	_ = contentType // recorded on the attachment row, not the filesystem
	return nil
}

func (s *FSStore) Get(ctx context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, dErrors.New(dErrors.CodeNotFound, "blob not found")
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *FSStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// SignedReadURL grants read access to path until now+ttl. The signature
// covers path and expiry so neither can be swapped out.
func (s *FSStore) SignedReadURL(path string, ttl time.Duration) (string, error) {
	if _, err := s.resolve(path); err != nil {
		return "", err
	}
	exp := time.Now().Add(ttl).Unix()
	sig := s.sign(path, exp)
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s?exp=%d&sig=%s", s.baseURL, strings.Join(segments, "/"), exp, sig), nil
}

// VerifyReadRequest validates the exp/sig pair produced by SignedReadURL.
// The /files handler calls this before serving bytes.
func (s *FSStore) VerifyReadRequest(path string, exp int64, sig string, now time.Time) error {
	if now.Unix() > exp {
		return dErrors.New(dErrors.CodeForbidden, "signed url expired")
	}
	expected := s.sign(path, exp)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return dErrors.New(dErrors.CodeForbidden, "signature mismatch")
	}
	return nil
}

func (s *FSStore) sign(path string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(path))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// resolve maps a logical blob path onto the filesystem, rejecting traversal
// out of the root.
func (s *FSStore) resolve(path string) (string, error) {
	if path == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "blob path must not be empty")
	}
	clean := filepath.Clean("/" + path)
	full := filepath.Join(s.root, clean)
	if !strings.HasPrefix(full, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "blob path escapes storage root")
	}
	return full, nil
}
