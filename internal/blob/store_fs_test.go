package blob

import (
	"context"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir(), "https://creerl.io/files", "test-signing-secret")
	require.NoError(t, err)
	return store
}

func TestFSStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Put(ctx, "owner/cred/certificate.pdf", []byte("contents"), "application/pdf")
	require.NoError(t, err)

	data, err := store.Get(ctx, "owner/cred/certificate.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("contents"), data)

	require.NoError(t, store.Delete(ctx, "owner/cred/certificate.pdf"))
	_, err = store.Get(ctx, "owner/cred/certificate.pdf")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestFSStoreConfinesTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Leading dot-dot segments are stripped, keeping writes inside the root.
	require.NoError(t, store.Put(ctx, "../outside.txt", []byte("x"), ""))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(store.root), "outside.txt"))

	data, err := store.Get(ctx, "outside.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	_, err = store.Get(ctx, "../../etc/passwd")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	t.Run("empty path is invalid", func(t *testing.T) {
		_, err := store.Get(ctx, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// parseSignedURL extracts path, exp, and sig from a SignedReadURL result.
func parseSignedURL(t *testing.T, raw string) (path string, exp int64, sig string) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	path = strings.TrimPrefix(u.Path, "/files/")
	exp, err = strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	require.NoError(t, err)
	return path, exp, u.Query().Get("sig")
}

func TestSignedReadURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, "owner/cred/file.pdf", []byte("x"), ""))

	raw, err := store.SignedReadURL("owner/cred/file.pdf", 15*time.Minute)
	require.NoError(t, err)
	path, exp, sig := parseSignedURL(t, raw)
	assert.Equal(t, "owner/cred/file.pdf", path)

	t.Run("valid signature within ttl", func(t *testing.T) {
		assert.NoError(t, store.VerifyReadRequest(path, exp, sig, now))
	})

	t.Run("expired url is rejected", func(t *testing.T) {
		err := store.VerifyReadRequest(path, exp, sig, now.Add(16*time.Minute))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("tampered signature is rejected", func(t *testing.T) {
		err := store.VerifyReadRequest(path, exp, "deadbeef", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("signature does not transfer to another path", func(t *testing.T) {
		err := store.VerifyReadRequest("owner/cred/other.pdf", exp, sig, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("extended expiry invalidates the signature", func(t *testing.T) {
		err := store.VerifyReadRequest(path, exp+3600, sig, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
