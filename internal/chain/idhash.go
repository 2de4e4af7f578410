package chain

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

// CredentialIDHash derives the fixed-width on-chain identifier for a
// credential: keccak-256 over the canonical string form of its ID. The string
// form (not raw UUID bytes) matches what contract tooling hashes.
func CredentialIDHash(credentialID id.CredentialID) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(credentialID.String()))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ContentHashWord converts the stored hex-encoded SHA-256 digest into the
// bytes32 representation the registry contract expects.
func ContentHashWord(hexDigest string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return out, dErrors.Wrap(dErrors.CodeInvalidInput, "content hash is not valid hex", err)
	}
	if len(raw) != 32 {
		return out, dErrors.New(dErrors.CodeInvalidInput, "content hash must be 32 bytes")
	}
	copy(out[:], raw)
	return out, nil
}
