// Package registry holds the shared contract surface of the on-chain
// CredentialRegistry: the ABI the client binds against and the record shape
// the contract stores per credential.
package registry

// ABI is the application binary interface of the CredentialRegistry contract.
// The contract keys records by the keccak-256 hash of the credential
// identifier and stores the SHA-256 content digest as a bytes32 word.
const ABI = `[
  {
    "name": "issueCredential",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "idHash", "type": "bytes32"},
      {"name": "contentHash", "type": "bytes32"}
    ],
    "outputs": []
  },
  {
    "name": "revokeCredential",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "idHash", "type": "bytes32"}
    ],
    "outputs": []
  },
  {
    "name": "getCredential",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      {"name": "idHash", "type": "bytes32"}
    ],
    "outputs": [
      {"name": "exists", "type": "bool"},
      {"name": "contentHash", "type": "bytes32"},
      {"name": "revoked", "type": "bool"}
    ]
  }
]`

// Record is the on-chain state for one credential as returned by
// getCredential.
type Record struct {
	Exists      bool
	ContentHash [32]byte
	Revoked     bool
}
