package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/creerlio2026/creerlio-platform-sub005/contracts/registry"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/config"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

// explorerTxURLs maps chain/network pairs to their block-explorer tx prefix.
var explorerTxURLs = map[string]string{
	"ethereum/mainnet": "https://etherscan.io/tx/",
	"ethereum/sepolia": "https://sepolia.etherscan.io/tx/",
	"polygon/mainnet":  "https://polygonscan.com/tx/",
	"polygon/amoy":     "https://amoy.polygonscan.com/tx/",
	"base/mainnet":     "https://basescan.org/tx/",
	"base/sepolia":     "https://sepolia.basescan.org/tx/",
}

// EthClient talks to the CredentialRegistry contract over JSON-RPC.
type EthClient struct {
	client    *ethclient.Client
	contract  *bind.BoundContract
	key       *ecdsa.PrivateKey
	chainName string
	network   string

	mu      sync.Mutex // serializes transactions so nonces stay ordered
	chainID *big.Int
}

// NewEthClient dials the RPC endpoint and binds the registry contract.
func NewEthClient(ctx context.Context, cfg config.ChainConfig) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "chain rpc url is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "contract address is not a valid hex address")
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse signer key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(registry.ABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}

	addr := common.HexToAddress(cfg.ContractAddress)
	contract := bind.NewBoundContract(addr, parsed, client, client, client)

	return &EthClient{
		client:    client,
		contract:  contract,
		key:       key,
		chainName: cfg.ChainName,
		network:   cfg.Network,
		chainID:   chainID,
	}, nil
}

func (c *EthClient) Issue(ctx context.Context, idHash, contentHash [32]byte) (Receipt, error) {
	return c.transact(ctx, "issueCredential", idHash, contentHash)
}

func (c *EthClient) Revoke(ctx context.Context, idHash [32]byte) (Receipt, error) {
	return c.transact(ctx, "revokeCredential", idHash)
}

func (c *EthClient) Read(ctx context.Context, idHash [32]byte) (registry.Record, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCredential", idHash)
	if err != nil {
		return registry.Record{}, fmt.Errorf("call getCredential: %w", err)
	}
	if len(out) != 3 {
		return registry.Record{}, fmt.Errorf("getCredential returned %d values, want 3", len(out))
	}
	record := registry.Record{}
	var ok bool
	if record.Exists, ok = out[0].(bool); !ok {
		return registry.Record{}, fmt.Errorf("getCredential exists: unexpected type %T", out[0])
	}
	if record.ContentHash, ok = out[1].([32]byte); !ok {
		return registry.Record{}, fmt.Errorf("getCredential contentHash: unexpected type %T", out[1])
	}
	if record.Revoked, ok = out[2].(bool); !ok {
		return registry.Record{}, fmt.Errorf("getCredential revoked: unexpected type %T", out[2])
	}
	return record, nil
}

// TxURL formats a block-explorer link; falls back to the bare hash for
// unmapped networks.
func (c *EthClient) TxURL(txHash string) string {
	if prefix, ok := explorerTxURLs[c.chainName+"/"+c.network]; ok {
		return prefix + txHash
	}
	return txHash
}

// Close releases the underlying RPC connection.
func (c *EthClient) Close() {
	c.client.Close()
}

// transact submits a state-changing registry call and waits for inclusion.
// The caller's context bounds the whole submit-and-wait sequence.
func (c *EthClient) transact(ctx context.Context, method string, args ...interface{}) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return Receipt{}, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		return Receipt{}, fmt.Errorf("submit %s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		return Receipt{}, fmt.Errorf("await %s confirmation: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return Receipt{}, fmt.Errorf("%s reverted in tx %s", method, receipt.TxHash.Hex())
	}

	return c.buildReceipt(ctx, receipt)
}

func (c *EthClient) buildReceipt(ctx context.Context, receipt *types.Receipt) (Receipt, error) {
	out := Receipt{
		TxHash:        receipt.TxHash.Hex(),
		BlockNumber:   receipt.BlockNumber.Uint64(),
		GasUsed:       receipt.GasUsed,
		Confirmations: 1,
	}

	head, err := c.client.BlockNumber(ctx)
	if err == nil && head >= out.BlockNumber {
		out.Confirmations = head - out.BlockNumber + 1
	}

	header, err := c.client.HeaderByNumber(ctx, receipt.BlockNumber)
	if err == nil {
		out.BlockTime = time.Unix(int64(header.Time), 0).UTC()
	}

	return out, nil
}
