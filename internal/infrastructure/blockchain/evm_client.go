package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	domainerrors "scratch-card.backend/internal/domain/errors"
)

const nativeTransferGas = 21000

var (
	dialEVMClient = func(rpcURL string) (Backend, error) {
		return ethclient.Dial(rpcURL)
	}
	defaultReceiptPoll = 2 * time.Second
)

// Backend is the part of an Ethereum JSON-RPC client the service uses.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// EVMClient provides EVM blockchain interaction
type EVMClient struct {
	backend     Backend
	rpcURL      string
	receiptPoll time.Duration
	closer      func()

	mu      sync.Mutex
	chainID *big.Int
}

// NewEVMClient dials rpcURL. chainID may be nil, in which case it is read from the node on first use.
func NewEVMClient(rpcURL string, chainID *big.Int) (*EVMClient, error) {
	backend, err := dialEVMClient(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrProviderUnavailable, err)
	}
	c := NewEVMClientWithBackend(backend, chainID)
	c.rpcURL = rpcURL
	if closer, ok := backend.(interface{ Close() }); ok {
		c.closer = closer.Close
	}
	return c, nil
}

// NewEVMClientWithBackend wraps an existing backend. Used by tests with in-memory backends.
func NewEVMClientWithBackend(backend Backend, chainID *big.Int) *EVMClient {
	c := &EVMClient{
		backend:     backend,
		receiptPoll: defaultReceiptPoll,
	}
	if chainID != nil && chainID.Sign() > 0 {
		c.chainID = new(big.Int).Set(chainID)
	}
	return c
}

// SetReceiptPollInterval changes how often Wait polls for receipts.
func (c *EVMClient) SetReceiptPollInterval(d time.Duration) {
	if d > 0 {
		c.receiptPoll = d
	}
}

func (c *EVMClient) Backend() Backend { return c.backend }

func (c *EVMClient) RPCURL() string { return c.rpcURL }

// ChainID returns the chain ID, asking the node once.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID != nil {
		return new(big.Int).Set(c.chainID), nil
	}
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: chain id: %v", domainerrors.ErrProviderUnavailable, err)
	}
	c.chainID = id
	return new(big.Int).Set(id), nil
}

// NetworkName maps well-known chain ids to their names.
func (c *EVMClient) NetworkName(ctx context.Context) (string, error) {
	id, err := c.ChainID(ctx)
	if err != nil {
		return "", err
	}
	return NetworkName(id), nil
}

func NetworkName(chainID *big.Int) string {
	if chainID == nil || !chainID.IsUint64() {
		return "unknown"
	}
	switch chainID.Uint64() {
	case 1:
		return "mainnet"
	case 11155111:
		return "sepolia"
	case 17000:
		return "holesky"
	case 31337:
		return "hardhat"
	case 1337:
		return "localhost"
	case 8453:
		return "base"
	case 84532:
		return "base-sepolia"
	default:
		return "unknown"
	}
}

// BalanceAt gets the latest native balance of an address
func (c *EVMClient) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	bal, err := c.backend.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", address.Hex(), err)
	}
	return bal, nil
}

func (c *EVMClient) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	return c.backend.CodeAt(ctx, address, nil)
}

// BlockNumber gets the latest block number
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.backend.BlockNumber(ctx)
}

// BlockTime returns the timestamp of block n.
func (c *EVMClient) BlockTime(ctx context.Context, n uint64) (time.Time, error) {
	header, err := c.backend.HeaderByNumber(ctx, new(big.Int).SetUint64(n))
	if err != nil {
		return time.Time{}, fmt.Errorf("header %d: %w", n, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// CallView executes a read-only contract call
func (c *EVMClient) CallView(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}
	return c.backend.CallContract(ctx, msg, nil)
}

func (c *EVMClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.backend.FilterLogs(ctx, q)
}

// Transfer sends value wei from key's account to a plain address with a legacy 21000-gas transaction.
func (c *EVMClient) Transfer(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int) (*PendingTx, error) {
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("nonce for %s: %w", from.Hex(), err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      nativeTransferGas,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign transfer: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, DecodeContractError("transfer", err)
	}
	return c.pending("transfer", signed.Hash()), nil
}

// Transactor builds signing options for key on this chain.
func (c *EVMClient) Transactor(ctx context.Context, key *ecdsa.PrivateKey) (*bind.TransactOpts, error) {
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// WaitMined polls for the receipt of hash until it exists or ctx ends.
// A receipt with failed status is returned together with ErrTransactionReverted.
func (c *EVMClient) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.receiptPoll)
	defer ticker.Stop()
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, hash.Hex())
			}
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *EVMClient) pending(op string, hash common.Hash) *PendingTx {
	return NewPendingTx(hash, func(ctx context.Context) (*types.Receipt, error) {
		receipt, err := c.WaitMined(ctx, hash)
		if errors.Is(err, ErrTransactionReverted) {
			return receipt, &ContractError{Op: op, Reason: op + " transaction reverted: " + hash.Hex(), Err: err}
		}
		return receipt, err
	})
}

// Close closes the client connection
func (c *EVMClient) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// PendingTx is a submitted transaction. Its hash is known before it is mined.
type PendingTx struct {
	Hash        common.Hash
	SubmittedAt time.Time
	wait        func(ctx context.Context) (*types.Receipt, error)
}

func NewPendingTx(hash common.Hash, wait func(ctx context.Context) (*types.Receipt, error)) *PendingTx {
	return &PendingTx{Hash: hash, SubmittedAt: time.Now().UTC(), wait: wait}
}

// Wait blocks until the transaction is confirmed.
func (p *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	if p.wait == nil {
		return nil, errors.New("pending transaction has no waiter")
	}
	return p.wait(ctx)
}
