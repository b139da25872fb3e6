package usecases

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"scratch-card.backend/internal/domain/entities"
	"scratch-card.backend/internal/infrastructure/blockchain"
)

// ScratchCardContract is the game contract as the usecases see it. *blockchain.ScratchCardClient satisfies it.
type ScratchCardContract interface {
	Address() common.Address
	EnsureDeployed(ctx context.Context) error
	Owner(ctx context.Context) (common.Address, error)
	ScratchPrice(ctx context.Context) (*big.Int, error)
	ContractBalance(ctx context.Context) (*big.Int, error)
	TotalPendingRewards(ctx context.Context) (*big.Int, error)
	ClaimStatus(ctx context.Context, player common.Address) (*entities.ClaimStatus, error)
	LatestBlock(ctx context.Context) (uint64, error)
	ScratchPlayedEvents(ctx context.Context, player *common.Address, from uint64, to *uint64) ([]entities.ScratchPlayedEvent, error)
	RewardsClaimedEvents(ctx context.Context, player *common.Address, from uint64, to *uint64) ([]entities.RewardsClaimedEvent, error)
	Scratch(ctx context.Context, key *ecdsa.PrivateKey, value *big.Int) (*blockchain.PendingTx, error)
	Claim(ctx context.Context, key *ecdsa.PrivateKey, amount *big.Int) (*blockchain.PendingTx, error)
	ScratchReward(receipt *types.Receipt) *big.Int
	WaitForRewardsClaimed(ctx context.Context, player common.Address, fromBlock uint64, attempts int, interval time.Duration) (*entities.RewardsClaimedEvent, error)
}

// NativeChain covers chain-level reads and plain value transfers. *blockchain.EVMClient satisfies it.
type NativeChain interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
	Transfer(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int) (*blockchain.PendingTx, error)
}

var (
	_ ScratchCardContract = (*blockchain.ScratchCardClient)(nil)
	_ NativeChain         = (*blockchain.EVMClient)(nil)
)
