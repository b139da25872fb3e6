package usecases_test

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
	"scratch-card.backend/internal/domain/entities"
	"scratch-card.backend/internal/infrastructure/blockchain"
)

// Mock TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Upsert(ctx context.Context, rec *entities.TransactionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockTransactionRepository) Leaderboard(ctx context.Context, offset, limit int) ([]*entities.WalletStats, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WalletStats), args.Error(1)
}

func (m *MockTransactionRepository) CountWallets(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) PlatformStats(ctx context.Context) (*entities.PlatformStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlatformStats), args.Error(1)
}

func (m *MockTransactionRepository) WalletStats(ctx context.Context, wallet string) (*entities.WalletStats, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WalletStats), args.Error(1)
}

func (m *MockTransactionRepository) RecentByWallet(ctx context.Context, wallet string, limit int) ([]*entities.TransactionRecord, error) {
	args := m.Called(ctx, wallet, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TransactionRecord), args.Error(1)
}

// Mock ScratchCardContract
type MockScratchCardContract struct {
	mock.Mock
}

func (m *MockScratchCardContract) Address() common.Address {
	args := m.Called()
	return args.Get(0).(common.Address)
}

func (m *MockScratchCardContract) EnsureDeployed(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockScratchCardContract) Owner(ctx context.Context) (common.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).(common.Address), args.Error(1)
}

func (m *MockScratchCardContract) ScratchPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	return bigArg(args, 0), args.Error(1)
}

func (m *MockScratchCardContract) ContractBalance(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	return bigArg(args, 0), args.Error(1)
}

func (m *MockScratchCardContract) TotalPendingRewards(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	return bigArg(args, 0), args.Error(1)
}

func (m *MockScratchCardContract) ClaimStatus(ctx context.Context, player common.Address) (*entities.ClaimStatus, error) {
	args := m.Called(ctx, player)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ClaimStatus), args.Error(1)
}

func (m *MockScratchCardContract) LatestBlock(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockScratchCardContract) ScratchPlayedEvents(ctx context.Context, player *common.Address, from uint64, to *uint64) ([]entities.ScratchPlayedEvent, error) {
	args := m.Called(ctx, player, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.ScratchPlayedEvent), args.Error(1)
}

func (m *MockScratchCardContract) RewardsClaimedEvents(ctx context.Context, player *common.Address, from uint64, to *uint64) ([]entities.RewardsClaimedEvent, error) {
	args := m.Called(ctx, player, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RewardsClaimedEvent), args.Error(1)
}

func (m *MockScratchCardContract) Scratch(ctx context.Context, key *ecdsa.PrivateKey, value *big.Int) (*blockchain.PendingTx, error) {
	args := m.Called(ctx, key, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blockchain.PendingTx), args.Error(1)
}

func (m *MockScratchCardContract) Claim(ctx context.Context, key *ecdsa.PrivateKey, amount *big.Int) (*blockchain.PendingTx, error) {
	args := m.Called(ctx, key, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blockchain.PendingTx), args.Error(1)
}

func (m *MockScratchCardContract) ScratchReward(receipt *types.Receipt) *big.Int {
	return bigArg(m.Called(receipt), 0)
}

func (m *MockScratchCardContract) WaitForRewardsClaimed(ctx context.Context, player common.Address, fromBlock uint64, attempts int, interval time.Duration) (*entities.RewardsClaimedEvent, error) {
	args := m.Called(ctx, player, fromBlock, attempts, interval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RewardsClaimedEvent), args.Error(1)
}

// Mock NativeChain
type MockNativeChain struct {
	mock.Mock
}

func (m *MockNativeChain) ChainID(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	return bigArg(args, 0), args.Error(1)
}

func (m *MockNativeChain) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	args := m.Called(ctx, address)
	return bigArg(args, 0), args.Error(1)
}

func (m *MockNativeChain) Transfer(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int) (*blockchain.PendingTx, error) {
	args := m.Called(ctx, key, to, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blockchain.PendingTx), args.Error(1)
}

func bigArg(args mock.Arguments, i int) *big.Int {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*big.Int)
}
