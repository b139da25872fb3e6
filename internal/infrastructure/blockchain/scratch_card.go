package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"scratch-card.backend/internal/domain/entities"
)

// ScratchCardABI is the game contract interface.
const ScratchCardABI = `[
	{"inputs":[],"name":"ZamaProtocolUnsupported","type":"error"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"owner","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"OwnerWithdraw","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"player","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"RewardsClaimed","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"player","type":"address"},{"indexed":false,"internalType":"uint128","name":"reward","type":"uint128"},{"indexed":false,"internalType":"uint128","name":"claimableAfter","type":"uint128"}],"name":"ScratchPlayed","type":"event"},
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"claimableRewards","outputs":[{"internalType":"uint128","name":"","type":"uint128"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"claimedRewards","outputs":[{"internalType":"uint128","name":"","type":"uint128"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"confidentialProtocolId","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"owner","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint128","name":"amount","type":"uint128"}],"name":"claimRewards","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"player","type":"address"}],"name":"getClaimStatus","outputs":[{"internalType":"uint128","name":"claimable","type":"uint128"},{"internalType":"uint128","name":"claimed","type":"uint128"},{"internalType":"uint128","name":"lastReward","type":"uint128"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"scratchCard","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"lastScratchReward","outputs":[{"internalType":"uint128","name":"","type":"uint128"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"scratchPrice","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"newPrice","type":"uint256"}],"name":"setScratchPrice","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"totalPendingPlain","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"withdrawProfit","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"stateMutability":"payable","type":"receive"}
]`

var (
	scratchCardABI = mustParseABI(ScratchCardABI)

	// MaxUint128 bounds claim amounts.
	MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	ErrContractNotDeployed = errors.New("no contract code at address")
	ErrAmountOutOfRange    = errors.New("amount exceeds uint128")
)

// ScratchCardClient is the facade over the game contract.
type ScratchCardClient struct {
	evm      *EVMClient
	address  common.Address
	contract *bind.BoundContract
}

func NewScratchCardClient(evm *EVMClient, address common.Address) *ScratchCardClient {
	b := evm.Backend()
	return &ScratchCardClient{
		evm:      evm,
		address:  address,
		contract: bind.NewBoundContract(address, scratchCardABI, b, b, b),
	}
}

func (c *ScratchCardClient) Address() common.Address { return c.address }

func (c *ScratchCardClient) EVM() *EVMClient { return c.evm }

// EnsureDeployed fails with ErrContractNotDeployed when the address holds no code.
func (c *ScratchCardClient) EnsureDeployed(ctx context.Context) error {
	code, err := c.evm.CodeAt(ctx, c.address)
	if err != nil {
		return fmt.Errorf("code at %s: %w", c.address.Hex(), err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w %s", ErrContractNotDeployed, c.address.Hex())
	}
	return nil
}

func (c *ScratchCardClient) Owner(ctx context.Context) (common.Address, error) {
	return callTypedView[common.Address](ctx, c.evm, c.address, scratchCardABI, "owner")
}

func (c *ScratchCardClient) ScratchPrice(ctx context.Context) (*big.Int, error) {
	return callTypedView[*big.Int](ctx, c.evm, c.address, scratchCardABI, "scratchPrice")
}

func (c *ScratchCardClient) TotalPendingRewards(ctx context.Context) (*big.Int, error) {
	return callTypedView[*big.Int](ctx, c.evm, c.address, scratchCardABI, "totalPendingPlain")
}

func (c *ScratchCardClient) ContractBalance(ctx context.Context) (*big.Int, error) {
	return c.evm.BalanceAt(ctx, c.address)
}

func (c *ScratchCardClient) ClaimStatus(ctx context.Context, player common.Address) (*entities.ClaimStatus, error) {
	data, err := scratchCardABI.Pack("getClaimStatus", player)
	if err != nil {
		return nil, err
	}
	out, err := c.evm.CallView(ctx, c.address, data)
	if err != nil {
		return nil, DecodeContractError("getClaimStatus", err)
	}
	vals, err := scratchCardABI.Unpack("getClaimStatus", out)
	if err != nil || len(vals) != 3 {
		return nil, fmt.Errorf("failed to decode getClaimStatus")
	}
	claimable, ok1 := vals[0].(*big.Int)
	claimed, ok2 := vals[1].(*big.Int)
	last, ok3 := vals[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("invalid getClaimStatus return type")
	}
	return &entities.ClaimStatus{Claimable: claimable, Claimed: claimed, LastReward: last}, nil
}

func (c *ScratchCardClient) LatestBlock(ctx context.Context) (uint64, error) {
	return c.evm.BlockNumber(ctx)
}

// ScratchPlayedEvents returns ScratchPlayed logs in [from, to]. A nil player matches every player, a nil to means latest.
func (c *ScratchCardClient) ScratchPlayedEvents(ctx context.Context, player *common.Address, from uint64, to *uint64) ([]entities.ScratchPlayedEvent, error) {
	logs, err := c.filter(ctx, "ScratchPlayed", player, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]entities.ScratchPlayedEvent, 0, len(logs))
	for _, lg := range logs {
		ev, err := decodeScratchPlayed(lg)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, nil
}

// RewardsClaimedEvents returns RewardsClaimed logs in [from, to].
func (c *ScratchCardClient) RewardsClaimedEvents(ctx context.Context, player *common.Address, from uint64, to *uint64) ([]entities.RewardsClaimedEvent, error) {
	logs, err := c.filter(ctx, "RewardsClaimed", player, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]entities.RewardsClaimedEvent, 0, len(logs))
	for _, lg := range logs {
		ev, err := decodeRewardsClaimed(lg)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, nil
}

func (c *ScratchCardClient) filter(ctx context.Context, event string, player *common.Address, from uint64, to *uint64) ([]types.Log, error) {
	topics := [][]common.Hash{{scratchCardABI.Events[event].ID}}
	if player != nil {
		topics = append(topics, []common.Hash{common.BytesToHash(player.Bytes())})
	}
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: []common.Address{c.address},
		Topics:    topics,
	}
	if to != nil {
		q.ToBlock = new(big.Int).SetUint64(*to)
	}
	logs, err := c.evm.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter %s logs: %w", event, err)
	}
	return logs, nil
}

// Scratch buys one card from key's account, paying value.
func (c *ScratchCardClient) Scratch(ctx context.Context, key *ecdsa.PrivateKey, value *big.Int) (*PendingTx, error) {
	return c.transact(ctx, key, value, "scratchCard")
}

// Claim withdraws amount of the caller's claimable rewards.
func (c *ScratchCardClient) Claim(ctx context.Context, key *ecdsa.PrivateKey, amount *big.Int) (*PendingTx, error) {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(MaxUint128) > 0 {
		return nil, ErrAmountOutOfRange
	}
	return c.transact(ctx, key, nil, "claimRewards", amount)
}

func (c *ScratchCardClient) SetScratchPrice(ctx context.Context, key *ecdsa.PrivateKey, price *big.Int) (*PendingTx, error) {
	return c.transact(ctx, key, nil, "setScratchPrice", price)
}

func (c *ScratchCardClient) WithdrawProfit(ctx context.Context, key *ecdsa.PrivateKey, amount *big.Int) (*PendingTx, error) {
	return c.transact(ctx, key, nil, "withdrawProfit", amount)
}

func (c *ScratchCardClient) transact(ctx context.Context, key *ecdsa.PrivateKey, value *big.Int, method string, args ...interface{}) (*PendingTx, error) {
	opts, err := c.evm.Transactor(ctx, key)
	if err != nil {
		return nil, err
	}
	if value != nil {
		opts.Value = value
	}
	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		return nil, DecodeContractError(method, err)
	}
	return c.evm.pending(method, tx.Hash()), nil
}

// ScratchReward returns the reward of the first ScratchPlayed log in receipt, or zero.
func (c *ScratchCardClient) ScratchReward(receipt *types.Receipt) *big.Int {
	if receipt == nil {
		return new(big.Int)
	}
	id := scratchCardABI.Events["ScratchPlayed"].ID
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != c.address || len(lg.Topics) == 0 || lg.Topics[0] != id {
			continue
		}
		ev, err := decodeScratchPlayed(*lg)
		if err != nil {
			continue
		}
		return ev.Reward
	}
	return new(big.Int)
}

// WaitForRewardsClaimed polls up to attempts times for a RewardsClaimed log of player at or after fromBlock.
// It returns nil, nil when none shows up.
func (c *ScratchCardClient) WaitForRewardsClaimed(ctx context.Context, player common.Address, fromBlock uint64, attempts int, interval time.Duration) (*entities.RewardsClaimedEvent, error) {
	for i := 0; i < attempts; i++ {
		events, err := c.RewardsClaimedEvents(ctx, &player, fromBlock, nil)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			ev := events[len(events)-1]
			return &ev, nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, nil
}

func decodeScratchPlayed(lg types.Log) (*entities.ScratchPlayedEvent, error) {
	if len(lg.Topics) < 2 {
		return nil, fmt.Errorf("ScratchPlayed log without player topic")
	}
	vals, err := scratchCardABI.Events["ScratchPlayed"].Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil || len(vals) != 2 {
		return nil, fmt.Errorf("failed to decode ScratchPlayed")
	}
	reward, ok1 := vals[0].(*big.Int)
	after, ok2 := vals[1].(*big.Int)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("invalid ScratchPlayed field types")
	}
	return &entities.ScratchPlayedEvent{
		Player:         strings.ToLower(common.BytesToAddress(lg.Topics[1].Bytes()).Hex()),
		Reward:         reward,
		ClaimableAfter: after,
		TxHash:         strings.ToLower(lg.TxHash.Hex()),
		BlockNumber:    lg.BlockNumber,
		LogIndex:       lg.Index,
	}, nil
}

func decodeRewardsClaimed(lg types.Log) (*entities.RewardsClaimedEvent, error) {
	if len(lg.Topics) < 2 {
		return nil, fmt.Errorf("RewardsClaimed log without player topic")
	}
	vals, err := scratchCardABI.Events["RewardsClaimed"].Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil || len(vals) != 1 {
		return nil, fmt.Errorf("failed to decode RewardsClaimed")
	}
	amount, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("invalid RewardsClaimed field types")
	}
	return &entities.RewardsClaimedEvent{
		Player:      strings.ToLower(common.BytesToAddress(lg.Topics[1].Bytes()).Hex()),
		Amount:      amount,
		TxHash:      strings.ToLower(lg.TxHash.Hex()),
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
	}, nil
}

func callTypedView[T any](
	ctx context.Context,
	client *EVMClient,
	contractAddress common.Address,
	parsedABI abi.ABI,
	method string,
	args ...interface{},
) (T, error) {
	var zero T

	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return zero, err
	}
	out, err := client.CallView(ctx, contractAddress, data)
	if err != nil {
		return zero, DecodeContractError(method, err)
	}
	vals, err := parsedABI.Unpack(method, out)
	if err != nil || len(vals) == 0 {
		return zero, fmt.Errorf("failed to decode %s", method)
	}
	value, ok := vals[0].(T)
	if !ok {
		return zero, fmt.Errorf("invalid %s return type", method)
	}
	return value, nil
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

func (c *ScratchCardClient) ChainID(ctx context.Context) (*big.Int, error) {
	return c.evm.ChainID(ctx)
}

func (c *ScratchCardClient) BlockTime(ctx context.Context, n uint64) (time.Time, error) {
	return c.evm.BlockTime(ctx, n)
}
