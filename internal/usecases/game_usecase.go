package usecases

import (
	"context"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
	"scratch-card.backend/internal/domain/entities"
	domainerrors "scratch-card.backend/internal/domain/errors"
	"scratch-card.backend/internal/infrastructure/blockchain"
)

const (
	DefaultEventLookbackBlocks = 120000
	recentEventLimit           = 10
)

// GameUsecase builds read-only contract snapshots.
type GameUsecase struct {
	contract ScratchCardContract
	chain    NativeChain
	lookback uint64
	now      func() time.Time
}

func NewGameUsecase(contract ScratchCardContract, chain NativeChain, lookback uint64) *GameUsecase {
	if lookback == 0 {
		lookback = DefaultEventLookbackBlocks
	}
	return &GameUsecase{contract: contract, chain: chain, lookback: lookback, now: time.Now}
}

// State reads price, balances and pending rewards concurrently. With a player it also reads the player's claim
// status, balance and recent events.
func (u *GameUsecase) State(ctx context.Context, player string) (*entities.GameState, error) {
	var playerAddr *common.Address
	if player = strings.TrimSpace(player); player != "" {
		if !addressPattern.MatchString(player) {
			return nil, domainerrors.BadRequest("Invalid player address")
		}
		addr := common.HexToAddress(player)
		playerAddr = &addr
	}

	var (
		chainID                 *big.Int
		latest                  uint64
		price, balance, pending *big.Int
		status                  *entities.ClaimStatus
		playerBalance           *big.Int
		scratches               []entities.ScratchPlayedEvent
		claims                  []entities.RewardsClaimedEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { chainID, err = u.chain.ChainID(gctx); return })
	g.Go(func() (err error) { price, err = u.contract.ScratchPrice(gctx); return })
	g.Go(func() (err error) { balance, err = u.contract.ContractBalance(gctx); return })
	g.Go(func() (err error) { pending, err = u.contract.TotalPendingRewards(gctx); return })
	g.Go(func() (err error) {
		latest, err = u.contract.LatestBlock(gctx)
		if err != nil || playerAddr == nil {
			return err
		}
		from := uint64(0)
		if latest > u.lookback {
			from = latest - u.lookback
		}
		eg, ectx := errgroup.WithContext(gctx)
		eg.Go(func() (err error) { scratches, err = u.contract.ScratchPlayedEvents(ectx, playerAddr, from, &latest); return })
		eg.Go(func() (err error) { claims, err = u.contract.RewardsClaimedEvents(ectx, playerAddr, from, &latest); return })
		return eg.Wait()
	})
	if playerAddr != nil {
		g.Go(func() (err error) { status, err = u.contract.ClaimStatus(gctx, *playerAddr); return })
		g.Go(func() (err error) { playerBalance, err = u.chain.BalanceAt(gctx, *playerAddr); return })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	state := &entities.GameState{
		ContractAddress:    strings.ToLower(u.contract.Address().Hex()),
		ChainID:            chainID.Int64(),
		Network:            blockchain.NetworkName(chainID),
		LatestBlock:        latest,
		ScratchPriceWei:    price.String(),
		ContractBalanceWei: balance.String(),
		TotalPendingWei:    pending.String(),
		ObservedAt:         u.now().UTC(),
	}
	if playerAddr != nil {
		state.Player = &entities.PlayerState{
			Address:         strings.ToLower(playerAddr.Hex()),
			BalanceWei:      playerBalance.String(),
			ClaimableWei:    status.Claimable.String(),
			ClaimedWei:      status.Claimed.String(),
			LastRewardWei:   status.LastReward.String(),
			RecentScratches: recentScratches(scratches),
			RecentClaims:    recentClaims(claims),
		}
	}
	return state, nil
}

// recentScratches returns up to recentEventLimit events, newest first.
func recentScratches(events []entities.ScratchPlayedEvent) []entities.ScratchView {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber > events[j].BlockNumber
		}
		return events[i].LogIndex > events[j].LogIndex
	})
	out := make([]entities.ScratchView, 0, recentEventLimit)
	for _, ev := range events {
		if len(out) == recentEventLimit {
			break
		}
		out = append(out, entities.ScratchView{
			TxHash:            ev.TxHash,
			BlockNumber:       ev.BlockNumber,
			RewardWei:         ev.Reward.String(),
			ClaimableAfterWei: ev.ClaimableAfter.String(),
		})
	}
	return out
}

func recentClaims(events []entities.RewardsClaimedEvent) []entities.ClaimView {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber > events[j].BlockNumber
		}
		return events[i].LogIndex > events[j].LogIndex
	})
	out := make([]entities.ClaimView, 0, recentEventLimit)
	for _, ev := range events {
		if len(out) == recentEventLimit {
			break
		}
		out = append(out, entities.ClaimView{
			TxHash:      ev.TxHash,
			BlockNumber: ev.BlockNumber,
			AmountWei:   ev.Amount.String(),
		})
	}
	return out
}
