package jobs

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"scratch-card.backend/internal/domain/entities"
	"scratch-card.backend/internal/metrics"
	"scratch-card.backend/pkg/logger"
)

const eventSyncCursor = "scratch_card_events"

// EventSource reads contract events from the chain.
type EventSource interface {
	Address() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	LatestBlock(ctx context.Context) (uint64, error)
	BlockTime(ctx context.Context, n uint64) (time.Time, error)
	ScratchPlayedEvents(ctx context.Context, player *common.Address, from uint64, to *uint64) ([]entities.ScratchPlayedEvent, error)
	RewardsClaimedEvents(ctx context.Context, player *common.Address, from uint64, to *uint64) ([]entities.RewardsClaimedEvent, error)
}

type RecordSink interface {
	Upsert(ctx context.Context, rec *entities.TransactionRecord) error
}

type CursorStore interface {
	Load(ctx context.Context, name string) (uint64, bool, error)
	Save(ctx context.Context, name string, block uint64) error
}

// EventSyncJob copies ScratchPlayed and RewardsClaimed events into the transaction log.
type EventSyncJob struct {
	source   EventSource
	sink     RecordSink
	cursor   CursorStore
	interval time.Duration
	lookback uint64
	maxRange uint64
	stop     chan struct{}
	stopOnce sync.Once
}

func NewEventSyncJob(source EventSource, sink RecordSink, cursor CursorStore, interval time.Duration, lookback, maxRange uint64) *EventSyncJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxRange == 0 {
		maxRange = 5000
	}
	return &EventSyncJob{
		source:   source,
		sink:     sink,
		cursor:   cursor,
		interval: interval,
		lookback: lookback,
		maxRange: maxRange,
		stop:     make(chan struct{}),
	}
}

func (j *EventSyncJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting event sync job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Event sync job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Event sync job stopped")
			return
		case <-ticker.C:
			n, err := j.RunOnce(ctx)
			metrics.EventSyncRecords.Add(float64(n))
			if err != nil {
				metrics.EventSyncErrors.Inc()
				logger.Error(ctx, "Event sync failed", zap.Error(err))
			}
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (j *EventSyncJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

// RunOnce syncs from the stored cursor (or latest minus lookback) to the latest block and returns the number of
// records written. The cursor advances only past fully written ranges.
func (j *EventSyncJob) RunOnce(ctx context.Context) (int, error) {
	latest, err := j.source.LatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	chainID, err := j.source.ChainID(ctx)
	if err != nil {
		return 0, err
	}

	from := uint64(0)
	if latest > j.lookback {
		from = latest - j.lookback
	}
	last, ok, err := j.cursor.Load(ctx, eventSyncCursor)
	if err != nil {
		return 0, err
	}
	if ok {
		if last >= latest {
			return 0, nil
		}
		from = last + 1
	}

	written := 0
	for start := from; start <= latest; start += j.maxRange {
		end := start + j.maxRange - 1
		if end > latest {
			end = latest
		}
		n, err := j.syncRange(ctx, chainID.Int64(), start, end)
		written += n
		if err != nil {
			return written, err
		}
		if err := j.cursor.Save(ctx, eventSyncCursor, end); err != nil {
			return written, err
		}
	}
	if written > 0 {
		logger.Info(ctx, "Synced contract events",
			zap.Int("records", written),
			zap.Uint64("from_block", from),
			zap.Uint64("to_block", latest),
		)
	}
	return written, nil
}

func (j *EventSyncJob) syncRange(ctx context.Context, chainID int64, from, to uint64) (int, error) {
	scratches, err := j.source.ScratchPlayedEvents(ctx, nil, from, &to)
	if err != nil {
		return 0, err
	}
	claims, err := j.source.RewardsClaimedEvents(ctx, nil, from, &to)
	if err != nil {
		return 0, err
	}

	contract := strings.ToLower(j.source.Address().Hex())
	times := map[uint64]time.Time{}
	blockTime := func(n uint64) (time.Time, error) {
		if ts, ok := times[n]; ok {
			return ts, nil
		}
		ts, err := j.source.BlockTime(ctx, n)
		if err != nil {
			return time.Time{}, err
		}
		times[n] = ts
		return ts, nil
	}

	written := 0
	for _, ev := range scratches {
		ts, err := blockTime(ev.BlockNumber)
		if err != nil {
			return written, err
		}
		rec := &entities.TransactionRecord{
			WalletAddress:   ev.Player,
			TxHash:          ev.TxHash,
			Action:          entities.ActionScratchReward,
			AmountWei:       ev.Reward.String(),
			ContractAddress: contract,
			ChainID:         chainID,
			OccurredAt:      ts,
		}
		if err := j.sink.Upsert(ctx, rec); err != nil {
			return written, err
		}
		written++
	}
	for _, ev := range claims {
		ts, err := blockTime(ev.BlockNumber)
		if err != nil {
			return written, err
		}
		rec := &entities.TransactionRecord{
			WalletAddress:   ev.Player,
			TxHash:          ev.TxHash,
			Action:          entities.ActionClaim,
			AmountWei:       ev.Amount.String(),
			ContractAddress: contract,
			ChainID:         chainID,
			OccurredAt:      ts,
		}
		if err := j.sink.Upsert(ctx, rec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
