package repositories

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"scratch-card.backend/internal/domain/entities"
	"scratch-card.backend/internal/infrastructure/models"
)

// Sums are computed as NUMERIC so totals beyond 2^53 stay exact.
const walletAggregateColumns = `wallet_address,
	COALESCE(SUM(CASE WHEN action = 'scratch_reward' THEN CAST(amount_wei AS NUMERIC) ELSE 0 END), 0) AS total_won_wei,
	COALESCE(SUM(CASE WHEN action = 'claim' THEN CAST(amount_wei AS NUMERIC) ELSE 0 END), 0) AS total_claimed_wei,
	SUM(CASE WHEN action = 'scratch_reward' THEN 1 ELSE 0 END) AS scratch_count,
	SUM(CASE WHEN action = 'claim' THEN 1 ELSE 0 END) AS claim_count,
	COUNT(*) AS tx_count,
	MAX(occurred_at) AS last_activity`

const platformStatsColumns = `COUNT(DISTINCT wallet_address) AS total_users,
	COALESCE(SUM(CASE WHEN action = 'scratch_reward' THEN 1 ELSE 0 END), 0) AS total_scratch_cards,
	COUNT(*) AS total_transactions,
	COALESCE(SUM(CASE WHEN action = 'claim' THEN CAST(amount_wei AS NUMERIC) ELSE 0 END), 0) AS total_claimed_wei`

// TransactionRepository implements the transaction log on gorm
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Upsert writes rec keyed by tx hash. A repeated hash overwrites every field but the id and createdAt.
func (r *TransactionRepository) Upsert(ctx context.Context, rec *entities.TransactionRecord) error {
	m := toTransactionModel(rec)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tx_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"wallet_address", "action", "amount_wei", "contract_address", "chain_id", "occurred_at", "updated_at",
			}),
		}).
		Create(m).Error
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", rec.TxHash, err)
	}
	return nil
}

func (r *TransactionRepository) Leaderboard(ctx context.Context, offset, limit int) ([]*entities.WalletStats, error) {
	var rows []walletAggregateRow
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select(walletAggregateColumns).
		Group("wallet_address").
		Order("total_won_wei DESC").
		Order("scratch_count DESC").
		Order("last_activity DESC").
		Order("wallet_address ASC").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}

	out := make([]*entities.WalletStats, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}

func (r *TransactionRepository) CountWallets(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).Distinct("wallet_address").Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count wallets: %w", err)
	}
	return total, nil
}

func (r *TransactionRepository) PlatformStats(ctx context.Context) (*entities.PlatformStats, error) {
	var row struct {
		TotalUsers        int64
		TotalScratchCards int64
		TotalTransactions int64
		TotalClaimedWei   decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).Select(platformStatsColumns).Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}
	return &entities.PlatformStats{
		TotalUsers:        row.TotalUsers,
		TotalScratchCards: row.TotalScratchCards,
		TotalTransactions: row.TotalTransactions,
		TotalClaimedWei:   row.TotalClaimedWei.String(),
	}, nil
}

func (r *TransactionRepository) WalletStats(ctx context.Context, wallet string) (*entities.WalletStats, error) {
	var rows []walletAggregateRow
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select(walletAggregateColumns).
		Where("wallet_address = ?", strings.ToLower(wallet)).
		Group("wallet_address").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("wallet stats: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toEntity(), nil
}

func (r *TransactionRepository) RecentByWallet(ctx context.Context, wallet string, limit int) ([]*entities.TransactionRecord, error) {
	var ms []models.Transaction
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", strings.ToLower(wallet)).
		Order("occurred_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}

	out := make([]*entities.TransactionRecord, 0, len(ms))
	for i := range ms {
		out = append(out, toTransactionEntity(&ms[i]))
	}
	return out, nil
}

type walletAggregateRow struct {
	WalletAddress   string
	TotalWonWei     decimal.Decimal
	TotalClaimedWei decimal.Decimal
	ScratchCount    int64
	ClaimCount      int64
	TxCount         int64
	LastActivity    aggregateTime
}

func (row *walletAggregateRow) toEntity() *entities.WalletStats {
	s := &entities.WalletStats{
		WalletAddress:   row.WalletAddress,
		TotalWonWei:     row.TotalWonWei.String(),
		TotalClaimedWei: row.TotalClaimedWei.String(),
		ScratchCount:    row.ScratchCount,
		ClaimCount:      row.ClaimCount,
		TxCount:         row.TxCount,
	}
	if row.LastActivity.Valid {
		s.LastActivity = null.TimeFrom(row.LastActivity.Time.UTC())
	}
	return s
}

// sqlite returns MAX() over a datetime column as text, postgres as a timestamp.
var aggregateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

type aggregateTime struct {
	Time  time.Time
	Valid bool
}

func (t *aggregateTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported time value %T", value)
	}
}

func (t aggregateTime) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time, nil
}

func (t *aggregateTime) parse(s string) error {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	for _, layout := range aggregateTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", s)
}

func toTransactionModel(rec *entities.TransactionRecord) *models.Transaction {
	now := time.Now().UTC()
	return &models.Transaction{
		WalletAddress:   rec.WalletAddress,
		TxHash:          rec.TxHash,
		Action:          string(rec.Action),
		AmountWei:       rec.AmountWei,
		ContractAddress: rec.ContractAddress,
		ChainID:         rec.ChainID,
		OccurredAt:      rec.OccurredAt.UTC(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func toTransactionEntity(m *models.Transaction) *entities.TransactionRecord {
	return &entities.TransactionRecord{
		WalletAddress:   m.WalletAddress,
		TxHash:          m.TxHash,
		Action:          entities.TransactionAction(m.Action),
		AmountWei:       m.AmountWei,
		ContractAddress: m.ContractAddress,
		ChainID:         m.ChainID,
		OccurredAt:      m.OccurredAt.UTC(),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
