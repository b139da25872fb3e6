package repositories

import (
	"context"

	"scratch-card.backend/internal/domain/entities"
)

// TransactionRepository defines transaction log data operations
type TransactionRepository interface {
	// Upsert inserts rec or overwrites the row with the same tx hash.
	Upsert(ctx context.Context, rec *entities.TransactionRecord) error
	// Leaderboard returns wallets ranked by total won, scratch count, then last activity.
	Leaderboard(ctx context.Context, offset, limit int) ([]*entities.WalletStats, error)
	CountWallets(ctx context.Context) (int64, error)
	PlatformStats(ctx context.Context) (*entities.PlatformStats, error)
	// WalletStats returns nil, nil for a wallet with no records.
	WalletStats(ctx context.Context, wallet string) (*entities.WalletStats, error)
	RecentByWallet(ctx context.Context, wallet string, limit int) ([]*entities.TransactionRecord, error)
}
