package usecases

import (
	"context"
	"regexp"
	"strings"

	"scratch-card.backend/internal/domain/entities"
	domainerrors "scratch-card.backend/internal/domain/errors"
	"scratch-card.backend/internal/domain/repositories"
	"scratch-card.backend/pkg/utils"
)

const profileRecentLimit = 20

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type LeaderboardPage struct {
	Leaderboard   []entities.LeaderboardEntry `json:"leaderboard"`
	Pagination    utils.PaginationMeta        `json:"pagination"`
	PlatformStats entities.PlatformStats      `json:"platformStats"`
}

type Profile struct {
	Summary      entities.ProfileSummary        `json:"summary"`
	Transactions []*entities.TransactionRecord `json:"transactions"`
}

// LeaderboardUsecase serves rankings and wallet profiles from the transaction log.
type LeaderboardUsecase struct {
	repo repositories.TransactionRepository
}

func NewLeaderboardUsecase(repo repositories.TransactionRepository) *LeaderboardUsecase {
	return &LeaderboardUsecase{repo: repo}
}

// Leaderboard returns one page of ranked wallets with platform totals.
func (u *LeaderboardUsecase) Leaderboard(ctx context.Context, p utils.PaginationParams) (*LeaderboardPage, error) {
	p = utils.GetPaginationParams(p.Page, p.PageSize)

	rows, err := u.repo.Leaderboard(ctx, p.CalculateOffset(), p.PageSize)
	if err != nil {
		return nil, err
	}
	total, err := u.repo.CountWallets(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := u.repo.PlatformStats(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]entities.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.LeaderboardEntry())
	}
	return &LeaderboardPage{
		Leaderboard:   entries,
		Pagination:    utils.CalculateMeta(total, p),
		PlatformStats: *stats,
	}, nil
}

// Profile returns the summary and most recent records of one wallet.
func (u *LeaderboardUsecase) Profile(ctx context.Context, address string) (*Profile, error) {
	address = strings.TrimSpace(address)
	if !addressPattern.MatchString(address) {
		return nil, domainerrors.BadRequest("Invalid address")
	}
	wallet := strings.ToLower(address)

	stats, err := u.repo.WalletStats(ctx, wallet)
	if err != nil {
		return nil, err
	}
	recent, err := u.repo.RecentByWallet(ctx, wallet, profileRecentLimit)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []*entities.TransactionRecord{}
	}

	summary := entities.EmptyProfileSummary(wallet)
	if stats != nil {
		summary = stats.ProfileSummary()
	}
	return &Profile{Summary: summary, Transactions: recent}, nil
}
