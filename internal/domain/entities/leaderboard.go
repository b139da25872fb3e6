package entities

import (
	"github.com/volatiletech/null/v8"
)

// WalletStats aggregates all log records of one wallet.
type WalletStats struct {
	WalletAddress   string
	TotalWonWei     string
	TotalClaimedWei string
	ScratchCount    int64
	ClaimCount      int64
	TxCount         int64
	LastActivity    null.Time
}

// LeaderboardEntry represents one ranked wallet
type LeaderboardEntry struct {
	WalletAddress   string    `json:"walletAddress"`
	TotalWonWei     string    `json:"totalWonWei"`
	TotalClaimedWei string    `json:"totalClaimedWei"`
	ScratchCount    int64     `json:"scratchCount"`
	TxCount         int64     `json:"txCount"`
	LastActivity    null.Time `json:"lastActivity"`
}

// ProfileSummary is the leaderboard view of one wallet plus its claim count.
type ProfileSummary struct {
	WalletAddress   string    `json:"walletAddress"`
	TotalWonWei     string    `json:"totalWonWei"`
	TotalClaimedWei string    `json:"totalClaimedWei"`
	ScratchCount    int64     `json:"scratchCount"`
	ClaimCount      int64     `json:"claimCount"`
	TxCount         int64     `json:"txCount"`
	LastActivity    null.Time `json:"lastActivity"`
}

// EmptyProfileSummary is the summary of a wallet with no records.
func EmptyProfileSummary(wallet string) ProfileSummary {
	return ProfileSummary{
		WalletAddress:   wallet,
		TotalWonWei:     "0",
		TotalClaimedWei: "0",
	}
}

func (s *WalletStats) LeaderboardEntry() LeaderboardEntry {
	return LeaderboardEntry{
		WalletAddress:   s.WalletAddress,
		TotalWonWei:     s.TotalWonWei,
		TotalClaimedWei: s.TotalClaimedWei,
		ScratchCount:    s.ScratchCount,
		TxCount:         s.TxCount,
		LastActivity:    s.LastActivity,
	}
}

func (s *WalletStats) ProfileSummary() ProfileSummary {
	return ProfileSummary{
		WalletAddress:   s.WalletAddress,
		TotalWonWei:     s.TotalWonWei,
		TotalClaimedWei: s.TotalClaimedWei,
		ScratchCount:    s.ScratchCount,
		ClaimCount:      s.ClaimCount,
		TxCount:         s.TxCount,
		LastActivity:    s.LastActivity,
	}
}

// PlatformStats are totals over the whole log.
type PlatformStats struct {
	TotalUsers        int64  `json:"totalUsers"`
	TotalScratchCards int64  `json:"totalScratchCards"`
	TotalTransactions int64  `json:"totalTransactions"`
	TotalClaimedWei   string `json:"totalClaimedWei"`
}
