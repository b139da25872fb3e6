package entities

import (
	"math/big"
	"time"
)

// ClaimStatus mirrors the contract's getClaimStatus tuple.
type ClaimStatus struct {
	Claimable  *big.Int
	Claimed    *big.Int
	LastReward *big.Int
}

// ScratchPlayedEvent is a decoded ScratchPlayed log.
type ScratchPlayedEvent struct {
	Player         string
	Reward         *big.Int
	ClaimableAfter *big.Int
	TxHash         string
	BlockNumber    uint64
	LogIndex       uint
}

// RewardsClaimedEvent is a decoded RewardsClaimed log.
type RewardsClaimedEvent struct {
	Player      string
	Amount      *big.Int
	TxHash      string
	BlockNumber uint64
	LogIndex    uint
}

type ScratchView struct {
	TxHash            string `json:"txHash"`
	BlockNumber       uint64 `json:"blockNumber"`
	RewardWei         string `json:"rewardWei"`
	ClaimableAfterWei string `json:"claimableAfterWei"`
}

type ClaimView struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	AmountWei   string `json:"amountWei"`
}

// PlayerState is the per-player part of a game snapshot.
type PlayerState struct {
	Address         string        `json:"address"`
	BalanceWei      string        `json:"balanceWei"`
	ClaimableWei    string        `json:"claimableWei"`
	ClaimedWei      string        `json:"claimedWei"`
	LastRewardWei   string        `json:"lastRewardWei"`
	RecentScratches []ScratchView `json:"recentScratches"`
	RecentClaims    []ClaimView   `json:"recentClaims"`
}

// GameState is a read-only snapshot of the contract.
type GameState struct {
	ContractAddress    string       `json:"contractAddress"`
	ChainID            int64        `json:"chainId"`
	Network            string       `json:"network"`
	LatestBlock        uint64       `json:"latestBlock"`
	ScratchPriceWei    string       `json:"scratchPriceWei"`
	ContractBalanceWei string       `json:"contractBalanceWei"`
	TotalPendingWei    string       `json:"totalPendingWei"`
	Player             *PlayerState `json:"player,omitempty"`
	ObservedAt         time.Time    `json:"observedAt"`
}
