package entities

import (
	"encoding/json"
	"math"
	"strconv"
)

// BatchOptionsInput carries caller-supplied run options. Numbers arrive as JSON numbers or numeric strings.
type BatchOptionsInput struct {
	WalletCount        *json.Number `json:"walletCount,omitempty"`
	MaxRoundsPerWallet *json.Number `json:"maxRoundsPerWallet,omitempty"`
	ReactivityPolls    *json.Number `json:"reactivityPolls,omitempty"`
	ReactivityPollMs   *json.Number `json:"reactivityPollMs,omitempty"`
	SaveWallets        *bool        `json:"saveWallets,omitempty"`
}

// BatchRunRequest is the signed admin request for one batch run.
type BatchRunRequest struct {
	Requester   string             `json:"requester"`
	RequestedAt json.Number        `json:"requestedAt"`
	Signature   string             `json:"signature"`
	Options     *BatchOptionsInput `json:"options,omitempty"`
}

// BatchOptions are the normalized options a run executes with and signs over.
type BatchOptions struct {
	WalletCount        int  `json:"walletCount"`
	MaxRoundsPerWallet int  `json:"maxRoundsPerWallet"`
	ReactivityPolls    int  `json:"reactivityPolls"`
	ReactivityPollMs   int  `json:"reactivityPollMs"`
	SaveWallets        bool `json:"saveWallets"`
}

// PositiveInt returns n when it holds a positive integer, else fallback.
func PositiveInt(n *json.Number, fallback int) int {
	if n == nil {
		return fallback
	}
	return PositiveIntString(n.String(), fallback)
}

// PositiveIntString parses s as a positive integer, accepting integral floats like "3.0".
func PositiveIntString(s string, fallback int) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return fallback
	}
	return int(f)
}

type FundedWallet struct {
	Address string `json:"address"`
	TxHash  string `json:"txHash"`
}

type GeneratedWallet struct {
	Index      int    `json:"index"`
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

type BatchWalletSummary struct {
	WalletAddress string `json:"walletAddress"`
	Rounds        int    `json:"rounds"`
	SpentWei      string `json:"spentWei"`
	ClaimedWei    string `json:"claimedWei"`
}

// BatchRunResult is the summary of one batch run. It may be partial when the run aborted.
type BatchRunResult struct {
	RunID              string               `json:"runId"`
	Network            string               `json:"network"`
	ChainID            int64                `json:"chainId"`
	AdminWallet        string               `json:"adminWallet"`
	ContractAddress    string               `json:"contractAddress"`
	WalletCount        int                  `json:"walletCount"`
	MaxRoundsPerWallet int                  `json:"maxRoundsPerWallet"`
	FundPerWalletWei   string               `json:"fundPerWalletWei"`
	GasReserveWei      string               `json:"gasReserveWei"`
	ScratchPriceWei    string               `json:"scratchPriceWei"`
	TotalScratches     int                  `json:"totalScratches"`
	TotalSpentWei      string               `json:"totalSpentWei"`
	TotalClaimsWei     string               `json:"totalClaimsWei"`
	NetWei             string               `json:"netWei"`
	FundedWallets      []FundedWallet       `json:"fundedWallets"`
	GeneratedWallets   []GeneratedWallet    `json:"generatedWallets,omitempty"`
	WalletSummaries    []BatchWalletSummary `json:"walletSummaries"`
}
