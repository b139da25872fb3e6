package entities

import (
	"bytes"
	"encoding/json"
	"time"
)

// TransactionAction is the kind of on-chain event a log record describes.
type TransactionAction string

const (
	ActionScratchReward TransactionAction = "scratch_reward"
	ActionClaim         TransactionAction = "claim"
)

func (a TransactionAction) Valid() bool {
	return a == ActionScratchReward || a == ActionClaim
}

// TransactionRecord is one logged scratch or claim event, unique by TxHash.
// AmountWei is a base-10 integer string.
type TransactionRecord struct {
	WalletAddress   string            `json:"walletAddress"`
	TxHash          string            `json:"txHash"`
	Action          TransactionAction `json:"action"`
	AmountWei       string            `json:"amountWei"`
	ContractAddress string            `json:"contractAddress"`
	ChainID         int64             `json:"chainId"`
	OccurredAt      time.Time         `json:"occurredAt"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// NumericText holds a JSON number or string verbatim.
type NumericText string

func (n *NumericText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumericText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = NumericText(num.String())
	return nil
}

// TransactionInput is a client-submitted log record before validation.
type TransactionInput struct {
	WalletAddress   string      `json:"walletAddress" validate:"required,max=42"`
	TxHash          string      `json:"txHash" validate:"required,max=66"`
	Action          string      `json:"action" validate:"required,oneof=scratch_reward claim"`
	AmountWei       NumericText `json:"amountWei" validate:"required,number,max=100"`
	ContractAddress string      `json:"contractAddress" validate:"required,max=42"`
	ChainID         NumericText `json:"chainId" validate:"required,number"`
	OccurredAt      *time.Time  `json:"occurredAt,omitempty"`
}
