package models

import (
	"time"

	"gorm.io/gorm"
)

// Transaction is one row of the transaction log. TxHash is the natural key.
type Transaction struct {
	ID              uint      `gorm:"primaryKey"`
	WalletAddress   string    `gorm:"type:varchar(42);not null;index;index:idx_wallet_action_time,priority:1"`
	TxHash          string    `gorm:"type:varchar(66);not null;uniqueIndex"`
	Action          string    `gorm:"type:varchar(32);not null;index;index:idx_wallet_action_time,priority:2"`
	AmountWei       string    `gorm:"type:varchar(100);not null;default:'0'"` // uint256 as decimal string
	ContractAddress string    `gorm:"type:varchar(42);not null;index"`
	ChainID         int64     `gorm:"not null;index"`
	OccurredAt      time.Time `gorm:"not null;index;index:idx_wallet_action_time,priority:3,sort:desc"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Transaction) TableName() string {
	return "transactions"
}

// AutoMigrate creates or updates the tables the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Transaction{})
}
