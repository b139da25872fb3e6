package usecases

import (
	"context"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"scratch-card.backend/internal/domain/entities"
	domainerrors "scratch-card.backend/internal/domain/errors"
	"scratch-card.backend/internal/domain/repositories"
	"scratch-card.backend/internal/metrics"
	"scratch-card.backend/pkg/logger"
)

const (
	msgMissingFields = "Missing required fields"
	msgInvalidAction = "Invalid action. Use scratch_reward or claim."
	msgInvalidFields = "Invalid transaction fields"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// TransactionUsecase validates and records scratch/claim events.
type TransactionUsecase struct {
	repo repositories.TransactionRepository
	now  func() time.Time
}

func NewTransactionUsecase(repo repositories.TransactionRepository) *TransactionUsecase {
	return &TransactionUsecase{repo: repo, now: time.Now}
}

// Record normalizes input and upserts it by tx hash.
func (u *TransactionUsecase) Record(ctx context.Context, input *entities.TransactionInput) (*entities.TransactionRecord, error) {
	rec, err := u.normalize(input)
	if err != nil {
		return nil, err
	}
	if err := u.repo.Upsert(ctx, rec); err != nil {
		logger.Error(ctx, "Failed to record transaction", zap.String("tx_hash", rec.TxHash), zap.Error(err))
		return nil, err
	}
	metrics.TransactionsRecorded.WithLabelValues(string(rec.Action)).Inc()
	return rec, nil
}

func (u *TransactionUsecase) normalize(input *entities.TransactionInput) (*entities.TransactionRecord, error) {
	if input == nil {
		return nil, domainerrors.NewValidationError(msgMissingFields)
	}
	in := *input
	in.WalletAddress = strings.TrimSpace(in.WalletAddress)
	in.TxHash = strings.TrimSpace(in.TxHash)
	in.Action = strings.TrimSpace(in.Action)
	in.AmountWei = entities.NumericText(strings.TrimSpace(string(in.AmountWei)))
	in.ContractAddress = strings.TrimSpace(in.ContractAddress)
	in.ChainID = entities.NumericText(strings.TrimSpace(string(in.ChainID)))

	verr := domainerrors.NewValidationError(msgInvalidFields)
	missing, badAction := false, false
	if err := validate.Struct(in); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		for _, fe := range fieldErrs {
			switch fe.Tag() {
			case "required":
				missing = true
				verr.Add(fe.Field(), "is required")
			case "oneof":
				badAction = true
				verr.Add(fe.Field(), "must be scratch_reward or claim")
			case "number":
				verr.Add(fe.Field(), "must be a non-negative integer")
			case "max":
				verr.Add(fe.Field(), "must be at most "+fe.Param()+" characters")
			default:
				verr.Add(fe.Field(), "is invalid")
			}
		}
	}

	var chainID int64
	if in.ChainID != "" && !hasField(verr, "chainId") {
		id, err := strconv.ParseInt(string(in.ChainID), 10, 64)
		if err != nil || id <= 0 {
			verr.Add("chainId", "must be a positive integer")
		}
		chainID = id
	}

	if verr.HasErrors() {
		switch {
		case missing:
			verr.Message = msgMissingFields
		case badAction:
			verr.Message = msgInvalidAction
		}
		return nil, verr
	}

	occurredAt := u.now().UTC()
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		occurredAt = in.OccurredAt.UTC()
	}
	return &entities.TransactionRecord{
		WalletAddress:   strings.ToLower(in.WalletAddress),
		TxHash:          strings.ToLower(in.TxHash),
		Action:          entities.TransactionAction(in.Action),
		AmountWei:       canonicalAmount(string(in.AmountWei)),
		ContractAddress: strings.ToLower(in.ContractAddress),
		ChainID:         chainID,
		OccurredAt:      occurredAt,
	}, nil
}

func hasField(verr *domainerrors.ValidationError, field string) bool {
	for _, f := range verr.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// canonicalAmount drops leading zeros from a digits-only amount.
func canonicalAmount(digits string) string {
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return digits
	}
	return n.String()
}
