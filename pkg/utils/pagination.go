package utils

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 5
	MaxPageSize     = 100
)

// PaginationParams holds pagination request parameters
type PaginationParams struct {
	Page     int
	PageSize int
}

// PaginationMeta holds pagination response metadata
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalUsers int64 `json:"totalUsers"`
	TotalPages int   `json:"totalPages"`
}

// ParseQueryInt floors a numeric query value. Empty or non-numeric input yields fallback.
func ParseQueryInt(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	f = math.Floor(f)
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

// GetPaginationParams clamps page to >= 1 and pageSize to [1, MaxPageSize].
func GetPaginationParams(page, pageSize int) PaginationParams {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = 1
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
	}
}

// CalculateOffset returns the SQL offset
func (p PaginationParams) CalculateOffset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// CalculateMeta generates pagination metadata. totalPages is never below 1.
func CalculateMeta(totalUsers int64, p PaginationParams) PaginationMeta {
	totalPages := 1
	if p.PageSize > 0 {
		totalPages = int(math.Ceil(float64(totalUsers) / float64(p.PageSize)))
	}
	if totalPages < 1 {
		totalPages = 1
	}

	return PaginationMeta{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalUsers: totalUsers,
		TotalPages: totalPages,
	}
}
