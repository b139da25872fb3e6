package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"scratch-card.backend/internal/domain/entities"
	domainerrors "scratch-card.backend/internal/domain/errors"
	"scratch-card.backend/internal/usecases"
	"scratch-card.backend/pkg/utils"
)

type transactionServiceStub struct {
	record func(ctx context.Context, input *entities.TransactionInput) (*entities.TransactionRecord, error)
}

func (s transactionServiceStub) Record(ctx context.Context, input *entities.TransactionInput) (*entities.TransactionRecord, error) {
	return s.record(ctx, input)
}

type leaderboardServiceStub struct {
	leaderboard func(ctx context.Context, p utils.PaginationParams) (*usecases.LeaderboardPage, error)
	profile     func(ctx context.Context, address string) (*usecases.Profile, error)
}

func (s leaderboardServiceStub) Leaderboard(ctx context.Context, p utils.PaginationParams) (*usecases.LeaderboardPage, error) {
	return s.leaderboard(ctx, p)
}

func (s leaderboardServiceStub) Profile(ctx context.Context, address string) (*usecases.Profile, error) {
	return s.profile(ctx, address)
}

type gameServiceStub struct {
	state func(ctx context.Context, player string) (*entities.GameState, error)
}

func (s gameServiceStub) State(ctx context.Context, player string) (*entities.GameState, error) {
	return s.state(ctx, player)
}

type batchServiceStub struct {
	run func(ctx context.Context, req *entities.BatchRunRequest) (*entities.BatchRunResult, error)
}

func (s batchServiceStub) Run(ctx context.Context, req *entities.BatchRunRequest) (*entities.BatchRunResult, error) {
	return s.run(ctx, req)
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestTransactionHandler_RecordTransaction(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got *entities.TransactionInput
	h := &TransactionHandler{service: transactionServiceStub{
		record: func(_ context.Context, input *entities.TransactionInput) (*entities.TransactionRecord, error) {
			got = input
			return &entities.TransactionRecord{TxHash: input.TxHash}, nil
		},
	}}
	r := gin.New()
	r.POST("/api/transactions", h.RecordTransaction)

	rec := serve(r, http.MethodPost, "/api/transactions", `{
		"walletAddress":"0xAbC0000000000000000000000000000000000001",
		"txHash":"0xHASH",
		"action":"claim",
		"amountWei":12345678901234567890,
		"contractAddress":"0xC0",
		"chainId":"11155111"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, entities.NumericText("12345678901234567890"), got.AmountWei)
	assert.Equal(t, entities.NumericText("11155111"), got.ChainID)
}

func TestTransactionHandler_RecordTransaction_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("malformed json", func(t *testing.T) {
		h := &TransactionHandler{service: transactionServiceStub{
			record: func(context.Context, *entities.TransactionInput) (*entities.TransactionRecord, error) {
				t.Fatal("service must not be called")
				return nil, nil
			},
		}}
		r := gin.New()
		r.POST("/api/transactions", h.RecordTransaction)

		rec := serve(r, http.MethodPost, "/api/transactions", `{"walletAddress":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid JSON body", decodeBody(t, rec)["error"])
	})

	t.Run("validation", func(t *testing.T) {
		h := &TransactionHandler{service: transactionServiceStub{
			record: func(context.Context, *entities.TransactionInput) (*entities.TransactionRecord, error) {
				verr := domainerrors.NewValidationError("Invalid action. Use scratch_reward or claim.")
				verr.Add("action", "must be scratch_reward or claim")
				return nil, verr
			},
		}}
		r := gin.New()
		r.POST("/api/transactions", h.RecordTransaction)

		rec := serve(r, http.MethodPost, "/api/transactions", `{"action":"burn"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "Invalid action. Use scratch_reward or claim.", body["error"])
		assert.Len(t, body["fields"], 1)
	})

	t.Run("store failure", func(t *testing.T) {
		h := &TransactionHandler{service: transactionServiceStub{
			record: func(context.Context, *entities.TransactionInput) (*entities.TransactionRecord, error) {
				return nil, errors.New("pq: too many connections")
			},
		}}
		r := gin.New()
		r.POST("/api/transactions", h.RecordTransaction)

		rec := serve(r, http.MethodPost, "/api/transactions", `{}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", decodeBody(t, rec)["error"])
	})
}

func TestLeaderboardHandler_GetLeaderboard(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var params []utils.PaginationParams
	h := &LeaderboardHandler{service: leaderboardServiceStub{
		leaderboard: func(_ context.Context, p utils.PaginationParams) (*usecases.LeaderboardPage, error) {
			params = append(params, p)
			p = utils.GetPaginationParams(p.Page, p.PageSize)
			return &usecases.LeaderboardPage{
				Leaderboard:   []entities.LeaderboardEntry{{WalletAddress: "0xabc", TotalWonWei: "5", TotalClaimedWei: "0"}},
				Pagination:    utils.CalculateMeta(1, p),
				PlatformStats: entities.PlatformStats{TotalUsers: 1, TotalClaimedWei: "0"},
			}, nil
		},
	}}
	r := gin.New()
	r.GET("/api/leaderboard", h.GetLeaderboard)

	rec := serve(r, http.MethodGet, "/api/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, body["leaderboard"], 1)
	assert.Equal(t, float64(1), body["platformStats"].(map[string]interface{})["totalUsers"])
	assert.Equal(t, float64(5), body["pagination"].(map[string]interface{})["pageSize"])

	serve(r, http.MethodGet, "/api/leaderboard?page=2.9&pageSize=abc", "")
	serve(r, http.MethodGet, "/api/leaderboard?page=-3&limit=500", "")
	serve(r, http.MethodGet, "/api/leaderboard?pageSize=7&limit=9", "")

	assert.Equal(t, []utils.PaginationParams{
		{Page: 1, PageSize: 5},
		{Page: 2, PageSize: 5},
		{Page: -3, PageSize: 500},
		{Page: 1, PageSize: 7},
	}, params)
}

func TestLeaderboardHandler_GetProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &LeaderboardHandler{service: leaderboardServiceStub{
		profile: func(_ context.Context, address string) (*usecases.Profile, error) {
			if address == "nope" {
				return nil, domainerrors.BadRequest("Invalid address")
			}
			return &usecases.Profile{
				Summary:      entities.EmptyProfileSummary(strings.ToLower(address)),
				Transactions: []*entities.TransactionRecord{},
			}, nil
		},
	}}
	r := gin.New()
	r.GET("/api/profile/:address", h.GetProfile)

	rec := serve(r, http.MethodGet, "/api/profile/0xAbC0000000000000000000000000000000000001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", summary["walletAddress"])
	assert.Equal(t, "0", summary["totalWonWei"])
	assert.Nil(t, summary["lastActivity"])
	assert.Equal(t, []interface{}{}, body["transactions"])

	rec = serve(r, http.MethodGet, "/api/profile/nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid address", decodeBody(t, rec)["error"])
}

func TestGameHandler_GetState(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var players []string
	h := &GameHandler{service: gameServiceStub{
		state: func(_ context.Context, player string) (*entities.GameState, error) {
			players = append(players, player)
			if player == "bad" {
				return nil, domainerrors.BadRequest("Invalid player address")
			}
			return &entities.GameState{ContractAddress: "0xc0", ChainID: 31337, Network: "hardhat", ScratchPriceWei: "1000"}, nil
		},
	}}
	r := gin.New()
	r.GET("/api/game/state", h.GetState)

	rec := serve(r, http.MethodGet, "/api/game/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody(t, rec)["state"].(map[string]interface{})
	assert.Equal(t, "hardhat", state["network"])
	assert.Equal(t, "1000", state["scratchPriceWei"])
	assert.NotContains(t, state, "player")

	rec = serve(r, http.MethodGet, "/api/game/state?player=bad", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"", "bad"}, players)
}

func TestBatchHandler_RunBatchScratch(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got *entities.BatchRunRequest
	h := &BatchHandler{service: batchServiceStub{
		run: func(_ context.Context, req *entities.BatchRunRequest) (*entities.BatchRunResult, error) {
			got = req
			return &entities.BatchRunResult{RunID: "run-1", WalletCount: 2, TotalScratches: 4}, nil
		},
	}}
	r := gin.New()
	r.POST("/api/admin/batch-scratch", h.RunBatchScratch)

	rec := serve(r, http.MethodPost, "/api/admin/batch-scratch", `{
		"requester":"0xAdmin",
		"requestedAt":1700000000000,
		"signature":"0xsig",
		"options":{"walletCount":"2","saveWallets":true}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	result := body["result"].(map[string]interface{})
	assert.Equal(t, "run-1", result["runId"])
	assert.Equal(t, float64(4), result["totalScratches"])

	require.NotNil(t, got)
	assert.Equal(t, "1700000000000", got.RequestedAt.String())
	require.NotNil(t, got.Options)
	require.NotNil(t, got.Options.WalletCount)
	assert.Equal(t, "2", got.Options.WalletCount.String())
	assert.True(t, *got.Options.SaveWallets)
}

func TestBatchHandler_RunBatchScratch_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"forbidden", domainerrors.Forbidden("Requester is not contract owner", domainerrors.ErrNotContractOwner), http.StatusForbidden, "Requester is not contract owner"},
		{"conflict", domainerrors.Conflict("A batch run is already in progress", domainerrors.ErrBatchInProgress), http.StatusConflict, "A batch run is already in progress"},
		{"chain", domainerrors.ChainError("insufficient funds for gas * price + value", errors.New("rpc")), http.StatusInternalServerError, "insufficient funds for gas * price + value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &BatchHandler{service: batchServiceStub{
				run: func(context.Context, *entities.BatchRunRequest) (*entities.BatchRunResult, error) {
					return &entities.BatchRunResult{RunID: "partial"}, tc.err
				},
			}}
			r := gin.New()
			r.POST("/batch", h.RunBatchScratch)

			rec := serve(r, http.MethodPost, "/batch", `{"requester":"0x1","requestedAt":1,"signature":"0x2"}`)
			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, tc.msg, body["error"])
			assert.NotContains(t, body, "result")
		})
	}

	h := &BatchHandler{service: batchServiceStub{}}
	r := gin.New()
	r.POST("/batch", h.RunBatchScratch)
	rec := serve(r, http.MethodPost, "/batch", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchHandler_RunSurvivesClientDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var runErr error
	var requestID interface{}
	h := &BatchHandler{service: batchServiceStub{
		run: func(ctx context.Context, _ *entities.BatchRunRequest) (*entities.BatchRunResult, error) {
			runErr = ctx.Err()
			requestID = ctx.Value(requestIDKey{})
			return &entities.BatchRunResult{RunID: "run-1"}, nil
		},
	}}
	r := gin.New()
	r.POST("/batch", h.RunBatchScratch)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), requestIDKey{}, "req-1"))
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/batch", strings.NewReader(`{"requester":"0x1","requestedAt":1,"signature":"0x2"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.NoError(t, runErr)
	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type requestIDKey struct{}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		ping   func(context.Context) error
		status int
		db     string
	}{
		{"up", func(context.Context) error { return nil }, http.StatusOK, "up"},
		{"down", func(context.Context) error { return errors.New("dial tcp: refused") }, http.StatusServiceUnavailable, "down"},
		{"unconfigured", nil, http.StatusOK, "unconfigured"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(tc.ping).Health)

			rec := serve(r, http.MethodGet, "/health", "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.db, decodeBody(t, rec)["database"])
		})
	}
}
