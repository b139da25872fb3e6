package blockchain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	testPlayer   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func newTestScratchCard(t *testing.T) (*ScratchCardClient, *fakeBackend) {
	t.Helper()
	fb := newFakeBackend()
	fb.code[testContract] = []byte{0x60, 0x80}
	evm := NewEVMClientWithBackend(fb, nil)
	evm.SetReceiptPollInterval(time.Millisecond)
	return NewScratchCardClient(evm, testContract), fb
}

func TestScratchCard_EnsureDeployed(t *testing.T) {
	sc, fb := newTestScratchCard(t)
	require.NoError(t, sc.EnsureDeployed(context.Background()))

	delete(fb.code, testContract)
	err := sc.EnsureDeployed(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContractNotDeployed))
}

func TestScratchCard_Views(t *testing.T) {
	sc, fb := newTestScratchCard(t)
	owner := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	fb.returns(t, "owner", owner)
	fb.returns(t, "scratchPrice", big.NewInt(1_000_000_000_000_000))
	fb.returns(t, "totalPendingPlain", big.NewInt(42))
	fb.returns(t, "getClaimStatus", big.NewInt(3), big.NewInt(2), big.NewInt(1))
	fb.balances[testContract] = big.NewInt(99)
	ctx := context.Background()

	got, err := sc.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	price, err := sc.ScratchPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000", price.String())

	pending, err := sc.TotalPendingRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), pending.Int64())

	bal, err := sc.ContractBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(99), bal.Int64())

	st, err := sc.ClaimStatus(ctx, testPlayer)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Claimable.Int64())
	assert.Equal(t, int64(2), st.Claimed.Int64())
	assert.Equal(t, int64(1), st.LastReward.Int64())

	latest, err := sc.LatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), latest)
}

func TestScratchCard_ViewDecodeFailure(t *testing.T) {
	sc, _ := newTestScratchCard(t)
	_, err := sc.ScratchPrice(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode scratchPrice")
}

func TestScratchCard_ViewRevertDecoded(t *testing.T) {
	sc, fb := newTestScratchCard(t)
	fb.callErr = rpcDataErrorStub{msg: "execution reverted", data: SelectorZamaGuard}
	_, err := sc.Owner(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Zama protocol is unsupported")
}

func TestScratchCard_Events(t *testing.T) {
	sc, fb := newTestScratchCard(t)
	other := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	fb.logs = []types.Log{
		scratchPlayedLog(t, testContract, testPlayer, 10, 20, 5),
		scratchPlayedLog(t, testContract, other, 0, 0, 6),
		rewardsClaimedLog(t, testContract, testPlayer, 20, 7),
	}
	ctx := context.Background()

	all, err := sc.ScratchPlayedEvents(ctx, nil, 0, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	mine, err := sc.ScratchPlayedEvents(ctx, &testPlayer, 0, nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "0x00000000000000000000000000000000000000b1", mine[0].Player)
	assert.Equal(t, int64(10), mine[0].Reward.Int64())
	assert.Equal(t, int64(20), mine[0].ClaimableAfter.Int64())
	assert.Equal(t, uint64(5), mine[0].BlockNumber)

	to := uint64(5)
	ranged, err := sc.ScratchPlayedEvents(ctx, nil, 6, &to)
	require.NoError(t, err)
	assert.Empty(t, ranged)

	claims, err := sc.RewardsClaimedEvents(ctx, &testPlayer, 0, nil)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, int64(20), claims[0].Amount.Int64())
}

func TestScratchCard_ScratchAndReward(t *testing.T) {
	sc, fb := newTestScratchCard(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	fb.onSend = func(tx *types.Transaction) *types.Receipt {
		lg := scratchPlayedLog(t, testContract, sender, 7, 7, 0)
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, Logs: []*types.Log{&lg}}
	}

	p, err := sc.Scratch(context.Background(), key, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, 1, fb.sentCount())
	tx := fb.sent[0]
	assert.Equal(t, int64(1000), tx.Value().Int64())
	assert.Equal(t, scratchCardABI.Methods["scratchCard"].ID, tx.Data()[:4])

	receipt, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), sc.ScratchReward(receipt).Int64())
}

func TestScratchCard_ScratchRewardAbsent(t *testing.T) {
	sc, _ := newTestScratchCard(t)
	assert.Equal(t, 0, sc.ScratchReward(nil).Sign())

	foreign := scratchPlayedLog(t, common.HexToAddress("0x1"), testPlayer, 5, 5, 1)
	assert.Equal(t, 0, sc.ScratchReward(&types.Receipt{Logs: []*types.Log{&foreign}}).Sign())
}

func TestScratchCard_Claim(t *testing.T) {
	sc, fb := newTestScratchCard(t)
	key, _ := crypto.GenerateKey()

	_, err := sc.Claim(context.Background(), key, new(big.Int).Add(MaxUint128, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
	_, err = sc.Claim(context.Background(), key, big.NewInt(-1))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = sc.Claim(context.Background(), key, big.NewInt(50))
	require.NoError(t, err)
	require.Equal(t, 1, fb.sentCount())

	args, err := scratchCardABI.Methods["claimRewards"].Inputs.Unpack(fb.sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, int64(50), args[0].(*big.Int).Int64())
}

func TestScratchCard_OwnerWrites(t *testing.T) {
	sc, fb := newTestScratchCard(t)
	key, _ := crypto.GenerateKey()

	_, err := sc.SetScratchPrice(context.Background(), key, big.NewInt(2))
	require.NoError(t, err)
	_, err = sc.WithdrawProfit(context.Background(), key, big.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, 2, fb.sentCount())
	assert.Equal(t, scratchCardABI.Methods["setScratchPrice"].ID, fb.sent[0].Data()[:4])
	assert.Equal(t, scratchCardABI.Methods["withdrawProfit"].ID, fb.sent[1].Data()[:4])
}

func TestScratchCard_TransactRevertDecoded(t *testing.T) {
	sc, fb := newTestScratchCard(t)
	fb.sendErr = rpcDataErrorStub{msg: "execution reverted", data: SelectorScratchRejected}
	key, _ := crypto.GenerateKey()

	_, err := sc.Scratch(context.Background(), key, big.NewInt(1))
	require.Error(t, err)
	var ce *ContractError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "scratchCard", ce.Op)
	assert.Equal(t, SelectorScratchRejected, ce.Selector)
}

func TestScratchCard_WaitForRewardsClaimed(t *testing.T) {
	sc, fb := newTestScratchCard(t)
	ctx := context.Background()

	ev, err := sc.WaitForRewardsClaimed(ctx, testPlayer, 0, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, ev)

	fb.logs = []types.Log{rewardsClaimedLog(t, testContract, testPlayer, 9, 12)}
	ev, err = sc.WaitForRewardsClaimed(ctx, testPlayer, 10, 3, time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, int64(9), ev.Amount.Int64())

	fb.filterErr = errors.New("rpc down")
	_, err = sc.WaitForRewardsClaimed(ctx, testPlayer, 0, 3, time.Millisecond)
	assert.Error(t, err)
}
