package blockchain

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory Backend. Methods the tests never reach fall through to the nil embedded interface.
type fakeBackend struct {
	Backend

	mu        sync.Mutex
	chainID   *big.Int
	block     uint64
	outputs   map[string][]byte
	callErr   error
	code      map[common.Address][]byte
	balances  map[common.Address]*big.Int
	logs      []types.Log
	receipts  map[common.Hash]*types.Receipt
	headers   map[uint64]*types.Header
	sent      []*types.Transaction
	sendErr   error
	nonce     uint64
	onSend    func(tx *types.Transaction) *types.Receipt
	filterErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(31337),
		block:    100,
		outputs:  map[string][]byte{},
		code:     map[common.Address][]byte{},
		balances: map[common.Address]*big.Int{},
		receipts: map[common.Hash]*types.Receipt{},
		headers:  map[uint64]*types.Header{},
	}
}

// returns registers the packed outputs of a contract view method.
func (f *fakeBackend) returns(t *testing.T, method string, vals ...interface{}) {
	t.Helper()
	m, ok := scratchCardABI.Methods[method]
	require.True(t, ok, method)
	out, err := m.Outputs.Pack(vals...)
	require.NoError(t, err)
	f.mu.Lock()
	f.outputs[string(m.ID)] = out
	f.mu.Unlock()
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callErr != nil {
		return nil, f.callErr
	}
	if len(msg.Data) < 4 {
		return nil, nil
	}
	return f.outputs[string(msg.Data[:4])], nil
}

func (f *fakeBackend) CodeAt(_ context.Context, addr common.Address, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code[addr], nil
}

func (f *fakeBackend) PendingCodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return f.CodeAt(ctx, addr, nil)
}

func (f *fakeBackend) BalanceAt(_ context.Context, addr common.Address, _ *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.block, nil
}

func (f *fakeBackend) HeaderByNumber(_ context.Context, n *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n != nil {
		if h, ok := f.headers[n.Uint64()]; ok {
			return h, nil
		}
		return &types.Header{Number: n, Time: 1_700_000_000 + n.Uint64()*12}, nil
	}
	return &types.Header{Number: new(big.Int).SetUint64(f.block)}, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	f.nonce++
	f.block++
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	if f.onSend != nil {
		receipt = f.onSend(tx)
	}
	if receipt != nil {
		receipt.TxHash = tx.Hash()
		receipt.BlockNumber = new(big.Int).SetUint64(f.block)
		f.receipts[tx.Hash()] = receipt
	}
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	var out []types.Log
	for _, lg := range f.logs {
		if q.FromBlock != nil && lg.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && lg.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if !topicsMatch(q.Topics, lg.Topics) {
			continue
		}
		out = append(out, lg)
	}
	return out, nil
}

func (f *fakeBackend) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func topicsMatch(filter [][]common.Hash, topics []common.Hash) bool {
	for i, alts := range filter {
		if len(alts) == 0 {
			continue
		}
		if i >= len(topics) {
			return false
		}
		hit := false
		for _, h := range alts {
			if h == topics[i] {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func scratchPlayedLog(t *testing.T, contract, player common.Address, reward, after int64, block uint64) types.Log {
	t.Helper()
	ev := scratchCardABI.Events["ScratchPlayed"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(reward), big.NewInt(after))
	require.NoError(t, err)
	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{ev.ID, common.BytesToHash(player.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
	}
}

func rewardsClaimedLog(t *testing.T, contract, player common.Address, amount int64, block uint64) types.Log {
	t.Helper()
	ev := scratchCardABI.Events["RewardsClaimed"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(amount))
	require.NoError(t, err)
	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{ev.ID, common.BytesToHash(player.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block + 1_000_000)),
	}
}
