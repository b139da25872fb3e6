package blockchain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	selectorErrorString = "0x08c379a0"
	selectorPanic       = "0x4e487b71"

	// Custom errors raised by the game contract guards.
	SelectorScratchRejected = "0x9de3392c"
	SelectorZamaGuard       = "0x73cac13b"
)

// KnownSelector is a revert selector with a user-facing explanation.
type KnownSelector struct {
	Selector  string
	Signature string
	Message   string
}

// KnownSelectors lists the custom errors the facade translates.
func KnownSelectors() []KnownSelector {
	return []KnownSelector{
		{
			Selector: SelectorScratchRejected,
			Message:  "FHE guard: this contract rejected scratch for this protocol/network setup. Verify SCRATCH_CARD_CONTRACT points to the latest deployed game contract.",
		},
		{
			Selector: SelectorZamaGuard,
			Message:  "FHE guard: Zama protocol is unsupported on this contract deployment.",
		},
		{
			Selector:  SelectorOf("ZamaProtocolUnsupported()"),
			Signature: "ZamaProtocolUnsupported()",
			Message:   "FHE guard: Zama protocol is unsupported on this contract deployment.",
		},
		{Selector: selectorErrorString, Signature: "Error(string)"},
		{Selector: selectorPanic, Signature: "Panic(uint256)"},
	}
}

// SelectorOf returns the 4-byte selector of a Solidity signature as 0x hex.
func SelectorOf(signature string) string {
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(signature))[:4])
}

// ContractError is a failed call or transaction with its decoded revert, if any.
type ContractError struct {
	Op       string
	Selector string
	Reason   string
	Err      error
}

func (e *ContractError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Op + " reverted"
}

func (e *ContractError) Unwrap() error { return e.Err }

// ErrTransactionReverted marks a mined transaction with status 0.
var ErrTransactionReverted = errors.New("transaction reverted")

// DecodeContractError wraps err in a ContractError when the node rejected the call: revert data
// is recoverable or the error is a JSON-RPC error response. Transport failures are returned wrapped;
// their text may contain the endpoint URL and must not reach API callers.
func DecodeContractError(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *ContractError
	if errors.As(err, &already) {
		return err
	}

	out := &ContractError{Op: op, Err: err}
	data, ok := extractRevertHexFromDataError(err)
	if !ok && strings.Contains(strings.ToLower(err.Error()), "revert") {
		data, ok = extractRevertHexFromErrorString(err.Error())
	}
	if ok {
		out.Selector, out.Reason = decodeRevertData(data)
	}
	if out.Selector == "" && !isNodeError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if out.Reason == "" {
		out.Reason = shortMessage(err)
	}
	return out
}

// isNodeError reports whether err is an error object returned by the node
// (insufficient funds, nonce too low, execution reverted without data).
func isNodeError(err error) bool {
	type rpcError interface {
		ErrorCode() int
	}
	var re rpcError
	return errors.As(err, &re)
}

func decodeRevertData(data []byte) (string, string) {
	if len(data) < 4 {
		return "", ""
	}
	selector := "0x" + hex.EncodeToString(data[:4])

	switch selector {
	case selectorErrorString:
		if reason, err := abi.UnpackRevert(data); err == nil {
			return selector, reason
		}
	case selectorPanic:
		if len(data) >= 36 {
			return selector, fmt.Sprintf("panic code: %s", new(big.Int).SetBytes(data[4:36]).String())
		}
	}
	for _, known := range KnownSelectors() {
		if known.Selector == selector && known.Message != "" {
			return selector, known.Message
		}
	}
	return selector, ""
}

// shortMessage trims wrapped provider noise down to the first line.
func shortMessage(err error) string {
	msg := strings.TrimSpace(err.Error())
	if i := strings.IndexByte(msg, '\n'); i > 0 {
		msg = msg[:i]
	}
	return msg
}

func extractRevertHexFromDataError(err error) ([]byte, bool) {
	type rpcDataError interface {
		ErrorData() interface{}
	}
	var dataErr rpcDataError
	if !errors.As(err, &dataErr) {
		return nil, false
	}
	return parseRevertBytesFromAny(dataErr.ErrorData())
}

func parseRevertBytesFromAny(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return parseHexBytes(v)
	case []byte:
		if len(v) == 0 {
			return nil, false
		}
		out := make([]byte, len(v))
		copy(out, v)
		return out, true
	case map[string]interface{}:
		if raw, ok := v["data"]; ok {
			return parseRevertBytesFromAny(raw)
		}
		if raw, ok := v["result"]; ok {
			return parseRevertBytesFromAny(raw)
		}
	}
	return nil, false
}

var revertHexPattern = regexp.MustCompile(`0x[0-9a-fA-F]{8,}`)

func extractRevertHexFromErrorString(message string) ([]byte, bool) {
	for _, candidate := range revertHexPattern.FindAllString(message, -1) {
		if data, ok := parseHexBytes(candidate); ok {
			return data, true
		}
	}
	return nil, false
}

func parseHexBytes(raw string) ([]byte, bool) {
	value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if len(value) < 8 || len(value)%2 != 0 {
		return nil, false
	}
	data, err := hex.DecodeString(value)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}
