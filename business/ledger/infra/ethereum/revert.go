package ethereum

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

const revertPrefix = "execution reverted"

// revertReason extracts the revert string from a call error. ok is false
// when err is not a revert at all.
func revertReason(err error) (reason string, ok bool) {
	if err == nil {
		return "", false
	}

	var de rpc.DataError
	if errors.As(err, &de) {
		if data, isStr := de.ErrorData().(string); isStr {
			raw, decErr := hexutil.Decode(data)
			if decErr == nil {
				if r, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return r, true
				}
				if len(data) >= 10 {
					return "custom error " + data[:10], true
				}
			}
		}
	}

	msg := err.Error()
	if !strings.Contains(msg, revertPrefix) {
		return "", false
	}
	reason = strings.TrimSpace(strings.TrimPrefix(msg[strings.Index(msg, revertPrefix):], revertPrefix))
	reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
	if reason == "" {
		reason = revertPrefix
	}
	return reason, true
}

// classifyRevert maps a venue or executor revert string to an error code.
func classifyRevert(reason string) apperror.Code {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "insufficient_liquidity"), strings.Contains(r, "insufficient liquidity"):
		return apperror.CodeInsufficientLiquidity
	case strings.Contains(r, "unprofitable"), strings.Contains(r, "proceeds below"):
		return apperror.CodeProfitabilityRejected
	}
	return apperror.CodeLedgerReverted
}

func revertError(reason string) error {
	return apperror.New(classifyRevert(reason), apperror.WithContext(reason))
}

// Node rejections that guarantee the transaction was not admitted.
var rejectedSends = []string{
	"nonce too low",
	"insufficient funds",
	"intrinsic gas too low",
	"underpriced",
	"exceeds block gas limit",
	"invalid sender",
	"less than block base fee",
	"higher than max fee per gas",
	"tip higher than fee cap",
	"oversized data",
	"gas limit reached",
}

// sendRejected reports whether a broadcast error proves the transaction
// never entered the pool. Unknown errors, timeouts included, do not.
func sendRejected(err error) bool {
	if apperror.HasCode(err, apperror.CodeCircuitOpen) || apperror.HasCode(err, apperror.CodeCircuitHalfOpen) {
		return true
	}
	return chainContains(err, rejectedSends...)
}

// alreadyKnown reports whether the node already holds the transaction.
func alreadyKnown(err error) bool {
	return chainContains(err, "already known", "known transaction")
}

// chainContains matches any error in err's chain against the substrings.
func chainContains(err error, subs ...string) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := strings.ToLower(e.Error())
		for _, sub := range subs {
			if strings.Contains(msg, sub) {
				return true
			}
		}
	}
	return false
}
