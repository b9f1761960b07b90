package engine

import "errors"

// Settlement failure taxonomy. Every AtomicMatch abort wraps one of these
// sentinels so callers can classify with errors.Is; none of them leaves any
// state behind.
var (
	// ErrInvalidTarget: the order's call target is not a registered
	// transfer endpoint.
	ErrInvalidTarget = errors.New("order target is not a contract")

	// ErrInvalidOrderParams: structural or side/role validation failed.
	// Wrapped with a buy- or sell-specific message.
	ErrInvalidOrderParams = errors.New("invalid order params")

	// ErrInvalidSignatureOrCancelled covers both a bad signature and an
	// already consumed hash. Deliberately one class: a caller must not be
	// able to tell "forged" from "already used".
	ErrInvalidSignatureOrCancelled = errors.New("invalid order hash or already cancelled")

	// ErrAlreadyFinalized: the order hash is permanently spent. Expected
	// under contention; losers of a settlement race see this.
	ErrAlreadyFinalized = errors.New("order already cancelled or finalized")

	// ErrOrdersNotMatched: pricing windows or the buy/sell price relation
	// reject the pair.
	ErrOrdersNotMatched = errors.New("orders cannot be matched")

	// ErrIncompatibleCalldata: the two call payloads do not converge after
	// wildcard replacement.
	ErrIncompatibleCalldata = errors.New("calldata after replacement is invalid")

	// ErrNotAuthorized: the asset-moving maker holds no active grant for
	// this engine.
	ErrNotAuthorized = errors.New("maker has not authorized this exchange")

	// ErrAssetTransferFailed: the asset leg call errored, or returned
	// without actually changing recorded ownership.
	ErrAssetTransferFailed = errors.New("asset transfer failed")

	// ErrInsufficientFunds: native payment attached less than the required
	// total.
	ErrInsufficientFunds = errors.New("sent amount below required total")

	// ErrOverpaymentRejected: native payment attached more than the
	// required total; there are no silent refunds.
	ErrOverpaymentRejected = errors.New("redundant sent funds")

	// ErrFeeTransferFailed: a payment-leg sub-transfer failed. Wrapped with
	// a maker- or taker-recipient message.
	ErrFeeTransferFailed = errors.New("fee transfer failed")

	// ErrFeeTooHigh: an admin tried to raise a fee rate above the cap.
	ErrFeeTooHigh = errors.New("fee rate above maximum")

	// ErrNotAdmin: a fee-rate change came from a non-admin caller.
	ErrNotAdmin = errors.New("caller is not the fee admin")
)
