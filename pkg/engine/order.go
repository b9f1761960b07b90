package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Side is which half of the exchange an order takes.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// SaleKind selects the pricing function of an order.
type SaleKind uint8

const (
	// SaleKindFixed prices at BasePrice for the whole listing window.
	SaleKindFixed SaleKind = iota
	// SaleKindTimeDecay interpolates linearly from BasePrice at ListingTime
	// to EndPrice at ExpirationTime.
	SaleKindTimeDecay
)

func (k SaleKind) String() string {
	switch k {
	case SaleKindFixed:
		return "fixed"
	case SaleKindTimeDecay:
		return "time-decay"
	default:
		return "unknown"
	}
}

// CallKind selects the caller identity the target observes for the asset leg.
type CallKind uint8

const (
	// CallDirect executes the transfer call with the engine as caller.
	CallDirect CallKind = iota
	// CallThroughAgent forwards the call preserving the selling maker's
	// identity, which bundled multi-step transfers need.
	CallThroughAgent
)

func (k CallKind) String() string {
	switch k {
	case CallDirect:
		return "direct"
	case CallThroughAgent:
		return "through-agent"
	default:
		return "unknown"
	}
}

// AddressWildcard is the "any counterpart" / "no explicit fee recipient"
// sentinel. It is also the native payment-asset sentinel on PaymentToken.
var AddressWildcard = common.Address{}

// Order is a signed intent to trade one side of an asset-for-payment
// exchange. Orders are immutable after signing; every field below feeds the
// order hash, so two orders with identical fields share one cancellation
// slot by construction.
type Order struct {
	// Exchange binds the order to one engine instance; orders signed for a
	// different deployment never validate here.
	Exchange common.Address
	// Maker authored and signed the order.
	Maker common.Address
	// Taker restricts the counterpart; AddressWildcard means anyone.
	Taker common.Address
	// FeeRecipient is paid the fee for this order's side; AddressWildcard
	// means this side names no recipient.
	FeeRecipient common.Address
	// Target is the asset-transfer endpoint CallData is sent to.
	Target common.Address
	// PaymentToken is the fungible payment asset; AddressWildcard denotes
	// the ledger's native unit.
	PaymentToken common.Address

	BasePrice *big.Int
	// EndPrice is the terminal price of a time-decay sale; unused for fixed.
	EndPrice       *big.Int
	ListingTime    uint64
	ExpirationTime uint64 // 0 = no expiry (fixed-price only)
	Salt           *big.Int

	Side     Side
	SaleKind SaleKind
	CallKind CallKind

	// CallData is the exact byte payload sent to Target, after the
	// counterpart fills the wildcard positions below.
	CallData []byte
	// ReplacementPattern marks which CallData bytes the counterpart may
	// override: nonzero mask byte = wildcard. Empty means exact match only.
	ReplacementPattern []byte
}

// bigOrZero guards hashing and arithmetic against nil big.Ints on orders
// built from partially filled API requests.
func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// validate checks the structural invariants every order must satisfy
// regardless of side. Returns a descriptive reason, or "" if fine.
func (o *Order) validate(exchange common.Address) string {
	if o.Exchange != exchange {
		return "order bound to a different exchange"
	}
	if o.Maker == AddressWildcard {
		return "order has no maker"
	}
	if o.Target == AddressWildcard {
		return "order has no target"
	}
	if len(o.ReplacementPattern) != 0 && len(o.ReplacementPattern) != len(o.CallData) {
		return "replacement pattern length mismatch"
	}
	if bigOrZero(o.BasePrice).Sign() < 0 {
		return "negative base price"
	}
	switch o.SaleKind {
	case SaleKindFixed:
		if o.ExpirationTime != 0 && o.ExpirationTime <= o.ListingTime {
			return "expiration precedes listing"
		}
	case SaleKindTimeDecay:
		// Decay needs a finite window to interpolate over.
		if o.ExpirationTime == 0 || o.ExpirationTime <= o.ListingTime {
			return "time-decay sale requires a finite window"
		}
		if bigOrZero(o.EndPrice).Sign() < 0 {
			return "negative end price"
		}
	default:
		return "unknown sale kind"
	}
	return ""
}
