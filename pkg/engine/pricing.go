package engine

import (
	"math/big"
	"time"
)

// WithinWindow reports whether the order is live at now: at or past its
// listing time and, unless ExpirationTime is 0 (no expiry), before its
// expiration.
func (o *Order) WithinWindow(now time.Time) bool {
	ts := uint64(now.Unix())
	if ts < o.ListingTime {
		return false
	}
	if o.ExpirationTime == 0 {
		return true
	}
	return ts < o.ExpirationTime
}

// ResolvePrice computes the order's price at now. Pure function of the
// order's pricing fields and the timestamp; callers gate on WithinWindow.
//
// Fixed sales price at BasePrice. Time-decay sales interpolate linearly
// from BasePrice at ListingTime to EndPrice at ExpirationTime, which models
// a descending (or, by sign of the difference, ascending) ask.
func ResolvePrice(o *Order, now time.Time) *big.Int {
	base := bigOrZero(o.BasePrice)
	if o.SaleKind != SaleKindTimeDecay {
		return new(big.Int).Set(base)
	}

	ts := uint64(now.Unix())
	if ts <= o.ListingTime {
		return new(big.Int).Set(base)
	}
	if ts >= o.ExpirationTime {
		return new(big.Int).Set(bigOrZero(o.EndPrice))
	}

	// base + (end - base) * elapsed / window
	end := bigOrZero(o.EndPrice)
	elapsed := new(big.Int).SetUint64(ts - o.ListingTime)
	window := new(big.Int).SetUint64(o.ExpirationTime - o.ListingTime)

	diff := new(big.Int).Sub(end, base)
	diff.Mul(diff, elapsed)
	diff.Quo(diff, window)
	return diff.Add(diff, base)
}

// ResolveMatchPrice computes the executable price for a buy/sell pair at
// now, or nil when they cannot match. Both windows must contain now and the
// buyer's resolved price is a ceiling: the pair matches only when
// buyPrice >= sellPrice, and it settles at the sell price. A standing bid
// above a decaying ask therefore never pays more than the current ask.
func ResolveMatchPrice(buy, sell *Order, now time.Time) *big.Int {
	if !buy.WithinWindow(now) || !sell.WithinWindow(now) {
		return nil
	}

	sellPrice := ResolvePrice(sell, now)
	buyPrice := ResolvePrice(buy, now)
	if buyPrice.Cmp(sellPrice) < 0 {
		return nil
	}
	return sellPrice
}
