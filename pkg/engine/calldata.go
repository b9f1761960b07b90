package engine

import "bytes"

// Calldata template matching.
//
// A replacement pattern is a byte mask over a call payload: a nonzero mask
// byte marks that position as a wildcard the counterpart order may fill.
// The matcher is deliberately blind to the payload's structure; it compares
// byte buffers and nothing else. The non-wildcarded prefix of a sane
// pattern always pins the call selector and the counterparty-identifying
// words, so an all-wildcard mask never reaches production orders.

// ApplyMask copies data and, at every position mask marks as wildcard,
// substitutes the byte from source. An empty mask returns data unchanged.
// Returns false when the lengths are inconsistent.
func ApplyMask(data, mask, source []byte) ([]byte, bool) {
	if len(mask) == 0 {
		out := make([]byte, len(data))
		copy(out, data)
		return out, true
	}
	if len(mask) != len(data) || len(source) != len(data) {
		return nil, false
	}

	out := make([]byte, len(data))
	copy(out, data)
	for i, m := range mask {
		if m != 0 {
			out[i] = source[i]
		}
	}
	return out, true
}

// TemplatesCompatible reports whether a buy payload and a sell payload,
// each with its own replacement pattern, converge to the same bytes once
// each side's wildcards are filled from the other side.
//
// Empty masks demand exact equality; mismatched lengths are never
// compatible.
func TemplatesCompatible(buyData, buyMask, sellData, sellMask []byte) bool {
	if len(buyData) != len(sellData) {
		return false
	}

	buyEffective, ok := ApplyMask(buyData, buyMask, sellData)
	if !ok {
		return false
	}
	sellEffective, ok := ApplyMask(sellData, sellMask, buyData)
	if !ok {
		return false
	}

	return bytes.Equal(buyEffective, sellEffective)
}
