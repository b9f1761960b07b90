// Package ledger provides in-process implementations of the collaborators
// the settlement engine consumes: an asset-transfer endpoint, a bundled
// multi-send endpoint, a fungible token ledger and a native-unit bank.
// The engine itself never decodes call payloads; the codec helpers here
// exist for the endpoints, the signing CLI and tests.
package ledger

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Call convention: a 4-byte selector followed by 32-byte words, matching
// the ABI shape of transferFrom(address,address,uint256).
var (
	TransferFromSelector = gethcrypto.Keccak256([]byte("transferFrom(address,address,uint256)"))[:4]
	MultiSendSelector    = gethcrypto.Keccak256([]byte("multiSend(bytes)"))[:4]
)

const (
	transferFromLen = 4 + 3*32
	// Per-subcall header inside a multi-send blob:
	// op(1) | target(20) | value(32) | dataLen(32)
	subCallHeaderLen = 1 + 20 + 32 + 32
)

// EncodeTransferFrom builds the transfer payload for the asset endpoint.
func EncodeTransferFrom(from, to common.Address, id *big.Int) []byte {
	data := make([]byte, 0, transferFromLen)
	data = append(data, TransferFromSelector...)
	data = append(data, common.LeftPadBytes(from.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(id.Bytes(), 32)...)
	return data
}

// TransferFromPattern builds a replacement pattern for a transferFrom
// payload, wildcarding the selected argument words. The selector is always
// pinned, so an all-wildcard mask cannot arise from this helper.
func TransferFromPattern(wildFrom, wildTo, wildID bool) []byte {
	mask := make([]byte, transferFromLen)
	fill := func(word int, on bool) {
		if !on {
			return
		}
		start := 4 + word*32
		for i := start; i < start+32; i++ {
			mask[i] = 0xff
		}
	}
	fill(0, wildFrom)
	fill(1, wildTo)
	fill(2, wildID)
	return mask
}

// SubCall is one leg of a bundled transfer.
type SubCall struct {
	Target common.Address
	Data   []byte
}

// EncodeMultiSend frames sub-calls into one multiSend payload.
func EncodeMultiSend(subs []SubCall) []byte {
	data := append([]byte{}, MultiSendSelector...)
	for _, sub := range subs {
		data = append(data, 0) // op: plain call
		data = append(data, sub.Target.Bytes()...)
		data = append(data, make([]byte, 32)...) // value, unused
		var n [32]byte
		binary.BigEndian.PutUint64(n[24:], uint64(len(sub.Data)))
		data = append(data, n[:]...)
		data = append(data, sub.Data...)
	}
	return data
}

// MultiSendPattern assembles a replacement pattern aligned with
// EncodeMultiSend framing: the selector and every sub-call header stay
// pinned, each sub-call body uses the given per-sub pattern.
func MultiSendPattern(subPatterns ...[]byte) []byte {
	mask := make([]byte, 4)
	for _, p := range subPatterns {
		mask = append(mask, make([]byte, subCallHeaderLen)...)
		mask = append(mask, p...)
	}
	return mask
}

// decodeMultiSend splits a multiSend payload back into sub-calls.
func decodeMultiSend(data []byte) ([]SubCall, error) {
	if len(data) < 4 || string(data[:4]) != string(MultiSendSelector) {
		return nil, fmt.Errorf("not a multiSend payload")
	}

	var subs []SubCall
	rest := data[4:]
	for len(rest) > 0 {
		if len(rest) < subCallHeaderLen {
			return nil, fmt.Errorf("truncated sub-call header")
		}
		var target common.Address
		copy(target[:], rest[1:21])
		dataLen := binary.BigEndian.Uint64(rest[subCallHeaderLen-8 : subCallHeaderLen])
		rest = rest[subCallHeaderLen:]
		if uint64(len(rest)) < dataLen {
			return nil, fmt.Errorf("truncated sub-call data")
		}
		subs = append(subs, SubCall{Target: target, Data: rest[:dataLen]})
		rest = rest[dataLen:]
	}
	return subs, nil
}

// decodeTransferFrom splits a transferFrom payload into its arguments.
func decodeTransferFrom(data []byte) (from, to common.Address, id common.Hash, err error) {
	if len(data) != transferFromLen {
		err = fmt.Errorf("bad transferFrom payload length %d", len(data))
		return
	}
	if string(data[:4]) != string(TransferFromSelector) {
		err = fmt.Errorf("unknown selector %x", data[:4])
		return
	}
	copy(from[:], data[4+12:4+32])
	copy(to[:], data[4+32+12:4+64])
	copy(id[:], data[4+64:4+96])
	return
}
