package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	nyacrypto "github.com/nyalabs/nyax/pkg/crypto"
)

// orderTypeHash commits the hash to the exact shape of the Order struct, so
// a signature over an order can never be reinterpreted as authorizing a
// differently shaped message.
var orderTypeHash = gethcrypto.Keccak256Hash([]byte(
	"Order(address exchange,address maker,address taker,address feeRecipient," +
		"address target,address paymentToken,uint256 basePrice,uint256 endPrice," +
		"uint256 listingTime,uint256 expirationTime,uint256 salt,uint8 side," +
		"uint8 saleKind,uint8 callKind,bytes callData,bytes replacementPattern)"))

// OrderHasher produces domain-separated order digests. The domain binds
// every digest to this engine deployment: protocol name, version, chain id
// and the exchange address all feed the separator, so an order signed for
// one instance replays nowhere else.
type OrderHasher struct {
	name     string
	version  string
	chainID  *big.Int
	exchange common.Address
}

func NewOrderHasher(name, version string, chainID int64, exchange common.Address) *OrderHasher {
	return &OrderHasher{
		name:     name,
		version:  version,
		chainID:  big.NewInt(chainID),
		exchange: exchange,
	}
}

// HashOrder returns the canonical digest of every order field. Deterministic
// and collision-free per distinguishable order: any single field change
// perturbs the digest. Variable-length byte fields are hashed first so the
// encoding stays fixed-width.
func (h *OrderHasher) HashOrder(o *Order) common.Hash {
	var buf []byte
	buf = append(buf, orderTypeHash.Bytes()...)
	buf = append(buf, common.LeftPadBytes(o.Exchange.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(o.Maker.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(o.Taker.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(o.FeeRecipient.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(o.Target.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(o.PaymentToken.Bytes(), 32)...)
	buf = append(buf, math.U256Bytes(new(big.Int).Set(bigOrZero(o.BasePrice)))...)
	buf = append(buf, math.U256Bytes(new(big.Int).Set(bigOrZero(o.EndPrice)))...)
	buf = append(buf, math.U256Bytes(new(big.Int).SetUint64(o.ListingTime))...)
	buf = append(buf, math.U256Bytes(new(big.Int).SetUint64(o.ExpirationTime))...)
	buf = append(buf, math.U256Bytes(new(big.Int).Set(bigOrZero(o.Salt)))...)
	buf = append(buf, math.U256Bytes(new(big.Int).SetUint64(uint64(o.Side)))...)
	buf = append(buf, math.U256Bytes(new(big.Int).SetUint64(uint64(o.SaleKind)))...)
	buf = append(buf, math.U256Bytes(new(big.Int).SetUint64(uint64(o.CallKind)))...)
	buf = append(buf, gethcrypto.Keccak256(o.CallData)...)
	buf = append(buf, gethcrypto.Keccak256(o.ReplacementPattern)...)
	return gethcrypto.Keccak256Hash(buf)
}

// HashToSign wraps the order digest in an EIP-712 envelope over the engine's
// signing domain. This is the digest wallets actually sign: primary type
// HashOrder carrying the order hash as a single bytes32 field.
func (h *OrderHasher) HashToSign(o *Order) (common.Hash, error) {
	orderHash := h.HashOrder(o)

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"HashOrder": []apitypes.Type{
				{Name: "orderHash", Type: "bytes32"},
			},
		},
		PrimaryType: "HashOrder",
		Domain: apitypes.TypedDataDomain{
			Name:              h.name,
			Version:           h.version,
			ChainId:           (*math.HexOrDecimal256)(h.chainID),
			VerifyingContract: h.exchange.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"orderHash": orderHash.Hex(),
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %w", err)
	}

	typedDataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash message: %w", err)
	}

	// Final digest: keccak256("\x19\x01" || domainSeparator || typedDataHash)
	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(typedDataHash)))
	return gethcrypto.Keccak256Hash(rawData), nil
}

// RecoverSigner recovers the principal that signed the order's EIP-712
// digest. Signature format is [R || S || V], 65 bytes.
func (h *OrderHasher) RecoverSigner(o *Order, signature []byte) (common.Address, error) {
	digest, err := h.HashToSign(o)
	if err != nil {
		return common.Address{}, err
	}
	return nyacrypto.RecoverAddress(digest.Bytes(), signature)
}

// VerifyOrderSignature reports whether signature authorizes the order: the
// recovered signer must be the maker or, when the order names an explicit
// taker, that taker (a buy-side principal authorizing via signature).
func (h *OrderHasher) VerifyOrderSignature(o *Order, signature []byte) bool {
	signer, err := h.RecoverSigner(o, signature)
	if err != nil {
		return false
	}
	if signer == o.Maker {
		return true
	}
	return o.Taker != AddressWildcard && signer == o.Taker
}
