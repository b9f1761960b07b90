package api

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/nyalabs/nyax/pkg/engine"
)

// OrderJSON is the wire form of an order. Addresses and byte fields are
// hex-encoded, prices decimal strings.
type OrderJSON struct {
	Exchange           string `json:"exchange"`
	Maker              string `json:"maker"`
	Taker              string `json:"taker"`
	FeeRecipient       string `json:"feeRecipient"`
	Target             string `json:"target"`
	PaymentToken       string `json:"paymentToken"`
	BasePrice          string `json:"basePrice"`
	EndPrice           string `json:"endPrice,omitempty"`
	ListingTime        uint64 `json:"listingTime"`
	ExpirationTime     uint64 `json:"expirationTime"`
	Salt               string `json:"salt"`
	Side               uint8  `json:"side"`
	SaleKind           uint8  `json:"saleKind"`
	CallKind           uint8  `json:"callKind"`
	CallData           string `json:"callData"`
	ReplacementPattern string `json:"replacementPattern,omitempty"`
}

func parseAddress(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", field, s)
	}
	return common.HexToAddress(s), nil
}

func parseBig(field, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s: %q", field, s)
	}
	return v, nil
}

func parseHexBytes(field, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return b, nil
}

// ToOrder converts the wire form into an engine order.
func (o *OrderJSON) ToOrder() (*engine.Order, error) {
	out := &engine.Order{
		ListingTime:    o.ListingTime,
		ExpirationTime: o.ExpirationTime,
		Side:           engine.Side(o.Side),
		SaleKind:       engine.SaleKind(o.SaleKind),
		CallKind:       engine.CallKind(o.CallKind),
	}

	var err error
	if out.Exchange, err = parseAddress("exchange", o.Exchange); err != nil {
		return nil, err
	}
	if out.Maker, err = parseAddress("maker", o.Maker); err != nil {
		return nil, err
	}
	if out.Taker, err = parseAddress("taker", o.Taker); err != nil {
		return nil, err
	}
	if out.FeeRecipient, err = parseAddress("feeRecipient", o.FeeRecipient); err != nil {
		return nil, err
	}
	if out.Target, err = parseAddress("target", o.Target); err != nil {
		return nil, err
	}
	if out.PaymentToken, err = parseAddress("paymentToken", o.PaymentToken); err != nil {
		return nil, err
	}
	if out.BasePrice, err = parseBig("basePrice", o.BasePrice); err != nil {
		return nil, err
	}
	if out.EndPrice, err = parseBig("endPrice", o.EndPrice); err != nil {
		return nil, err
	}
	if out.Salt, err = parseBig("salt", o.Salt); err != nil {
		return nil, err
	}
	if out.CallData, err = parseHexBytes("callData", o.CallData); err != nil {
		return nil, err
	}
	if out.ReplacementPattern, err = parseHexBytes("replacementPattern", o.ReplacementPattern); err != nil {
		return nil, err
	}
	return out, nil
}

type HashOrderRequest struct {
	Order OrderJSON `json:"order"`
}

type HashOrderResponse struct {
	OrderHash  string `json:"orderHash"`
	HashToSign string `json:"hashToSign"`
}

type CanMatchRequest struct {
	Buy  OrderJSON `json:"buy"`
	Sell OrderJSON `json:"sell"`
}

type CanMatchResponse struct {
	CanMatch bool `json:"canMatch"`
}

type CalldataCanMatchRequest struct {
	BuyCalldata            string `json:"buyCalldata"`
	BuyReplacementPattern  string `json:"buyReplacementPattern"`
	SellCalldata           string `json:"sellCalldata"`
	SellReplacementPattern string `json:"sellReplacementPattern"`
}

type CancelOrderRequest struct {
	Order     OrderJSON `json:"order"`
	Signature string    `json:"signature"`
	Caller    string    `json:"caller"`
}

type CancelOrderResponse struct {
	Status    string `json:"status"`
	OrderHash string `json:"orderHash"`
}

type MatchRequest struct {
	Buy     OrderJSON `json:"buy"`
	Sell    OrderJSON `json:"sell"`
	BuySig  string    `json:"buySignature"`
	SellSig string    `json:"sellSignature"`
	Caller  string    `json:"caller"`
	Value   string    `json:"value,omitempty"`
}

type MatchResponse struct {
	Status       string `json:"status"`
	Price        string `json:"price"`
	BuyHash      string `json:"buyHash"`
	SellHash     string `json:"sellHash"`
	FeeRecipient string `json:"feeRecipient"`
}

type FeesResponse struct {
	MakerBps uint64 `json:"makerBps"`
	TakerBps uint64 `json:"takerBps"`
}

type SetFeeRequest struct {
	Caller string `json:"caller"`
	Side   string `json:"side"` // "maker" or "taker"
	Bps    uint64 `json:"bps"`
}

type AuthActionRequest struct {
	Principal string `json:"principal"`
	Action    string `json:"action"` // "request", "finalize", "revoke"
}

type AuthStateResponse struct {
	Principal string `json:"principal"`
	Delegate  string `json:"delegate"`
	State     string `json:"state"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
