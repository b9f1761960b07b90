package api

import (
	"bytes"
	"testing"

	"github.com/nyalabs/nyax/pkg/engine"
)

func TestOrderJSONToOrder(t *testing.T) {
	wire := OrderJSON{
		Exchange:           "0x0000000000000000000000000000000000001337",
		Maker:              "0x1111111111111111111111111111111111111111",
		Target:             "0x3333333333333333333333333333333333333333",
		PaymentToken:       "0x4444444444444444444444444444444444444444",
		BasePrice:          "10000",
		ListingTime:        1_700_000_000,
		ExpirationTime:     1_700_003_600,
		Salt:               "42",
		Side:               uint8(engine.SideSell),
		SaleKind:           uint8(engine.SaleKindFixed),
		CallKind:           uint8(engine.CallDirect),
		CallData:           "0xdeadbeef",
		ReplacementPattern: "0x000000ff",
	}

	o, err := wire.ToOrder()
	if err != nil {
		t.Fatal(err)
	}
	if o.BasePrice.Int64() != 10_000 || o.Salt.Int64() != 42 {
		t.Errorf("prices parsed wrong: %s / %s", o.BasePrice, o.Salt)
	}
	if o.Side != engine.SideSell || o.SaleKind != engine.SaleKindFixed {
		t.Error("enums parsed wrong")
	}
	if !bytes.Equal(o.CallData, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("calldata = %x", o.CallData)
	}
	if !bytes.Equal(o.ReplacementPattern, []byte{0, 0, 0, 0xff}) {
		t.Errorf("pattern = %x", o.ReplacementPattern)
	}

	// Omitted optional fields default to zero values, not errors.
	if o.Taker != engine.AddressWildcard || o.FeeRecipient != engine.AddressWildcard {
		t.Error("omitted addresses should default to the wildcard")
	}
	if o.EndPrice.Sign() != 0 {
		t.Errorf("endPrice = %s, want 0", o.EndPrice)
	}
}

func TestOrderJSONToOrderRejectsGarbage(t *testing.T) {
	base := OrderJSON{
		Exchange: "0x0000000000000000000000000000000000001337",
		Maker:    "0x1111111111111111111111111111111111111111",
	}

	tests := []struct {
		name   string
		mutate func(*OrderJSON)
	}{
		{"bad address", func(o *OrderJSON) { o.Maker = "xyz" }},
		{"non-decimal price", func(o *OrderJSON) { o.BasePrice = "0xff" }},
		{"negative price", func(o *OrderJSON) { o.BasePrice = "-5" }},
		{"unprefixed calldata", func(o *OrderJSON) { o.CallData = "deadbeef" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := base
			tt.mutate(&wire)
			if _, err := wire.ToOrder(); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
