package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/nyalabs/nyax/params"
	"github.com/nyalabs/nyax/pkg/api"
	"github.com/nyalabs/nyax/pkg/crypto"
	"github.com/nyalabs/nyax/pkg/engine"
	"github.com/nyalabs/nyax/pkg/ledger"
)

// Devnet endpoint addresses, matching the node's ENABLE_DEVNET wiring.
var (
	devAssetAddr = common.HexToAddress("0x00000000000000000000000000000000000A55E7")
	devTokenAddr = common.HexToAddress("0x0000000000000000000000000000000000C0FFEE")
)

func main() {
	cfg := params.LoadFromEnv("")
	if cfg.Domain.Exchange == (common.Address{}) {
		// Same development default the node applies
		cfg.Domain.Exchange = common.HexToAddress("0x0000000000000000000000000000000000001337")
	}

	// Step 1: Generate or load key
	var signer *crypto.Signer
	var err error
	if hexKey := os.Getenv("PRIVATE_KEY"); hexKey != "" {
		fmt.Println("Loading key from PRIVATE_KEY...")
		signer, err = crypto.FromPrivateKeyHex(hexKey)
	} else {
		fmt.Println("Generating new keypair...")
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Address: %s\n", signer.Address().Hex())
	fmt.Printf("Private Key: %s (KEEP SECRET!)\n\n", signer.PrivateKeyHex())

	// Step 2: Create a sell order listing asset #1 at a fixed price.
	// The 'to' word of the transfer payload is wildcarded so any buyer
	// template can fill it in at settlement.
	maker := signer.Address()
	callData := ledger.EncodeTransferFrom(maker, maker, big.NewInt(1)) // 'to' is a placeholder
	pattern := ledger.TransferFromPattern(false, true, false)

	order := &engine.Order{
		Exchange:           cfg.Domain.Exchange,
		Maker:              maker,
		FeeRecipient:       cfg.Fees.Admin,
		Target:             devAssetAddr,
		PaymentToken:       devTokenAddr,
		BasePrice:          big.NewInt(10_000),
		ListingTime:        uint64(time.Now().Unix()),
		ExpirationTime:     uint64(time.Now().Add(7 * 24 * time.Hour).Unix()),
		Salt:               big.NewInt(time.Now().UnixNano()),
		Side:               engine.SideSell,
		SaleKind:           engine.SaleKindFixed,
		CallKind:           engine.CallDirect,
		CallData:           callData,
		ReplacementPattern: pattern,
	}

	fmt.Println("Order Details:")
	fmt.Printf("  Side: %s\n", order.Side)
	fmt.Printf("  SaleKind: %s\n", order.SaleKind)
	fmt.Printf("  BasePrice: %s\n", order.BasePrice)
	fmt.Printf("  Target: %s\n", order.Target.Hex())
	fmt.Printf("  Maker: %s\n\n", order.Maker.Hex())

	// Step 3: Hash and sign
	hasher := engine.NewOrderHasher(cfg.Domain.Name, cfg.Domain.Version, cfg.Domain.ChainID, cfg.Domain.Exchange)
	orderHash := hasher.HashOrder(order)
	digest, err := hasher.HashToSign(order)
	if err != nil {
		fmt.Printf("Error hashing: %v\n", err)
		os.Exit(1)
	}

	signature, err := signer.Sign(digest.Bytes())
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Order Hash:   %s\n", orderHash.Hex())
	fmt.Printf("Hash To Sign: %s\n", digest.Hex())
	fmt.Printf("Signature:    %s\n\n", hexutil.Encode(signature))

	// Step 4: Verify signature
	fmt.Println("Verifying signature...")
	if !hasher.VerifyOrderSignature(order, signature) {
		fmt.Println("Signature INVALID")
		os.Exit(1)
	}
	fmt.Println("Signature VALID")

	recovered, _ := hasher.RecoverSigner(order, signature)
	fmt.Printf("  Signer: %s\n", recovered.Hex())
	fmt.Printf("  Matches maker: %v\n\n", recovered == order.Maker)

	// Step 5: Serialize for submission
	wire := api.OrderJSON{
		Exchange:           order.Exchange.Hex(),
		Maker:              order.Maker.Hex(),
		Taker:              order.Taker.Hex(),
		FeeRecipient:       order.FeeRecipient.Hex(),
		Target:             order.Target.Hex(),
		PaymentToken:       order.PaymentToken.Hex(),
		BasePrice:          order.BasePrice.String(),
		ListingTime:        order.ListingTime,
		ExpirationTime:     order.ExpirationTime,
		Salt:               order.Salt.String(),
		Side:               uint8(order.Side),
		SaleKind:           uint8(order.SaleKind),
		CallKind:           uint8(order.CallKind),
		CallData:           hexutil.Encode(order.CallData),
		ReplacementPattern: hexutil.Encode(order.ReplacementPattern),
	}

	body, err := json.MarshalIndent(map[string]interface{}{
		"order":     wire,
		"signature": hexutil.Encode(signature),
	}, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("To check the hash against a running node:")
	fmt.Println("  POST http://localhost:8080/api/v1/orders/hash")
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Body:")
	fmt.Println(string(body))
}
