package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrdersMatched is emitted once per successful settlement, after both order
// hashes are spent.
type OrdersMatched struct {
	BuyHash      common.Hash    `json:"buyHash"`
	SellHash     common.Hash    `json:"sellHash"`
	Price        *big.Int       `json:"price"`
	Maker        common.Address `json:"maker"`
	Taker        common.Address `json:"taker"`
	FeeRecipient common.Address `json:"feeRecipient"`
	Timestamp    int64          `json:"timestamp"`
}

// OrderCancelled is emitted once per successful cancellation.
type OrderCancelled struct {
	Hash      common.Hash    `json:"hash"`
	Maker     common.Address `json:"maker"`
	Timestamp int64          `json:"timestamp"`
}

// EventListener receives settlement events. Callbacks run synchronously on
// the settling goroutine while the engine lock is held; listeners that do
// real work should hand off to their own goroutine.
type EventListener interface {
	OnOrdersMatched(ev OrdersMatched)
	OnOrderCancelled(ev OrderCancelled)
}
