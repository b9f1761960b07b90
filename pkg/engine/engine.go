package engine

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/nyalabs/nyax/pkg/util"
)

// FeeDenominator scales fee rates: a rate of 250 is 2.5%.
const FeeDenominator = 10_000

// Target is an asset-transfer endpoint. The engine treats it as an opaque
// capability: it forwards the settled call payload and verifies via the
// state digest that recorded ownership actually changed. A call that
// "succeeds" without changing state is still a failed transfer.
type Target interface {
	Call(caller common.Address, data []byte) error
	StateDigest() common.Hash
}

// TokenLedger is a fungible payment asset the engine pull-transfers from.
// BalanceOf and Allowance exist so the payment leg can be proven viable
// before the asset leg executes.
type TokenLedger interface {
	TransferFrom(payer, payee common.Address, amount *big.Int) error
	BalanceOf(owner common.Address) *big.Int
	Allowance(owner, spender common.Address) *big.Int
}

// NativeLedger moves the native payment unit.
type NativeLedger interface {
	Transfer(from, to common.Address, amount *big.Int) error
	BalanceOf(owner common.Address) *big.Int
}

// Config is the engine's static identity and fee policy.
type Config struct {
	// Address identifies this engine instance. Orders bind to it, the
	// signing domain separates on it, and it is the delegate principals
	// authorize.
	Address       common.Address
	DomainName    string
	DomainVersion string
	ChainID       int64

	MakerFeeBps uint64
	TakerFeeBps uint64
	MaxFeeBps   uint64
	// FeeAdmin is the only principal allowed to change fee rates.
	FeeAdmin common.Address
}

// Engine is the settlement orchestrator: it validates, prices and settles
// pairs of signed orders atomically. One mutex serializes every
// state-mutating entry point, so each settlement runs to completion or
// fully aborts before any other attempt observes its effects.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	hasher *OrderHasher
	status *StatusRegistry
	authz  *AuthRegistry

	targets map[common.Address]Target
	ledgers map[common.Address]TokenLedger
	native  NativeLedger

	makerFeeBps uint64
	takerFeeBps uint64

	clock     util.Clock
	log       *zap.Logger
	listeners []EventListener
}

func New(cfg Config, status *StatusRegistry, authz *AuthRegistry, native NativeLedger, clock util.Clock, log *zap.Logger) *Engine {
	return &Engine{
		cfg:         cfg,
		hasher:      NewOrderHasher(cfg.DomainName, cfg.DomainVersion, cfg.ChainID, cfg.Address),
		status:      status,
		authz:       authz,
		targets:     make(map[common.Address]Target),
		ledgers:     make(map[common.Address]TokenLedger),
		native:      native,
		makerFeeBps: cfg.MakerFeeBps,
		takerFeeBps: cfg.TakerFeeBps,
		clock:       clock,
		log:         log,
	}
}

// Address returns the engine instance address.
func (e *Engine) Address() common.Address { return e.cfg.Address }

// Hasher exposes the order hasher (signing tools, API layer).
func (e *Engine) Hasher() *OrderHasher { return e.hasher }

// Authorizations exposes the grant registry.
func (e *Engine) Authorizations() *AuthRegistry { return e.authz }

// RegisterTarget makes an asset-transfer endpoint callable. Orders naming
// an unregistered target fail settlement with ErrInvalidTarget.
func (e *Engine) RegisterTarget(addr common.Address, t Target) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targets[addr] = t
}

// RegisterLedger makes a fungible payment asset usable.
func (e *Engine) RegisterLedger(addr common.Address, l TokenLedger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledgers[addr] = l
}

// Subscribe registers an event listener.
func (e *Engine) Subscribe(l EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// FeeRates returns the current maker and taker rates in basis points.
func (e *Engine) FeeRates() (maker, taker uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.makerFeeBps, e.takerFeeBps
}

// SetMakerFeeBps changes the maker fee rate. Admin-only, capped.
func (e *Engine) SetMakerFeeBps(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.cfg.FeeAdmin {
		return ErrNotAdmin
	}
	if bps > e.cfg.MaxFeeBps {
		return fmt.Errorf("%w: maker fee %d > max %d", ErrFeeTooHigh, bps, e.cfg.MaxFeeBps)
	}
	e.makerFeeBps = bps
	e.log.Info("maker fee changed", zap.Uint64("bps", bps), zap.String("admin", caller.Hex()))
	return nil
}

// SetTakerFeeBps changes the taker fee rate. Admin-only, capped.
func (e *Engine) SetTakerFeeBps(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.cfg.FeeAdmin {
		return ErrNotAdmin
	}
	if bps > e.cfg.MaxFeeBps {
		return fmt.Errorf("%w: taker fee %d > max %d", ErrFeeTooHigh, bps, e.cfg.MaxFeeBps)
	}
	e.takerFeeBps = bps
	e.log.Info("taker fee changed", zap.Uint64("bps", bps), zap.String("admin", caller.Hex()))
	return nil
}

// HashOrder returns the canonical order digest.
func (e *Engine) HashOrder(o *Order) common.Hash { return e.hasher.HashOrder(o) }

// HashToSign returns the EIP-712 digest wallets sign for the order.
func (e *Engine) HashToSign(o *Order) (common.Hash, error) { return e.hasher.HashToSign(o) }

// CalldataCanMatch is the pure dry run of the template matcher.
func (e *Engine) CalldataCanMatch(buyData, buyMask, sellData, sellMask []byte) bool {
	return TemplatesCompatible(buyData, buyMask, sellData, sellMask)
}

// OrdersCanMatch is a pure dry run of the side/role, pricing and calldata
// gates against the engine's clock. It never touches order status or
// signatures, so a true result can still lose to a competing settlement.
func (e *Engine) OrdersCanMatch(buy, sell *Order) bool {
	if err := e.checkPair(buy, sell); err != nil {
		return false
	}
	if ResolveMatchPrice(buy, sell, e.clock.Now()) == nil {
		return false
	}
	return TemplatesCompatible(buy.CallData, buy.ReplacementPattern, sell.CallData, sell.ReplacementPattern)
}

// checkPair runs per-side structural validation and the side/role gates,
// keeping the buy- and sell-specific diagnostics distinct.
func (e *Engine) checkPair(buy, sell *Order) error {
	if reason := buy.validate(e.cfg.Address); reason != "" {
		return fmt.Errorf("%w: invalid buy order: %s", ErrInvalidOrderParams, reason)
	}
	if reason := sell.validate(e.cfg.Address); reason != "" {
		return fmt.Errorf("%w: invalid sell order: %s", ErrInvalidOrderParams, reason)
	}
	if buy.Side != SideBuy {
		return fmt.Errorf("%w: invalid buy order: wrong side", ErrInvalidOrderParams)
	}
	if sell.Side != SideSell {
		return fmt.Errorf("%w: invalid sell order: wrong side", ErrInvalidOrderParams)
	}
	if sell.Taker != AddressWildcard && sell.Taker != buy.Maker {
		return fmt.Errorf("%w: invalid sell order: taker restriction excludes buyer", ErrInvalidOrderParams)
	}
	if buy.Taker != AddressWildcard && buy.Taker != sell.Maker {
		return fmt.Errorf("%w: invalid buy order: taker restriction excludes seller", ErrInvalidOrderParams)
	}
	if buy.Target != sell.Target {
		return fmt.Errorf("%w: target mismatch", ErrInvalidOrderParams)
	}
	if buy.PaymentToken != sell.PaymentToken {
		return fmt.Errorf("%w: payment asset mismatch", ErrInvalidOrderParams)
	}
	if buy.CallKind != sell.CallKind {
		return fmt.Errorf("%w: call kind mismatch", ErrInvalidOrderParams)
	}
	return nil
}

// Cancel permanently spends the order's hash. Only the maker (or, for an
// order naming them, the taker) may cancel: either the caller is that
// principal, or the signature recovers to them. Cancelling a spent hash
// fails ErrAlreadyFinalized.
func (e *Engine) Cancel(o *Order, signature []byte, caller common.Address) (common.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reason := o.validate(e.cfg.Address); reason != "" {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrInvalidOrderParams, reason)
	}

	h := e.hasher.HashOrder(o)
	selfAuthorized := caller == o.Maker || (o.Taker != AddressWildcard && caller == o.Taker)
	if !selfAuthorized && !e.hasher.VerifyOrderSignature(o, signature) {
		return common.Hash{}, ErrInvalidSignatureOrCancelled
	}

	if err := e.status.MarkFinalized(h); err != nil {
		return common.Hash{}, err
	}

	ev := OrderCancelled{Hash: h, Maker: o.Maker, Timestamp: e.clock.Now().Unix()}
	for _, l := range e.listeners {
		l.OnOrderCancelled(ev)
	}
	e.log.Info("order cancelled",
		zap.String("hash", h.Hex()),
		zap.String("maker", o.Maker.Hex()))
	return h, nil
}

// MatchInput carries everything one settlement attempt needs. Value is the
// native amount attached by the caller; nil means zero. A side whose maker
// is the caller needs no signature (caller-as-signer shortcut).
type MatchInput struct {
	Buy     *Order
	Sell    *Order
	BuySig  []byte
	SellSig []byte
	Caller  common.Address
	Value   *big.Int
}

// MatchResult reports a successful settlement.
type MatchResult struct {
	Price        *big.Int
	BuyHash      common.Hash
	SellHash     common.Hash
	FeeRecipient common.Address
}

// AtomicMatch validates, prices and settles a buy/sell pair in one
// indivisible step. Every gate aborts the whole operation with zero state
// change; exactly one of "nothing happened" and "asset moved and payment
// moved" is observable afterwards.
func (e *Engine) AtomicMatch(in MatchInput) (*MatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buy, sell := in.Buy, in.Sell
	now := e.clock.Now()

	// Structural and side/role gates.
	if err := e.checkPair(buy, sell); err != nil {
		return nil, err
	}
	target, ok := e.targets[sell.Target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, sell.Target.Hex())
	}

	// Hash, signature and spent-status gates. Status and signature failures
	// share one error class on purpose.
	buyHash := e.hasher.HashOrder(buy)
	sellHash := e.hasher.HashOrder(sell)

	if e.status.IsFinalized(buyHash) || e.status.IsFinalized(sellHash) {
		return nil, ErrInvalidSignatureOrCancelled
	}
	if in.Caller != buy.Maker {
		if signer, err := e.hasher.RecoverSigner(buy, in.BuySig); err != nil || signer != buy.Maker {
			return nil, fmt.Errorf("%w: buy order", ErrInvalidSignatureOrCancelled)
		}
	}
	if in.Caller != sell.Maker {
		if signer, err := e.hasher.RecoverSigner(sell, in.SellSig); err != nil || signer != sell.Maker {
			return nil, fmt.Errorf("%w: sell order", ErrInvalidSignatureOrCancelled)
		}
	}

	// Price resolution: buyer's price is a ceiling, settlement happens at
	// the seller's resolved price.
	price := ResolveMatchPrice(buy, sell, now)
	if price == nil {
		return nil, fmt.Errorf("%w: buy price below sell price or window closed", ErrOrdersNotMatched)
	}

	// Calldata compatibility.
	if !TemplatesCompatible(buy.CallData, buy.ReplacementPattern, sell.CallData, sell.ReplacementPattern) {
		return nil, ErrIncompatibleCalldata
	}

	// Fee resolution: the side naming an explicit recipient pays the fee
	// schedule; the sell side wins when both do. With no recipient on
	// either side no fee is charged.
	feeRecipient := sell.FeeRecipient
	if feeRecipient == AddressWildcard {
		feeRecipient = buy.FeeRecipient
	}
	makerFee := new(big.Int)
	takerFee := new(big.Int)
	if feeRecipient != AddressWildcard {
		makerFee.Mul(price, new(big.Int).SetUint64(e.makerFeeBps))
		makerFee.Quo(makerFee, big.NewInt(FeeDenominator))
		takerFee.Mul(price, new(big.Int).SetUint64(e.takerFeeBps))
		takerFee.Quo(takerFee, big.NewInt(FeeDenominator))
	}
	required := new(big.Int).Add(price, takerFee)
	sellerProceeds := new(big.Int).Sub(price, makerFee)

	// Payment-leg pre-flight before the asset leg runs, so a payment
	// failure can never strand a completed asset transfer.
	isNative := sell.PaymentToken == AddressWildcard
	var ledger TokenLedger
	if isNative {
		if e.native == nil {
			return nil, fmt.Errorf("%w: no native ledger configured", ErrFeeTransferFailed)
		}
		if in.Caller != buy.Maker {
			return nil, fmt.Errorf("%w: invalid buy order: native payment must be settled by the buyer", ErrInvalidOrderParams)
		}
		attached := bigOrZero(in.Value)
		if attached.Cmp(required) < 0 {
			return nil, fmt.Errorf("%w: attached %s, required %s", ErrInsufficientFunds, attached, required)
		}
		if attached.Cmp(required) > 0 {
			return nil, fmt.Errorf("%w: attached %s, required %s", ErrOverpaymentRejected, attached, required)
		}
		if e.native.BalanceOf(buy.Maker).Cmp(required) < 0 {
			return nil, fmt.Errorf("%w: buyer balance below required total", ErrInsufficientFunds)
		}
	} else {
		ledger, ok = e.ledgers[sell.PaymentToken]
		if !ok {
			return nil, fmt.Errorf("%w: unknown payment asset %s", ErrInvalidOrderParams, sell.PaymentToken.Hex())
		}
		if ledger.BalanceOf(buy.Maker).Cmp(required) < 0 {
			return nil, fmt.Errorf("%w: buyer balance below required total", ErrInsufficientFunds)
		}
		if ledger.Allowance(buy.Maker, e.cfg.Address).Cmp(required) < 0 {
			return nil, fmt.Errorf("%w: buyer allowance below required total", ErrInsufficientFunds)
		}
	}

	// Authorization gate: the principal whose asset moves must hold an
	// active grant naming this engine as delegate.
	if !e.authz.IsActive(sell.Maker, e.cfg.Address) {
		return nil, fmt.Errorf("%w: %s", ErrNotAuthorized, sell.Maker.Hex())
	}

	// Asset leg: fill the sell template's wildcards from the buy payload
	// and dispatch. The state-digest comparison is the ownership
	// post-condition; a no-op call is a failed transfer.
	effective, ok := ApplyMask(sell.CallData, sell.ReplacementPattern, buy.CallData)
	if !ok {
		return nil, ErrIncompatibleCalldata
	}
	callerIdentity := e.cfg.Address
	if sell.CallKind == CallThroughAgent {
		callerIdentity = sell.Maker
	}
	before := target.StateDigest()
	if err := target.Call(callerIdentity, effective); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetTransferFailed, err)
	}
	if target.StateDigest() == before {
		return nil, fmt.Errorf("%w: call succeeded but ownership did not change", ErrAssetTransferFailed)
	}

	// Payment leg with fee split. Each sub-transfer keeps its own
	// diagnostic so a relayer can tell which recipient's leg broke.
	transfer := func(to common.Address, amount *big.Int) error {
		if isNative {
			return e.native.Transfer(buy.Maker, to, amount)
		}
		return ledger.TransferFrom(buy.Maker, to, amount)
	}
	if makerFee.Sign() > 0 {
		if err := transfer(feeRecipient, makerFee); err != nil {
			return nil, fmt.Errorf("%w: fee transfer to maker recipient: %v", ErrFeeTransferFailed, err)
		}
	}
	if takerFee.Sign() > 0 {
		if err := transfer(feeRecipient, takerFee); err != nil {
			return nil, fmt.Errorf("%w: fee transfer to taker recipient: %v", ErrFeeTransferFailed, err)
		}
	}
	if sellerProceeds.Sign() > 0 {
		if err := transfer(sell.Maker, sellerProceeds); err != nil {
			return nil, fmt.Errorf("%w: payment to seller: %v", ErrFeeTransferFailed, err)
		}
	}

	// Spend both hashes and emit. The pre-check above plus the engine lock
	// make this set unreachable by any competing attempt.
	if err := e.status.MarkPairFinalized(buyHash, sellHash); err != nil {
		return nil, err
	}

	ev := OrdersMatched{
		BuyHash:      buyHash,
		SellHash:     sellHash,
		Price:        new(big.Int).Set(price),
		Maker:        sell.Maker,
		Taker:        buy.Maker,
		FeeRecipient: feeRecipient,
		Timestamp:    now.Unix(),
	}
	for _, l := range e.listeners {
		l.OnOrdersMatched(ev)
	}
	e.log.Info("orders matched",
		zap.String("buyHash", buyHash.Hex()),
		zap.String("sellHash", sellHash.Hex()),
		zap.String("price", price.String()),
		zap.String("maker", sell.Maker.Hex()),
		zap.String("taker", buy.Maker.Hex()))

	return &MatchResult{
		Price:        new(big.Int).Set(price),
		BuyHash:      buyHash,
		SellHash:     sellHash,
		FeeRecipient: feeRecipient,
	}, nil
}
