package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nyalabs/nyax/params"
	"github.com/nyalabs/nyax/pkg/api"
	"github.com/nyalabs/nyax/pkg/engine"
	"github.com/nyalabs/nyax/pkg/ledger"
	"github.com/nyalabs/nyax/pkg/storage"
	"github.com/nyalabs/nyax/pkg/util"
)

// Development defaults when EXCHANGE_ADDRESS is not configured. The engine
// address must be nonzero: the zero address is the wildcard in orders.
var defaultExchange = common.HexToAddress("0x0000000000000000000000000000000000001337")

// Deterministic devnet endpoint addresses (ENABLE_DEVNET=true).
var (
	devAssetAddr  = common.HexToAddress("0x00000000000000000000000000000000000A55E7")
	devTokenAddr  = common.HexToAddress("0x0000000000000000000000000000000000C0FFEE")
	devBundleAddr = common.HexToAddress("0x0000000000000000000000000000000000B0D1E5")
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/node.log"
	}

	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	if cfg.Domain.Exchange == (common.Address{}) {
		cfg.Domain.Exchange = defaultExchange
		sugar.Infow("exchange_address_defaulted", "addr", cfg.Domain.Exchange.Hex())
	}
	if cfg.Fees.Admin == (common.Address{}) {
		sugar.Warn("no FEE_ADMIN_ADDRESS configured - fee rates are frozen")
	}

	// ---- Storage ----
	if err := os.MkdirAll(cfg.Node.DataDir, 0755); err != nil {
		sugar.Fatalw("data_dir_failed", "err", err)
	}
	store, err := storage.NewPebbleStore(filepath.Join(cfg.Node.DataDir, "state"))
	if err != nil {
		sugar.Fatalw("storage_init_failed", "err", err)
	}
	defer store.Close()

	// ---- Registries ----
	status, err := engine.NewStatusRegistry(store)
	if err != nil {
		sugar.Fatalw("status_registry_failed", "err", err)
	}
	authz, err := engine.NewAuthRegistry(cfg.Node.GrantDelay, util.RealClock{}, store, logger)
	if err != nil {
		sugar.Fatalw("auth_registry_failed", "err", err)
	}

	// ---- Settlement engine ----
	native := ledger.NewNativeBank()
	eng := engine.New(engine.Config{
		Address:       cfg.Domain.Exchange,
		DomainName:    cfg.Domain.Name,
		DomainVersion: cfg.Domain.Version,
		ChainID:       cfg.Domain.ChainID,
		MakerFeeBps:   cfg.Fees.MakerBps,
		TakerFeeBps:   cfg.Fees.TakerBps,
		MaxFeeBps:     cfg.Fees.MaxBps,
		FeeAdmin:      cfg.Fees.Admin,
	}, status, authz, native, util.RealClock{}, logger)

	sugar.Infow("engine_initialized",
		"exchange", cfg.Domain.Exchange.Hex(),
		"chain_id", cfg.Domain.ChainID,
		"maker_fee_bps", cfg.Fees.MakerBps,
		"taker_fee_bps", cfg.Fees.TakerBps,
		"grant_delay", cfg.Node.GrantDelay.String())

	// ---- Devnet endpoints (optional) ----
	// ENABLE_DEVNET=true wires an in-process asset registry, payment token
	// and bundling endpoint so orders can settle without external state.
	if os.Getenv("ENABLE_DEVNET") == "true" {
		asset := ledger.NewAssetToken("dev-asset")
		token := ledger.NewFungibleToken("dev-token", cfg.Domain.Exchange)
		bundle := ledger.NewMultiSend()
		bundle.Register(devAssetAddr, asset)

		eng.RegisterTarget(devAssetAddr, asset)
		eng.RegisterTarget(devBundleAddr, bundle)
		eng.RegisterLedger(devTokenAddr, token)

		// Seed a few assets and balances for manual testing
		if seed := os.Getenv("DEVNET_SEED_ADDRESS"); common.IsHexAddress(seed) {
			addr := common.HexToAddress(seed)
			for i := int64(1); i <= 3; i++ {
				asset.Mint(addr, big.NewInt(i))
			}
			token.Mint(addr, big.NewInt(1_000_000))
			native.Deposit(addr, big.NewInt(1_000_000))
			sugar.Infow("devnet_seeded", "addr", addr.Hex())
		}

		sugar.Infow("devnet_enabled",
			"asset", devAssetAddr.Hex(),
			"token", devTokenAddr.Hex(),
			"bundle", devBundleAddr.Hex())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(eng)
	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Node.APIAddr)
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")
}
