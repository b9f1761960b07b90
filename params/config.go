package params

import (
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Domain struct {
	Name    string
	Version string
	ChainID int64
	// Exchange is the address orders must bind to via their exchange field.
	// It doubles as the verifying contract of the signing domain and as the
	// delegate users authorize in the grant registry.
	Exchange common.Address
}

type Fees struct {
	// Basis points out of 10_000. MakerBps is deducted from the seller's
	// proceeds, TakerBps is charged to the buyer on top of the price.
	MakerBps uint64
	TakerBps uint64
	MaxBps   uint64
	Admin    common.Address
}

type Node struct {
	// GrantDelay is the minimum age of a pending authorization grant before
	// it can be finalized. A user has this whole window to notice and revoke
	// a grant requested for a rogue engine.
	GrantDelay time.Duration
	DataDir    string
	APIAddr    string
}

type Config struct {
	Domain Domain
	Fees   Fees
	Node   Node
}

func Default() Config {
	return Config{
		Domain: Domain{
			Name:    "NyaMarketplace",
			Version: "1.0.0",
			ChainID: 1337,
		},
		Fees: Fees{
			MakerBps: 250,
			TakerBps: 0,
			MaxBps:   5000,
		},
		Node: Node{
			GrantDelay: 24 * time.Hour,
			DataDir:    "data",
			APIAddr:    ":8080",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if name := os.Getenv("DOMAIN_NAME"); name != "" {
		cfg.Domain.Name = name
	}
	if version := os.Getenv("DOMAIN_VERSION"); version != "" {
		cfg.Domain.Version = version
	}
	if chainID := os.Getenv("CHAIN_ID"); chainID != "" {
		if id, err := strconv.ParseInt(chainID, 10, 64); err == nil {
			cfg.Domain.ChainID = id
		}
	}
	if exchange := os.Getenv("EXCHANGE_ADDRESS"); common.IsHexAddress(exchange) {
		cfg.Domain.Exchange = common.HexToAddress(exchange)
	}

	if makerBps := os.Getenv("MAKER_FEE_BPS"); makerBps != "" {
		if bps, err := strconv.ParseUint(makerBps, 10, 64); err == nil {
			cfg.Fees.MakerBps = bps
		}
	}
	if takerBps := os.Getenv("TAKER_FEE_BPS"); takerBps != "" {
		if bps, err := strconv.ParseUint(takerBps, 10, 64); err == nil {
			cfg.Fees.TakerBps = bps
		}
	}
	if admin := os.Getenv("FEE_ADMIN_ADDRESS"); common.IsHexAddress(admin) {
		cfg.Fees.Admin = common.HexToAddress(admin)
	}

	if delay := os.Getenv("GRANT_DELAY_SECONDS"); delay != "" {
		if secs, err := strconv.Atoi(delay); err == nil {
			cfg.Node.GrantDelay = time.Duration(secs) * time.Second
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.Node.DataDir = dataDir
	}
	if apiAddr := os.Getenv("API_ADDR"); apiAddr != "" {
		cfg.Node.APIAddr = apiAddr
	}

	return cfg
}
