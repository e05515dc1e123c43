package config

import (
	"errors"
	"os"
	"time"

	"fhepoker-client/internal/util"
	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/poller"
	"fhepoker-client/pkg/txtracker"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// storage drivers
const (
	StorageBolt     = "bolt"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config provides configuration for the poker client
type Config struct {
	loaded bool

	ListenAddr      string `yaml:"listenAddr" envconfig:"listen_addr"`
	RPCURL          string `yaml:"rpcUrl" envconfig:"rpc_url"`
	WSURL           string `yaml:"wsUrl" envconfig:"ws_url"`
	ChainID         int64  `yaml:"chainId" envconfig:"chain_id"`
	ContractAddress string `yaml:"contractAddress" envconfig:"contract_address"`
	PrivateKey      string `yaml:"privateKey" envconfig:"private_key"`
	PlayerAddress   string `yaml:"playerAddress" envconfig:"player_address"`

	PollInterval        time.Duration `yaml:"pollInterval" envconfig:"poll_interval"`
	ConfirmFallback     time.Duration `yaml:"confirmFallback" envconfig:"confirm_fallback"`
	StallTimeout        time.Duration `yaml:"stallTimeout" envconfig:"stall_timeout"`
	ReceiptPollInterval time.Duration `yaml:"receiptPollInterval" envconfig:"receipt_poll_interval"`

	Storage struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"storage"`
	PGDSN          string `yaml:"pgDsn" envconfig:"pg_dsn"`
	MigrationsPath string `yaml:"migrationsPath" envconfig:"migrations_path"`

	JWT struct {
		PublicKey  string `yaml:"publicKey" envconfig:"public_key"`
		PrivateKey string `yaml:"privateKey" envconfig:"private_key"`
	} `yaml:"jwt"`

	Decrypt struct {
		URL string `yaml:"url"`
	} `yaml:"decrypt"`

	Log struct {
		Level             string `yaml:"level"`
		DisableAccessLogs bool   `yaml:"disableAccessLogs" envconfig:"disable_access_logs"`
	} `yaml:"log"`
}

var config Config

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	var c Config
	c.ListenAddr = ":5000"
	c.RPCURL = "https://ethereum-sepolia-rpc.publicnode.com"
	c.WSURL = "wss://ethereum-sepolia-rpc.publicnode.com"
	c.ChainID = ledger.DefaultChainID
	c.ContractAddress = ledger.DefaultContractAddress
	c.PollInterval = poller.DefaultInterval
	c.ConfirmFallback = txtracker.DefaultConfirmFallback
	c.StallTimeout = txtracker.DefaultStallTimeout
	c.ReceiptPollInterval = 4 * time.Second
	c.Storage.Driver = StorageBolt
	c.Storage.Path = "fhepoker.db"
	c.MigrationsPath = "sql"
	c.JWT.PublicKey = "public.pem"
	c.JWT.PrivateKey = "private.key"
	c.Log.Level = "info"

	return c
}

// Instance returns a singleton instance
// If the config hasn't been loaded, it will be loaded
func Instance() Config {
	if !config.loaded {
		if err := Load(); err != nil {
			panic(err)
		}
	}

	return config
}

// Load will load the configuration
// The file is optional. Environment variables override it
func Load() error {
	c := DefaultConfig()

	configFile := util.Getenv("FHEPOKER_CONFIG_FILE", "config.yaml")
	file, err := os.Open(configFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if file != nil {
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&c); err != nil {
			return err
		}
	}

	if err := envconfig.Process("fhepoker", &c); err != nil {
		return err
	}

	c.loaded = true
	config = c
	return nil
}

// Validate returns an error if a required setting is missing
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("rpcUrl is required")
	}

	switch c.Storage.Driver {
	case StorageBolt:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the bolt driver")
		}
	case StoragePostgres:
		if c.PGDSN == "" {
			return errors.New("pgDsn is required for the postgres driver")
		}
	case StorageMemory:
	default:
		return errors.New("storage.driver must be bolt, postgres or memory")
	}

	return nil
}
