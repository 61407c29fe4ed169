package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	RPCAddress       string `toml:"RPCAddress"`
	DataDir          string `toml:"DataDir"`
	NetworkName      string `toml:"NetworkName"`
	AuthorityAddress string `toml:"AuthorityAddress"`
	RPCTokenEnv      string `toml:"RPCTokenEnv"`
}

const (
	defaultRPCAddress  = ":8645"
	defaultDataDir     = "./loyalty-data"
	defaultNetworkName = "loyalty-local"
	defaultRPCTokenEnv = "LOYALTY_RPC_TOKEN"
)

// Load loads the configuration from the given path. A missing file is created
// with defaults so a fresh checkout can start immediately; the authority
// address still has to be filled in before mints are possible.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = defaultRPCAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = defaultNetworkName
	}
	if strings.TrimSpace(cfg.RPCTokenEnv) == "" {
		cfg.RPCTokenEnv = defaultRPCTokenEnv
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Authority parses the configured minting authority address. Mint and
// transferability changes are rejected for every other caller, so the field is
// mandatory.
func (c *Config) Authority() (common.Address, error) {
	trimmed := strings.TrimSpace(c.AuthorityAddress)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("config: AuthorityAddress is required")
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("config: invalid AuthorityAddress %q", c.AuthorityAddress)
	}
	addr := common.HexToAddress(trimmed)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("config: AuthorityAddress must not be the zero address")
	}
	return addr, nil
}

// RPCToken resolves the bearer token guarding mutating RPC methods from the
// configured environment variable. An empty result disables authentication,
// which is only sensible for local development.
func (c *Config) RPCToken() string {
	env := strings.TrimSpace(c.RPCTokenEnv)
	if env == "" {
		env = defaultRPCTokenEnv
	}
	return strings.TrimSpace(os.Getenv(env))
}
