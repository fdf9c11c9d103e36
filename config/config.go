package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"storychain/crypto"
)

// Config carries the daemon's startup settings.
type Config struct {
	RPCAddress      string `toml:"RPCAddress"`
	MetricsAddress  string `toml:"MetricsAddress"`
	DataDir         string `toml:"DataDir"`
	NodeKeystore    string `toml:"NodeKeystore"`
	NetworkName     string `toml:"NetworkName"`
	TokenBaseURI    string `toml:"TokenBaseURI"`
	RPCAuthToken    string `toml:"RPCAuthToken"`
	KeystorePass    string `toml:"-"`
	KeystorePassEnv string `toml:"KeystorePassEnv"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if cfg.KeystorePassEnv != "" {
		cfg.KeystorePass = os.Getenv(cfg.KeystorePassEnv)
	}
	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8546"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = "127.0.0.1:9464"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./storydata"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "story-local"
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write defaults: %w", err)
	}
	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.NodeKeystore
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
		cfg.NodeKeystore = keystorePath
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, cfg.KeystorePass); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "node.keystore")
}
