package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// RemotesConfig holds all named remotes and tracks which one is active.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named server profile.
type Remote struct {
	URL      string `toml:"url"`
	GRPCAddr string `toml:"grpc_addr,omitempty"`
	Token    string `toml:"token,omitempty"`
	NATSURL  string `toml:"nats_url,omitempty"`
}

func remoteConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "pipelines")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	path, err := remoteConfigPath()
	if err != nil {
		return RemotesConfig{}, err
	}
	var cfg RemotesConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return RemotesConfig{Remotes: map[string]Remote{}}, nil
		}
		return RemotesConfig{}, err
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Active remote values, loaded once per process.
var (
	remoteOnce   sync.Once
	activeRemote Remote
)

func loadActiveRemoteOnce() {
	remoteOnce.Do(func() {
		cfg, err := loadRemotesConfig()
		if err != nil || cfg.Active == "" {
			return
		}
		activeRemote = cfg.Remotes[cfg.Active]
	})
}

func activeRemoteURL() string {
	loadActiveRemoteOnce()
	return activeRemote.URL
}

func activeRemoteGRPCAddr() string {
	loadActiveRemoteOnce()
	return activeRemote.GRPCAddr
}

func activeRemoteToken() string {
	loadActiveRemoteOnce()
	return activeRemote.Token
}

func activeRemoteNATSURL() string {
	loadActiveRemoteOnce()
	return activeRemote.NATSURL
}
