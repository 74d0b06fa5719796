package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/badgeops/badgelink/internal/link"
)

// cliConfig is the resolved tool configuration: where the device is and how
// patient the link should be.
type cliConfig struct {
	Port string
	Baud int
	Link link.Config
}

func defaultCliConfig() cliConfig {
	return cliConfig{
		Baud: 115200,
		Link: link.DefaultConfig(),
	}
}

// fileConfig is the badgelink.toml key mapping.
type fileConfig struct {
	Port             string `toml:"port"`
	Baud             int    `toml:"baud"`
	DefaultTimeoutMS int    `toml:"default_timeout_ms"`
	ChunkTimeoutMS   int    `toml:"chunk_timeout_ms"`
	XferTimeoutMS    int    `toml:"xfer_timeout_ms"`
	SyncTries        int    `toml:"sync_tries"`
}

// loadCliConfig overlays badgelink.toml onto defaults; keys absent from the
// file keep their default.
func loadCliConfig(path string) (cliConfig, error) {
	cfg := defaultCliConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("default_timeout_ms") {
		cfg.Link.DefaultTimeout = time.Duration(raw.DefaultTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("chunk_timeout_ms") {
		cfg.Link.ChunkTimeout = time.Duration(raw.ChunkTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("xfer_timeout_ms") {
		cfg.Link.XferTimeout = time.Duration(raw.XferTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("sync_tries") {
		cfg.Link.SyncTries = raw.SyncTries
	}
	return cfg, nil
}
