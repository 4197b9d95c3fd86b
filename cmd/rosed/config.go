package main

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultMaxCacheEntrySize = 1 << 20 // 1 MiB
	defaultServerAddress     = ":8080"
)

// config holds the process's environment-derived settings. The four
// variables listed here are the external contract: ROSE_FILES_DIR is
// required, the others fall back to sensible defaults.
type config struct {
	filesDir          string
	maxCacheSize      uint64
	maxCacheEntrySize uint64
	serverAddress     string
}

func loadConfig() (config, error) {
	filesDir, ok := os.LookupEnv("ROSE_FILES_DIR")
	if !ok || filesDir == "" {
		return config{}, fmt.Errorf("ROSE_FILES_DIR must be set")
	}
	if err := os.MkdirAll(filesDir, 0o750); err != nil {
		return config{}, fmt.Errorf("create ROSE_FILES_DIR %s: %w", filesDir, err)
	}

	maxCacheSize, err := parseUintEnv("ROSE_MAX_CACHE_SIZE", 0)
	if err != nil {
		return config{}, err
	}

	maxCacheEntrySize, err := parseUintEnv("ROSE_MAX_CACHE_ENTRY_SIZE", defaultMaxCacheEntrySize)
	if err != nil {
		return config{}, err
	}

	serverAddress := defaultServerAddress
	if v, ok := os.LookupEnv("SERVER_ADDRESS"); ok && v != "" {
		serverAddress = v
	}

	return config{
		filesDir:          filesDir,
		maxCacheSize:      maxCacheSize,
		maxCacheEntrySize: maxCacheEntrySize,
		serverAddress:     serverAddress,
	}, nil
}

func parseUintEnv(name string, fallback uint64) (uint64, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid unsigned integer %q: %w", name, v, err)
	}
	return n, nil
}
