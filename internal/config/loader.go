package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// envPrefix namespaces environment overrides, e.g. CHATBOT_EMBEDDING_MODEL.
const envPrefix = "CHATBOT_"

// Load loads configuration from an optional YAML file, then overrides
// with environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (CHATBOT_EMBEDDING_MODEL, CHATBOT_STORE_BASE_PATH, ...)
//  2. YAML config file
//  3. Defaults
//
// Environment variables map to config keys by stripping the prefix,
// lowercasing, and splitting section from field on the first underscore:
//
//	CHATBOT_EMBEDDING_MAX_BATCH_SIZE -> embedding.max_batch_size
//	CHATBOT_RETRIEVAL_TOP_K          -> retrieval.top_k
//
// A missing config file is not an error; defaults plus environment apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := readConfigFile(configPath)
			if err != nil {
				return nil, err
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// CHATBOT_EMBEDDING_MAX_BATCH_SIZE -> embedding.max_batch_size
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// readConfigFile opens and reads the config file, enforcing a size cap
// to guard against accidental or hostile oversized files.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
