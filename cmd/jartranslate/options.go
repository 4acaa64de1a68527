package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"jar-translator/internal/llm/provider"
	"jar-translator/internal/scheduler"
	"jar-translator/internal/shared/telemetry"
)

const apiKeyEnv = "JARTRANSLATE_API_KEY"

// fileConfig is the optional --config document.
type fileConfig struct {
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key"`
	TargetLang   string        `yaml:"target_lang"`
	BatchSize    int           `yaml:"batch_size"`
	Window       int           `yaml:"window"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	Timeout      time.Duration `yaml:"timeout"`
}

// options are the resolved translation settings.
type options struct {
	Model        string
	APIKey       string
	TargetLang   string
	BatchSize    int
	Window       int
	BatchTimeout time.Duration
	Timeout      time.Duration
}

func defaultOptions() options {
	return options{
		Model:        provider.Deepseek,
		TargetLang:   "zh_cn",
		BatchSize:    scheduler.DefaultBatchSize,
		Window:       scheduler.DefaultWindow,
		BatchTimeout: scheduler.DefaultBatchTimeout,
		Timeout:      60 * time.Second,
	}
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if strings.TrimSpace(path) == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

// resolve layers the file config under the flags. A flag wins only when the
// user set it; an empty key falls back to the environment.
func resolve(fc fileConfig, flags options, changed func(string) bool, getenv func(string) string) (options, error) {
	out := defaultOptions()
	if fc.Model != "" {
		out.Model = fc.Model
	}
	if fc.APIKey != "" {
		out.APIKey = fc.APIKey
	}
	if fc.TargetLang != "" {
		out.TargetLang = fc.TargetLang
	}
	if fc.BatchSize > 0 {
		out.BatchSize = fc.BatchSize
	}
	if fc.Window > 0 {
		out.Window = fc.Window
	}
	if fc.BatchTimeout > 0 {
		out.BatchTimeout = fc.BatchTimeout
	}
	if fc.Timeout > 0 {
		out.Timeout = fc.Timeout
	}

	if changed("model") {
		out.Model = flags.Model
	}
	if changed("api-key") {
		out.APIKey = flags.APIKey
	}
	if changed("lang") {
		out.TargetLang = flags.TargetLang
	}
	if changed("batch-size") {
		out.BatchSize = flags.BatchSize
	}
	if changed("window") {
		out.Window = flags.Window
	}
	if changed("batch-timeout") {
		out.BatchTimeout = flags.BatchTimeout
	}
	if changed("timeout") {
		out.Timeout = flags.Timeout
	}

	if strings.TrimSpace(out.APIKey) == "" {
		out.APIKey = strings.TrimSpace(getenv(apiKeyEnv))
	}
	if out.BatchSize <= 0 || out.Window <= 0 {
		return out, errors.New("batch-size and window must be positive")
	}
	return out, nil
}

// quietLogs keeps zap output off the terminal unless --verbose is set.
func quietLogs() func() {
	if verbose {
		return telemetry.SetOutput(os.Stderr)
	}
	return telemetry.SetOutput(io.Discard)
}
