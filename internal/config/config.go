// Package config holds the proxy's process-wide configuration.
//
// The source keeps a single config object behind a reentrant lock so that
// nested reads during a save (or vice versa) never deadlock. Go's sync.Mutex
// isn't reentrant, so this package uses a single non-reentrant mutex and is
// careful never to call a locking method from inside another one (mirroring
// the discipline the reentrant lock enforced automatically in the source).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// OutputFormat selects how the XML tokenizer renders recognized tags to the
// client. See internal/xmlproto.
type OutputFormat string

const (
	FormatRaw    OutputFormat = "raw"
	FormatNormal OutputFormat = "normal"
	FormatTintin OutputFormat = "tintin"
)

// ProxyConfig is the single process-wide, mutex-guarded configuration
// object. It is injected at startup rather than kept as a package-level
// global, per spec.md §9's design note.
type ProxyConfig struct {
	mu sync.Mutex

	ListenAddr       string       `json:"listen_addr"`
	RemoteHost       string       `json:"remote_host"`
	RemotePort       int          `json:"remote_port"`
	OutputFormat     OutputFormat `json:"output_format"`
	PromptTerminator string       `json:"prompt_terminator"` // empty = preserve raw IAC GA
	Editor           string       `json:"editor"`
	Pager            string       `json:"pager"`
	AutoMapping      bool         `json:"auto_mapping"`
	AutoUpdating     bool         `json:"auto_updating"`
	AutoMerging      bool         `json:"auto_merging"`
	AutoLinking      bool         `json:"auto_linking"`

	path string
}

// Default returns the configuration's default values, matching spec.md §6's
// documented defaults and the TINTINEDITOR/TINTINPAGER environment
// conventions.
func Default() *ProxyConfig {
	editor := os.Getenv("TINTINEDITOR")
	if editor == "" {
		editor = defaultEditor()
	}
	pager := os.Getenv("TINTINPAGER")
	if pager == "" {
		pager = defaultPager()
	}
	return &ProxyConfig{
		ListenAddr:   "127.0.0.1:4000",
		RemoteHost:   "mume.org",
		RemotePort:   4242,
		OutputFormat: FormatNormal,
		Editor:       editor,
		Pager:        pager,
		AutoMapping:  true,
		AutoUpdating: true,
		AutoMerging:  true,
		AutoLinking:  true,
	}
}

// ConfigDir returns the directory configuration and map files live in,
// honoring an environment override the way the teacher's config/triggers/
// ticktimer packages all do.
func ConfigDir() (string, error) {
	if dir := os.Getenv("MUDPROXY_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".config", "mudproxy")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Load reads configuration from the given path, falling back to defaults
// (and recording the path for later Save calls) if the file does not exist.
// A corrupted file is surfaced as an error; callers are expected to fall
// back to Default() per spec.md §7's configuration error handling.
func Load(path string) (*ProxyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.path = path
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.path = path
	return cfg, nil
}

// Save persists the configuration as indented JSON.
func (c *ProxyConfig) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *ProxyConfig) saveLocked() error {
	path := c.path
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.json")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the configuration safe to read without holding
// the lock further.
func (c *ProxyConfig) Snapshot() ProxyConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *c
	cp.mu = sync.Mutex{}
	return cp
}

// SetOutputFormat updates the output format and persists the change.
func (c *ProxyConfig) SetOutputFormat(f OutputFormat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OutputFormat = f
	return c.saveLocked()
}

// SetAutoMapping updates the auto-mapping flag and persists the change.
func (c *ProxyConfig) SetAutoMapping(v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AutoMapping = v
	return c.saveLocked()
}

// SetAutoUpdating updates the auto-updating flag and persists the change.
func (c *ProxyConfig) SetAutoUpdating(v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AutoUpdating = v
	return c.saveLocked()
}

// SetAutoMerging updates the auto-merging flag and persists the change.
func (c *ProxyConfig) SetAutoMerging(v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AutoMerging = v
	return c.saveLocked()
}

// SetAutoLinking updates the auto-linking flag and persists the change.
func (c *ProxyConfig) SetAutoLinking(v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AutoLinking = v
	return c.saveLocked()
}

func defaultEditor() string {
	if isWindows() {
		return "notepad"
	}
	return "nano -w"
}

func defaultPager() string {
	if isWindows() {
		return "notepad"
	}
	return "less"
}
