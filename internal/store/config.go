package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"kanban-cli/internal/settings"
)

type GlobalConfig struct {
	// DefaultFile is the board used when neither --file nor KANBAN_FILE is set.
	DefaultFile string `json:"defaultFile,omitempty"`

	// IndexDir enables the SQLite index for every board when set.
	IndexDir string `json:"indexDir,omitempty"`

	// Format is the default CLI output format ("json" or "text").
	Format string `json:"format,omitempty"`

	// Settings are layered under each board's own settings block.
	Settings settings.Settings `json:"settings,omitempty"`

	TUI *TUIConfig `json:"tui,omitempty"`
	Git *GitConfig `json:"git,omitempty"`
}

type GitConfig struct {
	// AutoCommit commits the board file after every save when it lives in a git repository.
	AutoCommit bool `json:"autoCommit,omitempty"`
	// DebounceMs batches TUI saves into one commit; 0 means two seconds.
	DebounceMs int `json:"debounceMs,omitempty"`
}

type TUIConfig struct {
	// LaneWidth is the column width in cells; 0 picks a width from the terminal size.
	LaneWidth int `json:"laneWidth,omitempty"`
	// Appearance picks the palette: default, dracula, solarized or mono.
	Appearance string `json:"appearance,omitempty"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.kanban).
	if v := strings.TrimSpace(os.Getenv("KANBAN_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".kanban"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig reads the global config. The file is JSONC; a missing file is an empty config.
func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	std, err := hujson.Standardize(b)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid JSONC: %w", path, err)
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Settings != nil {
		if err := settings.Validate(cfg.Settings); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return &cfg, nil
}

func SaveConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return atomic.WriteFile(path, bytes.NewReader(b))
}
