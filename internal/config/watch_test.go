package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWatchConfig_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Engine.MaxContextTokens = 10000
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := make(chan *Config, 1)
	w, err := WatchConfig(path, func(c *Config) {
		reloaded <- c
	})
	if err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
	defer w.Stop()

	cfg.Engine.MaxContextTokens = 20000
	// Give the watcher a moment to register before the write fires.
	time.Sleep(50 * time.Millisecond)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.Engine.MaxContextTokens != 20000 {
			t.Errorf("expected reloaded MaxContextTokens=20000, got %d", got.Engine.MaxContextTokens)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatchConfig_MissingDirErrors(t *testing.T) {
	_, err := WatchConfig(filepath.Join(t.TempDir(), "nope", "config.yaml"), func(*Config) {})
	if err == nil {
		t.Fatal("expected error watching a nonexistent directory")
	}
}
