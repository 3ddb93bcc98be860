package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeDebugConfig(t *testing.T, ws string, jsonFormat bool) {
	t.Helper()
	dir := filepath.Join(ws, ".ctxengine")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	cf := configFile{Logging: loggingConfig{DebugMode: true, Level: "debug", JSONFormat: jsonFormat}}
	data, err := json.Marshal(cf)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func resetState() {
	CloseAll()
	config = loggingConfig{}
	configLoaded = false
	logsDir = ""
	workspace = ""
}

func TestInitializeNoConfigIsNoOp(t *testing.T) {
	resetState()
	ws := t.TempDir()
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if IsDebugMode() {
		t.Error("expected debug mode disabled without config")
	}
	if _, err := os.Stat(filepath.Join(ws, ".ctxengine", "logs")); !os.IsNotExist(err) {
		t.Error("expected no logs directory created in production mode")
	}
}

func TestInitializeWithDebugConfigCreatesLogFile(t *testing.T) {
	resetState()
	ws := t.TempDir()
	writeDebugConfig(t, ws, false)

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("expected debug mode enabled")
	}

	Store("hello %s", "world")

	entries, err := os.ReadDir(filepath.Join(ws, ".ctxengine", "logs"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) == 0 {
		t.Error("expected at least one log file")
	}
	CloseAll()
}

func TestDisabledCategoryIsNoOp(t *testing.T) {
	resetState()
	ws := t.TempDir()
	dir := filepath.Join(ws, ".ctxengine")
	os.MkdirAll(dir, 0755)
	cf := configFile{Logging: loggingConfig{
		DebugMode:  true,
		Categories: map[string]bool{"store": false},
	}}
	data, _ := json.Marshal(cf)
	os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if IsCategoryEnabled(CategoryStore) {
		t.Error("expected store category disabled")
	}
	if !IsCategoryEnabled(CategoryEngine) {
		t.Error("expected unspecified category to default enabled")
	}
	CloseAll()
}

func TestTimerStop(t *testing.T) {
	resetState()
	timer := StartTimer(CategoryEngine, "op")
	elapsed := timer.Stop()
	if elapsed < 0 {
		t.Error("expected non-negative elapsed duration")
	}
}
