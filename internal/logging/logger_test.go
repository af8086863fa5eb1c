package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, ws string, cfg configFile) {
	t.Helper()
	dir := filepath.Join(ws, ".fedquery")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func resetState() {
	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
	configMu.Lock()
	config = loggingConfig{}
	configLoaded = false
	configMu.Unlock()
	logsDir = ""
	workspace = ""
}

func TestInitializeWithoutConfigIsNoop(t *testing.T) {
	resetState()
	ws := t.TempDir()
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if IsDebugMode() {
		t.Error("debug mode should default to off without a config file")
	}
	// No logs directory should exist in production mode.
	if _, err := os.Stat(filepath.Join(ws, ".fedquery", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory should not be created when debug mode is off")
	}
}

func TestDebugModeWritesCategoryFile(t *testing.T) {
	resetState()
	ws := t.TempDir()
	writeConfig(t, ws, configFile{Logging: loggingConfig{DebugMode: true, Level: "debug"}})

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer Close()

	Planner("test plan for %d ops", 3)

	entries, err := os.ReadDir(filepath.Join(ws, ".fedquery", "logs"))
	if err != nil {
		t.Fatalf("logs directory missing: %v", err)
	}
	found := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".log" {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one log file in debug mode")
	}
}

func TestCategoryFilter(t *testing.T) {
	resetState()
	ws := t.TempDir()
	writeConfig(t, ws, configFile{Logging: loggingConfig{
		DebugMode:  true,
		Categories: map[string]bool{"parser": false, "planner": true},
	}})
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer Close()

	if IsCategoryEnabled(CategoryParser) {
		t.Error("parser category should be disabled")
	}
	if !IsCategoryEnabled(CategoryPlanner) {
		t.Error("planner category should be enabled")
	}
	if !IsCategoryEnabled(CategoryStore) {
		t.Error("unlisted categories default to enabled")
	}
}

func TestTimerStops(t *testing.T) {
	resetState()
	timer := StartTimer(CategoryPerformance, "noop")
	if d := timer.Stop(); d < 0 {
		t.Error("negative duration")
	}
}
