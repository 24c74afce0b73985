// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package zconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want ./data", cfg.DataDir)
	}
	if cfg.ListenAddr != ":7878" {
		t.Errorf("ListenAddr = %q, want :7878", cfg.ListenAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q, want :9090", cfg.MetricsAddr)
	}
	if cfg.RateLimit != 100.0 || cfg.Burst != 200 {
		t.Errorf("RateLimit/Burst = %v/%v, want 100/200", cfg.RateLimit, cfg.Burst)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("LogLevel/LogFormat = %v/%v, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zolad.yaml")
	content := "data_dir: /var/lib/zolad\nlisten_addr: \":9999\"\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/var/lib/zolad" {
		t.Errorf("DataDir = %q, want /var/lib/zolad", cfg.DataDir)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// unspecified fields still fall back to defaults
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text (default)", cfg.LogFormat)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ZOLA_DATA_DIR", "/env/data")
	t.Setenv("ZOLA_LOG_LEVEL", "error")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/env/data" {
		t.Errorf("DataDir = %q, want /env/data", cfg.DataDir)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
}

func TestLoadMissingConfigFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
