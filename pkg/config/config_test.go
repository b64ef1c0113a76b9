package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"http://127.0.0.1:8001"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TopK    int           `envconfig:"TOP_K" split_words:"true" default:"2"`
}

func TestFromEnvDefaultsAndOverrides(t *testing.T) {
	t.Setenv("CFGTEST_TIMEOUT", "3s")

	conf, err := FromEnv[sampleConfig]("cfgtest")
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if conf.BaseURL != "http://127.0.0.1:8001" || conf.TopK != 2 {
		t.Fatalf("defaults not applied: %#v", conf)
	}
	if conf.Timeout != 3*time.Second {
		t.Fatalf("override not applied: %v", conf.Timeout)
	}
}

func TestFromEnvInvalidValue(t *testing.T) {
	t.Setenv("CFGBAD_TOP_K", "two")

	if _, err := FromEnv[sampleConfig]("CFGBAD"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExportFileKeepsExistingEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	body := "CFGFILE_BASE_URL=http://orders:9000\nCFGFILE_TOP_K=5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CFGFILE_TOP_K", "7")
	t.Cleanup(func() { os.Unsetenv("CFGFILE_BASE_URL") })

	if err := ExportFile(path); err != nil {
		t.Fatalf("ExportFile() error = %v", err)
	}

	conf, err := FromEnv[sampleConfig]("CFGFILE")
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if conf.BaseURL != "http://orders:9000" {
		t.Fatalf("file value not exported: %q", conf.BaseURL)
	}
	if conf.TopK != 7 {
		t.Fatalf("process env must win over the file, got %d", conf.TopK)
	}
}

func TestExportFileMissing(t *testing.T) {
	if err := ExportFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
