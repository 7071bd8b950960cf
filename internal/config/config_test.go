package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
checksum: sha256
ignore_unchanged: true
output: /tmp/out.patch
workers: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Checksum != "sha256" {
		t.Errorf("expected checksum sha256, got %s", cfg.Checksum)
	}
	if !cfg.IgnoreUnchanged {
		t.Error("expected ignore_unchanged to be true")
	}
	if cfg.Output != "/tmp/out.patch" {
		t.Errorf("expected output /tmp/out.patch, got %s", cfg.Output)
	}
	if cfg.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Workers)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "ignore_unchanged: false\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Checksum != "md5" {
		t.Errorf("expected default checksum md5, got %s", cfg.Checksum)
	}
	if cfg.Output != DefaultOutput {
		t.Errorf("expected default output %s, got %s", DefaultOutput, cfg.Output)
	}
	if cfg.Workers != 0 {
		t.Errorf("expected workers to stay unset, got %d", cfg.Workers)
	}
}

func TestLoad_ExpandEnv(t *testing.T) {
	t.Setenv("DIRRECONCILE_TEST_OUT", "/var/tmp/reports")
	t.Setenv("DIRRECONCILE_TEST_ALGO", "crc")

	cfg, err := Load(writeConfig(t, `
checksum: ${DIRRECONCILE_TEST_ALGO}
output: $DIRRECONCILE_TEST_OUT/run.patch
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Output != "/var/tmp/reports/run.patch" {
		t.Errorf("expected expanded output, got %s", cfg.Output)
	}
	if cfg.Checksum != "crc" {
		t.Errorf("expected checksum alias to be kept, got %s", cfg.Checksum)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "unknown checksum", content: "checksum: blake3\n", errMsg: "invalid checksum"},
		{name: "negative workers", content: "workers: -2\n", errMsg: "workers must not be negative"},
		{name: "malformed yaml", content: "checksum: [unterminated\n", errMsg: "failed to parse config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetDirsAndValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when directories are missing")
	}

	cfg.SetDirs("some/dir/", "./other//nested/")
	if cfg.DirA != "some/dir" {
		t.Errorf("expected cleaned DirA, got %s", cfg.DirA)
	}
	if cfg.DirB != "other/nested" {
		t.Errorf("expected cleaned DirB, got %s", cfg.DirB)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}

	cfg.Checksum = "nope"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown checksum")
	}
}

func TestOutputPath(t *testing.T) {
	cfg := Default()
	cfg.Output = StdoutOutput
	if !cfg.WritesToStdout() {
		t.Error("expected stdout output")
	}
	if got, err := cfg.OutputPath(); err != nil || got != StdoutOutput {
		t.Errorf("OutputPath() = %q, %v", got, err)
	}

	cfg.Output = "report.patch"
	got, err := cfg.OutputPath()
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "report.patch" {
		t.Errorf("expected absolute report path, got %s", got)
	}
}
