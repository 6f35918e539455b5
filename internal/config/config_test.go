package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  http_port: \":9090\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.HTTPPort != ":9090" {
		t.Fatalf("http_port = %q", cfg.Server.HTTPPort)
	}
	if cfg.Converter.Mode != "svg" {
		t.Fatalf("mode = %q", cfg.Converter.Mode)
	}
	if cfg.Converter.SVG.Scale != 2 || cfg.Converter.SVG.Quality != 92 {
		t.Fatalf("svg = %+v", cfg.Converter.SVG)
	}
	if cfg.Converter.SVG.FallbackWidth != 800 || cfg.Converter.SVG.FallbackHeight != 800 {
		t.Fatalf("svg fallback = %+v", cfg.Converter.SVG)
	}
	if cfg.Converter.HEIC.Quality != 90 {
		t.Fatalf("heic quality = %d", cfg.Converter.HEIC.Quality)
	}
	if cfg.Output.Sink != SinkNone {
		t.Fatalf("sink = %q", cfg.Output.Sink)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.Delay != 200*time.Millisecond {
		t.Fatalf("retry = %+v", cfg.Retry)
	}
}

func TestLoad_FileValues(t *testing.T) {
	body := `
converter:
  mode: heic
  heic:
    quality: 80
output:
  sink: dir
  dir: /tmp/out
retry:
  attempts: 5
  delay: 1s
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Converter.Mode != "heic" || cfg.Converter.HEIC.Quality != 80 {
		t.Fatalf("converter = %+v", cfg.Converter)
	}
	if cfg.Output.Sink != SinkDir || cfg.Output.Dir != "/tmp/out" {
		t.Fatalf("output = %+v", cfg.Output)
	}
	if cfg.Retry.Attempts != 5 || cfg.Retry.Delay != time.Second {
		t.Fatalf("retry = %+v", cfg.Retry)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown mode", "converter:\n  mode: png\n", "converter.mode"},
		{"bad quality", "converter:\n  svg:\n    quality: 120\n", "converter.svg.quality"},
		{"unknown sink", "output:\n  sink: ftp\n", "output.sink"},
		{"minio without endpoint", "output:\n  sink: minio\n", "storage.endpoint"},
		{"kafka without brokers", "kafka:\n  enabled: true\n", "kafka.brokers"},
	}

	for _, tc := range cases {
		_, err := Load(writeConfig(t, tc.body))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
