package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Engine = "elevenlabs"
	cfg.Output.Format = "mp3"
	cfg.Output.BitrateKbps = 320
	cfg.Mix.BackgroundAttenuationDB = -6
	cfg.Cache.MaxSizeMB = 50

	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if loaded.Engine != "elevenlabs" {
		t.Errorf("engine = %q, want elevenlabs", loaded.Engine)
	}
	if loaded.Output.Format != "mp3" || loaded.Output.BitrateKbps != 320 {
		t.Errorf("output = %+v, want mp3 at 320", loaded.Output)
	}
	if loaded.Mix.BackgroundAttenuationDB != -6 {
		t.Errorf("attenuation = %f, want -6", loaded.Mix.BackgroundAttenuationDB)
	}
	if loaded.Cache.MaxSizeMB != 50 {
		t.Errorf("cache size = %d, want 50", loaded.Cache.MaxSizeMB)
	}
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.Engine != "openai" {
		t.Errorf("engine = %q, want openai", cfg.Engine)
	}
	if cfg.Output.Format != "wav" {
		t.Errorf("format = %q, want wav", cfg.Output.Format)
	}
	if cfg.Mix.BackgroundAttenuationDB != -12 {
		t.Errorf("attenuation = %f, want -12", cfg.Mix.BackgroundAttenuationDB)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache disabled by default")
	}
}

func TestDefaultUserPath(t *testing.T) {
	path, err := DefaultUserPath()
	if err != nil {
		t.Fatalf("default user path: %v", err)
	}
	want := filepath.Join(".config", "phrasecast", "config.yml")
	if !strings.HasSuffix(path, want) {
		t.Errorf("path = %q, want suffix %q", path, want)
	}
}

func TestExampleIsParsableYAML(t *testing.T) {
	example := Example()
	if !strings.HasPrefix(example, "# phrasecast configuration") {
		t.Error("example missing its header comment")
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(example), &cfg); err != nil {
		t.Fatalf("example does not parse as config: %v", err)
	}
	if cfg.Engine != Default().Engine {
		t.Errorf("example engine = %q, want default %q", cfg.Engine, Default().Engine)
	}
}
