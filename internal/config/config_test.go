package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLANNER_DATA_DIR", dir)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.Autosave.Delay != time.Second {
		t.Errorf("Autosave.Delay = %s, want 1s", cfg.Autosave.Delay)
	}
	if cfg.AI.Provider != "none" {
		t.Errorf("AI.Provider = %q, want none", cfg.AI.Provider)
	}
	if cfg.Mirror.MaxBytes != 5<<20 {
		t.Errorf("Mirror.MaxBytes = %d, want %d", cfg.Mirror.MaxBytes, 5<<20)
	}
	if got, want := cfg.DBPath(), filepath.Join(dir, "planner.db"); got != want {
		t.Errorf("DBPath() = %q, want %q", got, want)
	}
	if got, want := cfg.MirrorDir(), filepath.Join(dir, "mirror"); got != want {
		t.Errorf("MirrorDir() = %q, want %q", got, want)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	content := `
data_dir: ` + dir + `
autosave:
  delay: 250ms
ai:
  provider: openai
  model: llama-3.1-8b-instant
remote:
  port: 9090
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Autosave.Delay != 250*time.Millisecond {
		t.Errorf("Autosave.Delay = %s, want 250ms", cfg.Autosave.Delay)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.Model != "llama-3.1-8b-instant" {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.Remote.Port != 9090 {
		t.Errorf("Remote.Port = %d, want 9090", cfg.Remote.Port)
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.toml")
	content := "data_dir = \"" + filepath.ToSlash(dir) + "\"\n[store]\ndsn = \"/tmp/other.db\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DBPath() != "/tmp/other.db" {
		t.Errorf("DBPath() = %q, want /tmp/other.db", cfg.DBPath())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	if err := os.WriteFile(path, []byte("ai:\n  provider: openai\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("PLANNER_DATA_DIR", dir)
	t.Setenv("PLANNER_AI_PROVIDER", "anthropic")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.AI.Provider != "anthropic" {
		t.Errorf("AI.Provider = %q, want anthropic", cfg.AI.Provider)
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLANNER_DATA_DIR", dir)
	t.Setenv("PLANNER_REMOTE_PORT", "7000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 8080, "")
	if err := flags.Parse([]string{"--port", "7100"}); err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Remote.Port != 7100 {
		t.Errorf("Remote.Port = %d, want 7100", cfg.Remote.Port)
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("PLANNER_DATA_DIR", t.TempDir())
	t.Setenv("PLANNER_AI_PROVIDER", "bogus")

	_, err := Load("", nil)
	if err == nil {
		t.Fatal("Load() succeeded with invalid provider")
	}
	if !strings.Contains(err.Error(), "ai.provider") {
		t.Errorf("error = %v, want mention of ai.provider", err)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if err == nil {
		t.Fatal("Load() succeeded with missing explicit config file")
	}
}
