package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docatom/internal/atom"
	"github.com/dgallion1/docatom/internal/processor"
)

var envKeys = []string{
	"DOCATOM_CONFIG", "PORT", "DOCATOM_API_KEY", "WORKER_COUNT", "MAX_QUEUE_SIZE",
	"MAX_UPLOAD_BYTES", "JOB_TTL", "LOG_LEVEL", "PDF_FALLBACK_PDFTOTEXT",
	"QUARK_ENABLE", "QUARK_MAX_LENGTH", "QUARK_SHIFT_SIZE",
	"CHUNK_SIZE", "CHUNK_OVERLAP", "PRESERVE_PARAGRAPHS", "INCLUDE_HEADER_CONTEXT", "USE_SUB_UNITS",
	"HIERARCHY_AWARE", "REMOVE_DUPLICATES", "SKIP_EMPTY_CHUNKS", "MIN_CHUNK_LENGTH",
	"INCLUDE_BINARY", "CONTINUE_ON_ERROR", "EXCLUDE_METADATA",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docatom.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.Chunker.Size != 1000 || cfg.Chunker.Overlap != 200 {
		t.Errorf("expected chunker 1000/200, got %d/%d", cfg.Chunker.Size, cfg.Chunker.Overlap)
	}
	if cfg.Processor.MinChunkLength != 10 || !cfg.Processor.HierarchyAware || cfg.Processor.RemoveDuplicates {
		t.Errorf("unexpected processor defaults %+v", cfg.Processor)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestValidateServer_RequiresAPIKey(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateServer(); err == nil || !strings.Contains(err.Error(), "DOCATOM_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}
	cfg.APIKey = "secret"
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port = "9000"
job_ttl = "30m"

[quark]
enable = true
max_length = 1024
shift_size = 800

[chunker]
size = 500
overlap = 50
preserve_paragraphs = true

[processor]
remove_duplicates = true
exclude_metadata = ["md5", "sha1"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("expected job ttl 30m, got %s", cfg.JobTTL)
	}
	if !cfg.Quark.Enable || cfg.Quark.MaxLength != 1024 || cfg.Quark.ShiftSize != 800 {
		t.Errorf("unexpected quark config %+v", cfg.Quark)
	}
	if cfg.Chunker.Size != 500 || cfg.Chunker.Overlap != 50 || !cfg.Chunker.PreserveParagraphs {
		t.Errorf("unexpected chunker config %+v", cfg.Chunker)
	}
	// Keys absent from the file keep their defaults.
	if !cfg.Chunker.IncludeHeaderContext || cfg.WorkerCount != 4 {
		t.Errorf("expected untouched defaults, got %+v", cfg)
	}
	excl := cfg.ConvertOptions().ExcludeMetadata
	if !excl["md5"] || !excl["sha1"] || len(excl) != 2 {
		t.Errorf("expected md5 and sha1 excluded, got %v", excl)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[chunker]\nsize = 500\n")
	t.Setenv("CHUNK_SIZE", "700")
	t.Setenv("REMOVE_DUPLICATES", "true")
	t.Setenv("EXCLUDE_METADATA", " md5 , ,sha256")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chunker.Size != 700 {
		t.Errorf("expected env chunk size 700, got %d", cfg.Chunker.Size)
	}
	if !cfg.Processor.RemoveDuplicates {
		t.Error("expected remove duplicates from env")
	}
	if want := []string{"md5", "sha256"}; !reflect.DeepEqual(cfg.Processor.ExcludeMetadata, want) {
		t.Errorf("expected %v, got %v", want, cfg.Processor.ExcludeMetadata)
	}
}

func TestLoad_ConfigFromEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCATOM_CONFIG", writeConfig(t, `worker_count = 9`))
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerCount != 9 {
		t.Errorf("expected worker count 9, got %d", cfg.WorkerCount)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing explicit file")
	}
	if _, err := Load(writeConfig(t, "port = ")); err == nil {
		t.Error("expected error for malformed toml")
	}
	if _, err := Load(writeConfig(t, "chunk_size = 10")); err == nil || !strings.Contains(err.Error(), "chunk_size") {
		t.Errorf("expected unknown key error, got %v", err)
	}

	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("JOB_TTL", "soon")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "WORKER_COUNT") || !strings.Contains(err.Error(), "JOB_TTL") {
		t.Errorf("expected both malformed env values reported, got %v", err)
	}
}

func TestValidate_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"quark max below range", func(c *Config) { c.Quark.MaxLength = 100 }, atom.ErrInvalidSettings},
		{"quark shift exceeds max", func(c *Config) { c.Quark.ShiftSize = c.Quark.MaxLength + 1 }, atom.ErrInvalidSettings},
		{"overlap not below size", func(c *Config) { c.Chunker.Overlap = c.Chunker.Size }, processor.ErrInvalidOptions},
		{"negative minimum", func(c *Config) { c.Processor.MinChunkLength = -1 }, processor.ErrInvalidOptions},
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }, nil},
		{"zero ttl", func(c *Config) { c.JobTTL = 0 }, nil},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	level, err := cfg.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("expected debug level, got %v, %v", level, err)
	}
}

func TestNewProcessor(t *testing.T) {
	cfg := Default()
	cfg.Chunker.Size = 400
	cfg.Chunker.Overlap = 40
	p, err := cfg.NewProcessor(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := p.Options()
	if opts.Chunker.MaxChunkSize != 400 || opts.Chunker.ChunkOverlap != 40 {
		t.Errorf("expected chunker 400/40, got %+v", opts.Chunker)
	}

	cfg.Quark.ShiftSize = 0
	if _, err := cfg.NewProcessor(nil); !errors.Is(err, atom.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
}
