// Package config loads service and processing settings from built-in
// defaults, an optional TOML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dgallion1/docatom/internal/atom"
	"github.com/dgallion1/docatom/internal/chunker"
	"github.com/dgallion1/docatom/internal/ingest"
	"github.com/dgallion1/docatom/internal/parser"
	"github.com/dgallion1/docatom/internal/processor"
)

type Config struct {
	Port string `toml:"port"`

	// Auth
	APIKey string `toml:"api_key"`

	// Worker pool
	WorkerCount  int `toml:"worker_count"`
	MaxQueueSize int `toml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `toml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `toml:"job_ttl"`

	LogLevel string `toml:"log_level"`

	// PDF
	PDFFallbackPdftotext bool `toml:"pdf_fallback_pdftotext"`

	Quark     QuarkConfig     `toml:"quark"`
	Chunker   ChunkerConfig   `toml:"chunker"`
	Processor ProcessorConfig `toml:"processor"`
}

// QuarkConfig controls splitting of oversized atoms into quarks.
type QuarkConfig struct {
	Enable    bool `toml:"enable"`
	MaxLength int  `toml:"max_length"`
	ShiftSize int  `toml:"shift_size"`
}

type ChunkerConfig struct {
	Size                 int  `toml:"size"`
	Overlap              int  `toml:"overlap"`
	PreserveParagraphs   bool `toml:"preserve_paragraphs"`
	IncludeHeaderContext bool `toml:"include_header_context"`
	UseSubUnits          bool `toml:"use_sub_units"`
}

type ProcessorConfig struct {
	HierarchyAware   bool     `toml:"hierarchy_aware"`
	RemoveDuplicates bool     `toml:"remove_duplicates"`
	SkipEmptyChunks  bool     `toml:"skip_empty_chunks"`
	MinChunkLength   int      `toml:"min_chunk_length"`
	IncludeBinary    bool     `toml:"include_binary"`
	ContinueOnError  bool     `toml:"continue_on_error"`
	ExcludeMetadata  []string `toml:"exclude_metadata"`
}

// Default returns the built-in configuration.
func Default() Config {
	chunk := chunker.DefaultOptions()
	proc := processor.DefaultOptions()
	return Config{
		Port:                 "8090",
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxUploadBytes:       52428800, // 50MB
		JobTTL:               time.Hour,
		LogLevel:             "info",
		PDFFallbackPdftotext: true,
		Quark: QuarkConfig{
			MaxLength: atom.DefaultMaximumLength,
			ShiftSize: atom.DefaultShiftSize,
		},
		Chunker: ChunkerConfig{
			Size:                 chunk.MaxChunkSize,
			Overlap:              chunk.ChunkOverlap,
			PreserveParagraphs:   chunk.PreserveParagraphs,
			IncludeHeaderContext: chunk.IncludeHeaderContext,
			UseSubUnits:          chunk.UseSubUnitsIfAvailable,
		},
		Processor: ProcessorConfig{
			HierarchyAware:   proc.UseHierarchyAwareChunking,
			RemoveDuplicates: proc.RemoveDuplicates,
			SkipEmptyChunks:  proc.SkipEmptyChunks,
			MinChunkLength:   proc.MinimumChunkLength,
			ContinueOnError:  proc.ContinueOnError,
		},
	}
}

// Load builds the configuration. path names a TOML file; when empty,
// DOCATOM_CONFIG is consulted, and with neither set only defaults and the
// environment apply. Unknown TOML keys and malformed environment values are
// errors. Load does not validate; call Validate or ValidateServer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DOCATOM_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("parse config %s: unknown key %q", path, undecoded[0].String())
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var e envReader
	e.str("PORT", &c.Port)
	e.str("DOCATOM_API_KEY", &c.APIKey)
	e.integer("WORKER_COUNT", &c.WorkerCount)
	e.integer("MAX_QUEUE_SIZE", &c.MaxQueueSize)
	e.integer64("MAX_UPLOAD_BYTES", &c.MaxUploadBytes)
	e.duration("JOB_TTL", &c.JobTTL)
	e.str("LOG_LEVEL", &c.LogLevel)
	e.boolean("PDF_FALLBACK_PDFTOTEXT", &c.PDFFallbackPdftotext)

	e.boolean("QUARK_ENABLE", &c.Quark.Enable)
	e.integer("QUARK_MAX_LENGTH", &c.Quark.MaxLength)
	e.integer("QUARK_SHIFT_SIZE", &c.Quark.ShiftSize)

	e.integer("CHUNK_SIZE", &c.Chunker.Size)
	e.integer("CHUNK_OVERLAP", &c.Chunker.Overlap)
	e.boolean("PRESERVE_PARAGRAPHS", &c.Chunker.PreserveParagraphs)
	e.boolean("INCLUDE_HEADER_CONTEXT", &c.Chunker.IncludeHeaderContext)
	e.boolean("USE_SUB_UNITS", &c.Chunker.UseSubUnits)

	e.boolean("HIERARCHY_AWARE", &c.Processor.HierarchyAware)
	e.boolean("REMOVE_DUPLICATES", &c.Processor.RemoveDuplicates)
	e.boolean("SKIP_EMPTY_CHUNKS", &c.Processor.SkipEmptyChunks)
	e.integer("MIN_CHUNK_LENGTH", &c.Processor.MinChunkLength)
	e.boolean("INCLUDE_BINARY", &c.Processor.IncludeBinary)
	e.boolean("CONTINUE_ON_ERROR", &c.Processor.ContinueOnError)
	e.list("EXCLUDE_METADATA", &c.Processor.ExcludeMetadata)
	return errors.Join(e.errs...)
}

// Validate checks everything needed to process documents. It returns the
// first violation.
func (c Config) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("MAX_QUEUE_SIZE must be positive, got %d", c.MaxQueueSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("JOB_TTL must be positive, got %s", c.JobTTL)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if _, err := c.QuarkSettings(); err != nil {
		return err
	}
	if _, err := c.ProcessorOptions(); err != nil {
		return err
	}
	return nil
}

// ValidateServer is Validate plus the settings only the HTTP service needs.
func (c Config) ValidateServer() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCATOM_API_KEY is required")
	}
	return c.Validate()
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func (c Config) QuarkSettings() (atom.ChunkingSettings, error) {
	return atom.NewChunkingSettings(c.Quark.Enable, c.Quark.MaxLength, c.Quark.ShiftSize)
}

func (c Config) ChunkerOptions() chunker.Options {
	return chunker.Options{
		MaxChunkSize:           c.Chunker.Size,
		ChunkOverlap:           c.Chunker.Overlap,
		PreserveParagraphs:     c.Chunker.PreserveParagraphs,
		IncludeHeaderContext:   c.Chunker.IncludeHeaderContext,
		UseSubUnitsIfAvailable: c.Chunker.UseSubUnits,
	}
}

func (c Config) ProcessorOptions() (processor.Options, error) {
	opts := processor.Options{
		UseHierarchyAwareChunking: c.Processor.HierarchyAware,
		RemoveDuplicates:          c.Processor.RemoveDuplicates,
		SkipEmptyChunks:           c.Processor.SkipEmptyChunks,
		MinimumChunkLength:        c.Processor.MinChunkLength,
		ContinueOnError:           c.Processor.ContinueOnError,
		Chunker:                   c.ChunkerOptions(),
	}
	return opts, opts.Validate()
}

func (c Config) ConvertOptions() ingest.ConvertOptions {
	return ingest.ConvertOptions{
		IncludeBinary:   c.Processor.IncludeBinary,
		ExcludeMetadata: ingest.ExcludeKeys(c.Processor.ExcludeMetadata...),
	}
}

// NewProcessor wires a file-backed processor from the configuration.
func (c Config) NewProcessor(log *slog.Logger) (*processor.Processor, error) {
	quarks, err := c.QuarkSettings()
	if err != nil {
		return nil, err
	}
	opts, err := c.ProcessorOptions()
	if err != nil {
		return nil, err
	}
	reader := processor.NewFileReader(quarks, c.ConvertOptions(), parser.WithPDFFallback(c.PDFFallbackPdftotext))
	return processor.New(reader, opts, log)
}

// envReader overrides fields from set environment variables and collects
// parse failures.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) integer64(key string, dst *int64) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.lookup(key); ok {
		var out []string
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}
