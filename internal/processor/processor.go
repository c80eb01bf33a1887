// Package processor runs documents through read, chunk, filter and dedup and
// hands the surviving chunks to the caller as a lazy sequence.
//
// All state used by one call (the running index and the dedup set) lives in
// that call, so a Processor can serve concurrent calls on different
// documents as long as its Reader is reentrant.
package processor

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docatom/internal/chunker"
	"github.com/dgallion1/docatom/internal/hasher"
	"github.com/dgallion1/docatom/internal/ingest"
)

var (
	// ErrInvalidOptions reports processor options that fail validation.
	ErrInvalidOptions = errors.New("invalid processor options")
	// ErrNoInput reports a missing reader, path, name or batch.
	ErrNoInput = errors.New("no input")
)

// Chunk metadata keys added by the processor.
const (
	MetaContentHash = "content_hash"
	MetaSourcePath  = "source_path"
)

// SourceError is a terminal failure to read one source.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }
func (e *SourceError) Unwrap() error { return e.Err }

// Reader materializes a document from a path or from bytes named like a file.
type Reader interface {
	Read(ctx context.Context, path string) (ingest.Document, error)
	ReadBytes(ctx context.Context, name string, data []byte) (ingest.Document, error)
}

// Options controls chunking and filtering.
type Options struct {
	UseHierarchyAwareChunking bool
	RemoveDuplicates          bool
	SkipEmptyChunks           bool
	// MinimumChunkLength drops chunks whose trimmed content has fewer runes.
	MinimumChunkLength int
	// ContinueOnError lets a batch skip a source that fails to read instead
	// of stopping.
	ContinueOnError bool
	Chunker         chunker.Options
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		UseHierarchyAwareChunking: true,
		SkipEmptyChunks:           true,
		MinimumChunkLength:        10,
		ContinueOnError:           true,
		Chunker:                   chunker.DefaultOptions(),
	}
}

// Validate checks the options, including the nested chunker options.
func (o Options) Validate() error {
	if o.MinimumChunkLength < 0 {
		return fmt.Errorf("%w: minimum chunk length %d must not be negative", ErrInvalidOptions, o.MinimumChunkLength)
	}
	if err := o.Chunker.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

// Processor orchestrates chunk production for documents.
type Processor struct {
	reader  Reader
	opts    Options
	chunker chunker.Chunker
	log     *slog.Logger
}

// New validates opts and builds a processor. A nil logger uses slog.Default.
func New(reader Reader, opts Options, log *slog.Logger) (*Processor, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: reader is required", ErrNoInput)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	c, err := chunker.New(opts.Chunker, opts.UseHierarchyAwareChunking)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Processor{reader: reader, opts: opts, chunker: c, log: log}, nil
}

// Options returns the processor's options.
func (p *Processor) Options() Options { return p.opts }

// Process reads the document at path and yields its surviving chunks. A read
// failure is yielded once as a *SourceError and ends the sequence.
func (p *Processor) Process(ctx context.Context, path string) iter.Seq2[ingest.Chunk, error] {
	return func(yield func(ingest.Chunk, error) bool) {
		if path == "" {
			yield(ingest.Chunk{}, fmt.Errorf("%w: empty path", ErrNoInput))
			return
		}
		doc, err := p.reader.Read(ctx, path)
		if err != nil {
			yield(ingest.Chunk{}, &SourceError{Path: path, Err: err})
			return
		}
		p.stream(ctx, doc, yield)
	}
}

// ProcessBytes is Process for in-memory content. name selects the format.
func (p *Processor) ProcessBytes(ctx context.Context, name string, data []byte) iter.Seq2[ingest.Chunk, error] {
	return func(yield func(ingest.Chunk, error) bool) {
		if name == "" {
			yield(ingest.Chunk{}, fmt.Errorf("%w: empty name", ErrNoInput))
			return
		}
		doc, err := p.reader.ReadBytes(ctx, name, data)
		if err != nil {
			yield(ingest.Chunk{}, &SourceError{Path: name, Err: err})
			return
		}
		p.stream(ctx, doc, yield)
	}
}

// ProcessDocument chunks an already materialized document.
func (p *Processor) ProcessDocument(ctx context.Context, doc ingest.Document) iter.Seq2[ingest.Chunk, error] {
	return func(yield func(ingest.Chunk, error) bool) {
		p.stream(ctx, doc, yield)
	}
}

// ProcessBatch processes sources in order. Every chunk is stamped with its
// source path and indexes restart at zero for each source. Cancellation is
// checked before each source and between chunks. When a source fails to read,
// its *SourceError is yielded and the batch continues or stops according to
// ContinueOnError.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string) iter.Seq2[ingest.Chunk, error] {
	return func(yield func(ingest.Chunk, error) bool) {
		if len(paths) == 0 {
			yield(ingest.Chunk{}, fmt.Errorf("%w: empty batch", ErrNoInput))
			return
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				yield(ingest.Chunk{}, err)
				return
			}
			stopped := false
			for c, err := range p.Process(ctx, path) {
				if err != nil {
					var srcErr *SourceError
					if errors.As(err, &srcErr) || errors.Is(err, ErrNoInput) {
						p.log.Warn("source failed", "source", path, "error", err)
						if !yield(ingest.Chunk{}, err) || !p.opts.ContinueOnError {
							return
						}
						break
					}
					yield(ingest.Chunk{}, err)
					return
				}
				c.Metadata[MetaSourcePath] = path
				if !yield(c, nil) {
					stopped = true
					break
				}
			}
			if stopped {
				return
			}
		}
	}
}

// Result is one element of an asynchronous chunk stream.
type Result struct {
	Chunk ingest.Chunk
	Err   error
}

// ProcessAsync runs Process in a goroutine and delivers results on the
// returned channel, which is closed when the sequence ends or ctx is done.
func (p *Processor) ProcessAsync(ctx context.Context, path string) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		for c, err := range p.Process(ctx, path) {
			select {
			case out <- Result{Chunk: c, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[ingest.Chunk, error]) ([]ingest.Chunk, error) {
	var chunks []ingest.Chunk
	for c, err := range seq {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// stream chunks doc and applies the filters. Indexes are never renumbered, so
// dropped chunks leave gaps.
func (p *Processor) stream(ctx context.Context, doc ingest.Document, yield func(ingest.Chunk, error) bool) {
	log := p.log.With("doc_id", doc.ID, "source", doc.SourcePath)
	seen := make(map[string]struct{})
	emitted, dropped := 0, 0

	for c := range p.chunker.Chunk(doc) {
		if err := ctx.Err(); err != nil {
			yield(ingest.Chunk{}, err)
			return
		}
		if !p.keep(c.Content) {
			dropped++
			continue
		}
		hash := hasher.ContentHashHex([]byte(c.Content))
		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}
		c.Metadata[MetaContentHash] = hash
		if p.opts.RemoveDuplicates {
			if _, dup := seen[hash]; dup {
				dropped++
				continue
			}
			seen[hash] = struct{}{}
		}
		if doc.SourcePath != "" {
			c.Metadata[MetaSourcePath] = doc.SourcePath
		}
		emitted++
		if !yield(c, nil) {
			return
		}
	}
	log.Debug("processed document", "chunks", emitted, "dropped", dropped)
}

func (p *Processor) keep(content string) bool {
	trimmed := strings.TrimSpace(content)
	if p.opts.SkipEmptyChunks && trimmed == "" {
		return false
	}
	return utf8.RuneCountInString(trimmed) >= p.opts.MinimumChunkLength
}
