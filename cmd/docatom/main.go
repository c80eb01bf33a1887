// Command docatom chunks documents and writes one JSON chunk per line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/docatom/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run returns 0 on success, 1 when any source failed and 2 for usage or
// configuration errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("docatom", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a TOML config file (default $DOCATOM_CONFIG)")
	dedup := fs.Bool("dedup", false, "drop chunks whose content repeats within a document")
	flat := fs.Bool("flat", false, "ignore document structure when chunking")
	failFast := fs.Bool("fail-fast", false, "stop at the first source that cannot be read")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: docatom [flags] file...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "docatom: %v\n", err)
		return 2
	}
	if *dedup {
		cfg.Processor.RemoveDuplicates = true
	}
	if *flat {
		cfg.Processor.HierarchyAware = false
	}
	if *failFast {
		cfg.Processor.ContinueOnError = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "docatom: invalid configuration: %v\n", err)
		return 2
	}

	level, _ := cfg.SlogLevel()
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	proc, err := cfg.NewProcessor(log)
	if err != nil {
		fmt.Fprintf(stderr, "docatom: %v\n", err)
		return 2
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	code, chunks := 0, 0
	for c, err := range proc.ProcessBatch(ctx, fs.Args()) {
		if err != nil {
			fmt.Fprintf(stderr, "docatom: %v\n", err)
			code = 1
			continue
		}
		if err := enc.Encode(c); err != nil {
			fmt.Fprintf(stderr, "docatom: write: %v\n", err)
			return 1
		}
		chunks++
	}
	log.Debug("batch complete", "sources", fs.NArg(), "chunks", chunks)
	return code
}
