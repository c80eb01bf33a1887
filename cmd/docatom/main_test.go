package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docatom/internal/ingest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func decodeLines(t *testing.T, out *bytes.Buffer) []ingest.Chunk {
	t.Helper()
	var chunks []ingest.Chunk
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var c ingest.Chunk
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			t.Fatalf("invalid json line %q: %v", sc.Text(), err)
		}
		chunks = append(chunks, c)
	}
	return chunks
}

func TestRun_WritesJSONLines(t *testing.T) {
	t.Setenv("DOCATOM_CONFIG", "")
	dir := t.TempDir()
	md := writeFile(t, dir, "guide.md", "# Guide\n\nIntro paragraph for the guide.\n\n## Install\n\nRun the installer.\n")
	txt := writeFile(t, dir, "notes.txt", "Plain notes with enough text.")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{md, txt}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	chunks := decodeLines(t, &stdout)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2].Metadata["source_path"] != txt || chunks[2].Index != 0 {
		t.Errorf("expected third chunk to be index 0 of %s, got %+v", txt, chunks[2])
	}
}

func TestRun_FlatFlag(t *testing.T) {
	t.Setenv("DOCATOM_CONFIG", "")
	md := writeFile(t, t.TempDir(), "guide.md", "# Guide\n\nIntro paragraph for the guide.\n\n## Install\n\nRun the installer.\n")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-flat", md}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	chunks := decodeLines(t, &stdout)
	if len(chunks) != 1 || chunks[0].Metadata["chunk_strategy"] != "flat" {
		t.Fatalf("expected one flat chunk, got %+v", chunks)
	}
}

func TestRun_MissingSource(t *testing.T) {
	t.Setenv("DOCATOM_CONFIG", "")
	dir := t.TempDir()
	txt := writeFile(t, dir, "notes.txt", "Plain notes with enough text.")
	missing := filepath.Join(dir, "missing.txt")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{missing, txt}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "missing.txt") {
		t.Errorf("expected error naming the missing file, got %q", stderr.String())
	}
	if n := len(decodeLines(t, &stdout)); n != 1 {
		t.Errorf("expected the readable file to still produce 1 chunk, got %d", n)
	}

	stdout.Reset()
	stderr.Reset()
	if code := run(context.Background(), []string{"-fail-fast", missing, txt}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output after fail-fast abort, got %q", stdout.String())
	}
}

func TestRun_UsageErrors(t *testing.T) {
	t.Setenv("DOCATOM_CONFIG", "")
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, &stdout, &stderr); code != 2 {
		t.Errorf("expected exit 2 without files, got %d", code)
	}
	if code := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "none.toml"), "a.txt"}, &stdout, &stderr); code != 2 {
		t.Errorf("expected exit 2 for missing config, got %d", code)
	}
	if code := run(context.Background(), []string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Errorf("expected exit 2 for unknown flag, got %d", code)
	}
}
