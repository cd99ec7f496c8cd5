package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Exporter writes a transcript in one format.
type Exporter interface {
	Export(tr Transcript, w io.Writer) error
	Extension() string
}

func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return MarkdownExporter{}, nil
	case "json":
		return JSONExporter{}, nil
	case "yaml", "yml":
		return YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, yaml)", format)
	}
}

type MarkdownExporter struct{}

func (MarkdownExporter) Export(tr Transcript, w io.Writer) error {
	_, err := io.WriteString(w, BuildDocumentMarkdown(tr))
	return err
}

func (MarkdownExporter) Extension() string { return "md" }

type JSONExporter struct{}

func (JSONExporter) Export(tr Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tr)
}

func (JSONExporter) Extension() string { return "json" }

type YAMLExporter struct{}

func (YAMLExporter) Export(tr Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return enc.Encode(tr)
}

func (YAMLExporter) Extension() string { return "yaml" }

// FileExporter writes transcripts into Dir, one file per export.
type FileExporter struct {
	Dir    string
	Format Exporter
	now    func() time.Time
}

func NewFileExporter(dir, format string) (*FileExporter, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("export dir is empty")
	}
	f, err := NewExporter(format)
	if err != nil {
		return nil, err
	}
	return &FileExporter{Dir: dir, Format: f, now: time.Now}, nil
}

func (e *FileExporter) Export(tr Transcript) (string, error) {
	now := e.now()
	if tr.ExportedAt.IsZero() {
		tr.ExportedAt = now
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.%s", slug(tr.WorkspaceID), now.UTC().Format("20060102-150405"), e.Format.Extension())
	path := filepath.Join(e.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := e.Format.Export(tr, f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func slug(s string) string {
	s = unsafeFileChars.ReplaceAllString(strings.TrimSpace(s), "-")
	s = strings.Trim(s, "-.")
	if s == "" {
		return "rag"
	}
	return s
}
