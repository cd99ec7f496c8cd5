package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoFiles = errors.New("no files selected")

// SplitPaths splits an upload form value on commas and whitespace.
func SplitPaths(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\t' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// OpenFiles expands globs in paths and opens each regular file. The returned
// close func releases every opened handle and is safe to call when err != nil.
func OpenFiles(paths []string) ([]File, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	seen := make(map[string]struct{})
	var files []File
	for _, p := range paths {
		matches, err := expand(p)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}

			info, err := os.Stat(m)
			if err != nil {
				closeAll()
				return nil, func() {}, fmt.Errorf("stat %s: %w", m, err)
			}
			if info.IsDir() {
				closeAll()
				return nil, func() {}, fmt.Errorf("%s is a directory", m)
			}
			f, err := os.Open(m)
			if err != nil {
				closeAll()
				return nil, func() {}, fmt.Errorf("open %s: %w", m, err)
			}
			opened = append(opened, f)
			files = append(files, File{Name: filepath.Base(m), Content: f})
		}
	}
	if len(files) == 0 {
		return nil, func() {}, ErrNoFiles
	}
	return files, closeAll, nil
}

func expand(p string) ([]string, error) {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, p[2:])
	}
	if !strings.ContainsAny(p, "*?[") {
		return []string{filepath.Clean(p)}, nil
	}
	matches, err := filepath.Glob(p)
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", p, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%q matched no files", p)
	}
	return matches, nil
}
