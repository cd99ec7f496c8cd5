package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

// Tool is an external command that reads clipboard contents from stdin.
type Tool struct {
	Path string
	Args []string
}

var candidates = map[string][]struct {
	name string
	args []string
}{
	"darwin":  {{name: "pbcopy"}},
	"linux":   {{name: "wl-copy"}, {name: "xclip", args: []string{"-selection", "clipboard"}}, {name: "xsel", args: []string{"--clipboard", "--input"}}},
	"freebsd": {{name: "xclip", args: []string{"-selection", "clipboard"}}, {name: "xsel", args: []string{"--clipboard", "--input"}}},
	"windows": {{name: "clip.exe"}},
}

// Detect returns the first available clipboard tool for goos, in order of
// preference.
func Detect(goos string, lookPath func(string) (string, error)) (Tool, error) {
	for _, c := range candidates[goos] {
		if path, err := lookPath(c.name); err == nil {
			return Tool{Path: path, Args: c.args}, nil
		}
	}
	return Tool{}, ErrToolNotFound
}

func Copy(ctx context.Context, text string) error {
	tool, err := Detect(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}
	return tool.Copy(ctx, text)
}

func (t Tool) Copy(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, t.Path, t.Args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("clipboard command failed: %w: %s", err, msg)
		}
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
