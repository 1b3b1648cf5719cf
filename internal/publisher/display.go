// Package publisher holds the sinks a board frame can be shown on: a text
// terminal, a file the display process watches, and a NATS subject.
package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"busboard/internal/board"
)

// Clip fits a frame into a character display of cols x rows. Lines beyond
// rows are dropped and each line is cut to cols runes. Zero means unlimited.
func Clip(f board.Frame, cols, rows int) []string {
	lines := f.Lines
	if rows > 0 && len(lines) > rows {
		lines = lines[:rows]
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if cols > 0 {
			if r := []rune(l); len(r) > cols {
				l = string(r[:cols])
			}
		}
		out[i] = l
	}
	return out
}

// TextDisplay writes every frame to W, separated by a blank line.
type TextDisplay struct {
	W       io.Writer
	Columns int
	Rows    int

	mu sync.Mutex
}

func (d *TextDisplay) Name() string { return "text" }

func (d *TextDisplay) Show(_ context.Context, f board.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := fmt.Fprintf(d.W, "%s\n\n", strings.Join(Clip(f, d.Columns, d.Rows), "\n"))
	return err
}

// FileDisplay replaces the file at Path with the latest frame. The write goes
// through a temporary file in the same directory so readers never see a
// partial frame.
type FileDisplay struct {
	Path    string
	Columns int
	Rows    int
}

func (d *FileDisplay) Name() string { return "file" }

func (d *FileDisplay) Show(_ context.Context, f board.Frame) error {
	body := strings.Join(Clip(f, d.Columns, d.Rows), "\n") + "\n"

	tmp, err := os.CreateTemp(filepath.Dir(d.Path), "."+filepath.Base(d.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp frame file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write frame file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close frame file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod frame file: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.Path); err != nil {
		return fmt.Errorf("replace frame file: %w", err)
	}
	return nil
}
