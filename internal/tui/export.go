package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/epalmerini/rmqtools/internal/randutil"
)

// writeExport writes composed export text to a new file in dir and returns
// its path.
func writeExport(dir, queue, text string) (string, error) {
	name := fmt.Sprintf("rmqtools-%s-%s.txt", fileSafe(queue), randutil.Suffix(4))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// fileSafe maps a queue name to something usable in a file name.
func fileSafe(name string) string {
	if name == "" {
		return "export"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
