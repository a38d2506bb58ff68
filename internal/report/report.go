// Package report turns selection results and deletion stats into the
// artifacts a user reads: the printed summary, the error CSV, the candidate
// preview CSV, the keyword summary and the markdown deletion guide.
//
// Every function here is a pure function of its inputs plus the writer it
// is given. Nothing talks to the remote service.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/aatumaykin/tgpurge/internal/constants"
)

// Artifact file prefixes.
const (
	PrefixPreview = "keyword_matches"
	PrefixErrors  = "deletion_errors"
	PrefixGuide   = "deletion_guide"
)

// DateLayout formats message dates in reports.
const DateLayout = "2006-01-02 15:04:05"

// FileName builds "<prefix>_<YYYYMMDD_HHMMSS>.<ext>".
func FileName(prefix string, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format(constants.FileTimestampLayout), ext)
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// create opens dir/name for writing, creating dir.
func create(dir, name string) (*os.File, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, path, nil
}

// save writes a file through fn and closes it, reporting the first error.
func save(dir, name string, fn func(f *os.File) error) (string, error) {
	f, path, err := create(dir, name)
	if err != nil {
		return "", err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}
