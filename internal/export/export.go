// Package export loads candidate messages from a Telegram Desktop export.
// Both the machine-readable JSON export (result.json) and the HTML export
// (messages*.html) are supported. Only owner-authored messages are marked
// OriginOwner; everything else is returned with OriginOther so callers can
// still count it.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aatumaykin/tgpurge/internal/purge"
)

// ErrMalformedExport is returned when the export cannot be trusted as a
// complete candidate set. It is fatal at load time.
var ErrMalformedExport = errors.New("malformed export")

// Options identify the account owner inside an export.
type Options struct {
	OwnerID   int64          // overrides personal_information.user_id
	OwnerName string         // display name used by HTML exports
	Location  *time.Location // zone for dates without offset (default: Local)
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

// Format names an export flavour.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// Detect guesses the format of path: directories holding result.json are
// JSON, directories holding messages.html and *.html files are HTML.
func Detect(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat export: %w", err)
	}

	if !info.IsDir() {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			return FormatJSON, nil
		case ".html", ".htm":
			return FormatHTML, nil
		}
		return "", fmt.Errorf("%w: unknown export file type %s", ErrMalformedExport, filepath.Base(path))
	}

	if _, err := os.Stat(filepath.Join(path, "result.json")); err == nil {
		return FormatJSON, nil
	}
	if matches, _ := filepath.Glob(filepath.Join(path, "messages*.html")); len(matches) > 0 {
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: no result.json or messages*.html in %s", ErrMalformedExport, path)
}

// Load reads messages from path in the given format.
func Load(path string, format Format, opts Options) ([]purge.Message, error) {
	if format == "" || format == FormatAuto {
		detected, err := Detect(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	switch format {
	case FormatJSON:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, "result.json")
		}
		return LoadJSONFile(path, opts)
	case FormatHTML:
		return LoadHTMLPath(path, opts)
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}

// Owned filters messages down to the owner-authored ones.
func Owned(messages []purge.Message) []purge.Message {
	var out []purge.Message
	for _, m := range messages {
		if m.Owned() {
			out = append(out, m)
		}
	}
	return out
}
