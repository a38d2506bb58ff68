package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aatumaykin/tgpurge/internal/constants"
	"github.com/aatumaykin/tgpurge/internal/purge"
)

// WriteGuide writes a markdown checklist of the chats that still hold
// candidates, with a few example texts per chat.
func WriteGuide(w io.Writer, groups []purge.ChatGroup, csvFile string, generatedAt time.Time) error {
	ew := &errWriter{w: w}

	ew.printf("# Telegram Message Deletion Guide\n\n")
	ew.printf("Generated: %s\n\n", generatedAt.Format(DateLayout))
	ew.printf("**Total messages to delete:** %d\n", purge.CountMessages(groups))
	if csvFile != "" {
		ew.printf("**CSV file:** `%s`\n", csvFile)
	}
	ew.printf("\n")

	ew.printf("## Instructions\n\n")
	ew.printf("1. Open Telegram Desktop or Mobile\n")
	ew.printf("2. Go to each chat listed below\n")
	ew.printf("3. Find and delete the messages with matching text\n")
	ew.printf("4. Check off each chat as you complete it\n\n")

	ew.printf("## Chats to Process\n\n")
	for _, g := range groups {
		ew.printf("### %s (%d messages)\n", g.ChatName, len(g.Messages))
		ew.printf("- [ ] **Status:** Not started\n\n")

		for i, m := range g.Messages {
			if i == constants.GuideExamplesPerChat {
				break
			}
			ew.printf("  - Example: \"%s\"\n", Truncate(m.Text, constants.GuideExampleLength))
		}
		if extra := len(g.Messages) - constants.GuideExamplesPerChat; extra > 0 {
			ew.printf("  - ... and %d more messages\n", extra)
		}
		ew.printf("\n")
	}

	return ew.err
}

// SaveGuide writes the guide into dir and returns its path.
func SaveGuide(dir string, at time.Time, groups []purge.ChatGroup, csvFile string) (string, error) {
	return save(dir, FileName(PrefixGuide, at, "md"), func(f *os.File) error {
		return WriteGuide(f, groups, csvFile, at)
	})
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
