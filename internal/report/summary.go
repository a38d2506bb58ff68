package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aatumaykin/tgpurge/internal/constants"
	"github.com/aatumaykin/tgpurge/internal/purge"
)

const rule = "=================================================="

// Summarize renders the run statistics with the first errors of the ledger.
func Summarize(stats purge.Stats) string {
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString("DELETION STATISTICS\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total processed: %d\n", stats.TotalProcessed)
	fmt.Fprintf(&b, "Successfully deleted: %d\n", stats.Deleted)
	fmt.Fprintf(&b, "Failed: %d\n", stats.Failed)
	fmt.Fprintf(&b, "Skipped (dry run): %d\n", stats.Skipped)

	if len(stats.Errors) > 0 {
		b.WriteString("\nErrors encountered:\n")
		for i, o := range stats.Errors {
			if i == constants.MaxErrorsPrinted {
				fmt.Fprintf(&b, "  ... and %d more errors\n", len(stats.Errors)-constants.MaxErrorsPrinted)
				break
			}
			fmt.Fprintf(&b, "  - %s (msg %d): %s\n", o.ChatName, o.MessageID, o.Detail)
		}
	}

	return b.String()
}

// Short is a one-paragraph summary suitable for a chat notification.
func Short(stats purge.Stats, dryRun bool) string {
	mode := "live"
	if dryRun {
		mode = "dry run"
	}
	return fmt.Sprintf("tgpurge %s finished: processed %d, deleted %d, failed %d, skipped %d",
		mode, stats.TotalProcessed, stats.Deleted, stats.Failed, stats.Skipped)
}

// WriteErrors writes the error ledger as CSV with columns
// chat_name, message_id, error.
func WriteErrors(w io.Writer, stats purge.Stats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"chat_name", "message_id", "error"}); err != nil {
		return err
	}
	for _, o := range stats.Errors {
		if err := cw.Write([]string{o.ChatName, strconv.Itoa(o.MessageID), o.Detail}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveErrors writes the error CSV into dir. It writes nothing and returns
// an empty path when the ledger is empty.
func SaveErrors(dir string, at time.Time, stats purge.Stats) (string, error) {
	if len(stats.Errors) == 0 {
		return "", nil
	}
	return save(dir, FileName(PrefixErrors, at, "csv"), func(f *os.File) error {
		return WriteErrors(f, stats)
	})
}
