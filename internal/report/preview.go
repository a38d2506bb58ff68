package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aatumaykin/tgpurge/internal/purge"
)

// KeywordExplainer reports which keywords fired for a text.
type KeywordExplainer interface {
	MatchedKeywords(text string) []string
}

// Row is one candidate in the preview.
type Row struct {
	ChatName        string
	ChatType        string
	MessageID       int
	Date            time.Time
	Text            string
	MatchedKeywords []string
}

// Rows flattens groups into preview rows. explain may be nil.
func Rows(groups []purge.ChatGroup, explain KeywordExplainer) []Row {
	rows := make([]Row, 0, purge.CountMessages(groups))
	for _, g := range groups {
		for _, m := range g.Messages {
			row := Row{
				ChatName:  g.ChatName,
				ChatType:  g.ChatType,
				MessageID: m.ID,
				Date:      m.Date,
				Text:      m.Text,
			}
			if explain != nil {
				row.MatchedKeywords = explain.MatchedKeywords(m.Text)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WritePreview writes rows as CSV with columns
// chat_name, chat_type, message_id, date, text, matched_keywords.
func WritePreview(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"chat_name", "chat_type", "message_id", "date", "text", "matched_keywords"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.ChatName,
			r.ChatType,
			strconv.Itoa(r.MessageID),
			r.Date.Format(DateLayout),
			r.Text,
			strings.Join(r.MatchedKeywords, ", "),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SavePreview writes the preview CSV into dir and returns its path.
func SavePreview(dir string, at time.Time, rows []Row) (string, error) {
	return save(dir, FileName(PrefixPreview, at, "csv"), func(f *os.File) error {
		return WritePreview(f, rows)
	})
}
