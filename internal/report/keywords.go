package report

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/aatumaykin/tgpurge/internal/constants"
)

// Count is a label with the number of rows it covers.
type Count struct {
	Name  string
	Count int
}

// KeywordSummary describes a set of preview rows.
type KeywordSummary struct {
	TotalMatches int
	UniqueChats  int
	Earliest     time.Time
	Latest       time.Time
	Keywords     []Count // first-seen order
	Chats        []Count // most rows first
}

// SummarizeRows aggregates rows into a KeywordSummary.
func SummarizeRows(rows []Row) KeywordSummary {
	s := KeywordSummary{TotalMatches: len(rows)}
	if len(rows) == 0 {
		return s
	}

	kwIndex := map[string]int{}
	chatIndex := map[string]int{}

	for i, r := range rows {
		if i == 0 || r.Date.Before(s.Earliest) {
			s.Earliest = r.Date
		}
		if i == 0 || r.Date.After(s.Latest) {
			s.Latest = r.Date
		}

		for _, kw := range r.MatchedKeywords {
			if j, ok := kwIndex[kw]; ok {
				s.Keywords[j].Count++
				continue
			}
			kwIndex[kw] = len(s.Keywords)
			s.Keywords = append(s.Keywords, Count{Name: kw, Count: 1})
		}

		if j, ok := chatIndex[r.ChatName]; ok {
			s.Chats[j].Count++
			continue
		}
		chatIndex[r.ChatName] = len(s.Chats)
		s.Chats = append(s.Chats, Count{Name: r.ChatName, Count: 1})
	}

	s.UniqueChats = len(s.Chats)
	slices.SortStableFunc(s.Chats, func(a, b Count) int { return b.Count - a.Count })
	return s
}

// PrintKeywordSummary writes s in the search results layout.
func PrintKeywordSummary(w io.Writer, s KeywordSummary) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SEARCH RESULTS SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total messages found: %d\n", s.TotalMatches)
	fmt.Fprintf(w, "Unique chats: %d\n", s.UniqueChats)
	if s.TotalMatches == 0 {
		return
	}

	fmt.Fprintf(w, "Date range: %s to %s\n", s.Earliest.Format(DateLayout), s.Latest.Format(DateLayout))

	if len(s.Keywords) > 0 {
		fmt.Fprintln(w, "\nKeyword matches:")
		for _, k := range s.Keywords {
			fmt.Fprintf(w, "  - '%s': %d messages\n", k.Name, k.Count)
		}
	}

	fmt.Fprintln(w, "\nChats with matches:")
	for i, c := range s.Chats {
		if i == constants.MaxChatsPrinted {
			fmt.Fprintf(w, "  ... and %d more chats\n", len(s.Chats)-constants.MaxChatsPrinted)
			break
		}
		fmt.Fprintf(w, "  - %s: %d messages\n", c.Name, c.Count)
	}
}
