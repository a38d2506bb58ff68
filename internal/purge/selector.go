package purge

import (
	"strconv"
	"strings"
	"time"
)

// Predicate is a keyword test. Empty reports a predicate that excludes nothing.
type Predicate interface {
	Match(text string) bool
	Empty() bool
}

// ChatFilter limits which chats take part in a run.
// Zero value allows every chat.
type ChatFilter struct {
	IncludeTypes []string // chat types to keep (empty = all)
	ExcludeChats []string // chat ids or names to skip
}

// Allows reports whether messages of the given chat may be selected.
func (f ChatFilter) Allows(chatID int64, chatName, chatType string) bool {
	if len(f.IncludeTypes) > 0 {
		ok := false
		for _, t := range f.IncludeTypes {
			if strings.EqualFold(strings.TrimSpace(t), chatType) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	id := strconv.FormatInt(chatID, 10)
	for _, ex := range f.ExcludeChats {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}
		if chatID != 0 && ex == id {
			return false
		}
		if strings.EqualFold(ex, chatName) {
			return false
		}
	}
	return true
}

// Cutoff returns the selection boundary. It is computed once per run.
func Cutoff(now time.Time, retention time.Duration) time.Time {
	return now.Add(-retention)
}

type groupKey struct {
	id   int64
	name string
}

func keyOf(m Message) groupKey {
	if m.ChatID != 0 {
		return groupKey{id: m.ChatID}
	}
	return groupKey{name: m.ChatName}
}

// Select returns the deletion candidates grouped by chat. A message is kept
// when its chat passes filter, it is owner-authored, strictly older than
// cutoff, and matched by pred (a nil or empty pred keeps everything).
//
// Groups appear in order of their first candidate; messages keep source
// order inside a group. The input slice is not modified.
func Select(messages []Message, cutoff time.Time, pred Predicate, filter ChatFilter) []ChatGroup {
	useKeywords := pred != nil && !pred.Empty()

	var groups []ChatGroup
	index := make(map[groupKey]int)

	for _, m := range messages {
		if !filter.Allows(m.ChatID, m.ChatName, m.ChatType) {
			continue
		}
		if !m.Owned() {
			continue
		}
		if !m.Date.Before(cutoff) {
			continue
		}
		if useKeywords && !pred.Match(m.Text) {
			continue
		}

		k := keyOf(m)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, ChatGroup{
				ChatID:   m.ChatID,
				ChatName: m.ChatName,
				ChatType: m.ChatType,
				Chat:     m.Chat,
			})
		}
		if groups[i].Chat == nil && m.Chat != nil {
			groups[i].Chat = m.Chat
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}

	return groups
}
