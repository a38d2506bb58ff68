// Package purge selects owner-authored messages for deletion and drives the
// rate-limited, per-chat batch deletion against a remote transport.
//
// Pipeline:
//
//	messages -> Select (owner, cutoff, keywords) -> []ChatGroup
//	         -> Deleter.Run (resolve chat, batch, pace, delete) -> Stats
//
// Everything runs on a single control flow. Suspension points (inter-batch
// pacing and rate-limit waits) honour context cancellation.
package purge

import (
	"strconv"
	"strings"
	"time"
)

// Origin marks who authored a message.
type Origin int

const (
	// OriginOther is any message not sent by the account owner.
	OriginOther Origin = iota
	// OriginOwner is a message sent by the authenticated account.
	OriginOwner
)

// Chat is a remote chat handle. Peer carries the transport-specific address.
type Chat struct {
	ID       int64
	Name     string
	Username string
	Type     string
	Peer     any
}

// Message is an immutable record read from an export or a live listing.
type Message struct {
	ChatID   int64
	ChatName string
	ChatType string
	ID       int
	Date     time.Time
	Text     string
	Origin   Origin

	// Chat is set by live listings, where the handle is already known.
	Chat *Chat
}

// Owned reports whether the account owner sent the message.
func (m Message) Owned() bool {
	return m.Origin == OriginOwner
}

// ChatGroup holds the deletion candidates of one chat in source order.
type ChatGroup struct {
	ChatID   int64
	ChatName string
	ChatType string
	Chat     *Chat
	Messages []Message
}

// IDs returns the message ids of the group in order.
func (g ChatGroup) IDs() []int {
	ids := make([]int, 0, len(g.Messages))
	for _, m := range g.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}

// Identifier returns the string the resolver should look the chat up by:
// the numeric id marked by chat type when known, otherwise the chat name.
func (g ChatGroup) Identifier() string {
	if g.ChatID != 0 {
		return strconv.FormatInt(MarkedID(g.ChatID, g.ChatType), 10)
	}
	return g.ChatName
}

// channelIDShift turns a bare channel id into its marked -100... form.
const channelIDShift = 1_000_000_000_000

// MarkedID turns a bare export id into the marked form that tells the peer
// kinds apart: -<id> for basic groups, -100<id> for supergroups and
// channels. User chats and ids that are already marked are returned as is.
func MarkedID(id int64, chatType string) int64 {
	if id <= 0 {
		return id
	}
	switch {
	case chatType == "private_group":
		return -id
	case strings.HasSuffix(chatType, "_supergroup"), strings.HasSuffix(chatType, "_channel"):
		return -(channelIDShift + id)
	}
	return id
}

// CountMessages returns the total number of candidates across groups.
func CountMessages(groups []ChatGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Messages)
	}
	return n
}

// Status is the terminal state of one deletion attempt.
type Status string

const (
	StatusDeleted Status = "deleted"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the result of one attempted deletion.
type Outcome struct {
	ChatID    int64
	ChatName  string
	MessageID int
	Status    Status
	Failure   FailureKind
	Wait      time.Duration
	Detail    string
}

// Success reports whether the attempt ended in Deleted or Skipped.
func (o Outcome) Success() bool {
	return o.Status != StatusFailed
}

// Stats accumulates outcomes for a single run. It is owned by that run.
type Stats struct {
	TotalProcessed int
	Deleted        int
	Failed         int
	Skipped        int
	Errors         []Outcome
}

// Record counts one outcome. Failures are appended to the error ledger.
func (s *Stats) Record(o Outcome) {
	s.TotalProcessed++
	switch o.Status {
	case StatusDeleted:
		s.Deleted++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
		s.Errors = append(s.Errors, o)
	}
}

// Merge adds the counters and ledger of other to s.
func (s *Stats) Merge(other Stats) {
	s.TotalProcessed += other.TotalProcessed
	s.Deleted += other.Deleted
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.Errors = append(s.Errors, other.Errors...)
}
