package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aatumaykin/tgpurge/internal/purge"
)

type jsonDocument struct {
	PersonalInformation *struct {
		UserID    flexString `json:"user_id"`
		FirstName string     `json:"first_name"`
	} `json:"personal_information"`
	Chats *struct {
		List []jsonChat `json:"list"`
	} `json:"chats"`

	// Single chat export
	jsonChat
}

type jsonChat struct {
	ID       int64         `json:"id"`
	Name     *string       `json:"name"`
	Type     string        `json:"type"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID           *int            `json:"id"`
	Type         string          `json:"type"`
	Date         string          `json:"date"`
	DateUnixtime flexString      `json:"date_unixtime"`
	From         *string         `json:"from"`
	FromID       flexString      `json:"from_id"`
	Out          bool            `json:"out"`
	Text         json.RawMessage `json:"text"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// LoadJSONFile reads a result.json export.
func LoadJSONFile(path string, opts Options) ([]purge.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()
	return LoadJSON(f, opts)
}

// LoadJSON decodes a JSON export. Only entries of type "message" are
// returned. Missing ids or unparsable dates make the whole export malformed.
func LoadJSON(r io.Reader, opts Options) ([]purge.Message, error) {
	var doc jsonDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}

	var chats []jsonChat
	switch {
	case doc.Chats != nil:
		chats = doc.Chats.List
	case doc.jsonChat.Messages != nil:
		chats = []jsonChat{doc.jsonChat}
	default:
		return nil, fmt.Errorf("%w: no chats.list in export", ErrMalformedExport)
	}

	owner := ownerOf(doc, opts)
	loc := opts.location()

	var messages []purge.Message
	for _, chat := range chats {
		name := fmt.Sprintf("Chat_%d", chat.ID)
		if chat.Name != nil && *chat.Name != "" {
			name = *chat.Name
		}
		chatType := chat.Type
		if chatType == "" {
			chatType = "unknown"
		}

		for i, raw := range chat.Messages {
			if raw.Type != "" && raw.Type != "message" {
				continue
			}
			if raw.ID == nil {
				return nil, fmt.Errorf("%w: chat %q message #%d has no id", ErrMalformedExport, name, i)
			}
			date, err := parseJSONDate(raw, loc)
			if err != nil {
				return nil, fmt.Errorf("%w: chat %q message %d: %v", ErrMalformedExport, name, *raw.ID, err)
			}
			text, err := parseText(raw.Text)
			if err != nil {
				return nil, fmt.Errorf("%w: chat %q message %d: %v", ErrMalformedExport, name, *raw.ID, err)
			}

			m := purge.Message{
				ChatID:   chat.ID,
				ChatName: name,
				ChatType: chatType,
				ID:       *raw.ID,
				Date:     date,
				Text:     text,
			}
			if owner.owns(raw) {
				m.Origin = purge.OriginOwner
			}
			messages = append(messages, m)
		}
	}

	return messages, nil
}

type jsonOwner struct {
	id        string
	firstName string
}

func ownerOf(doc jsonDocument, opts Options) jsonOwner {
	var o jsonOwner
	if doc.PersonalInformation != nil {
		o.id = string(doc.PersonalInformation.UserID)
		o.firstName = doc.PersonalInformation.FirstName
	}
	if opts.OwnerID != 0 {
		o.id = strconv.FormatInt(opts.OwnerID, 10)
	}
	if opts.OwnerName != "" {
		o.firstName = opts.OwnerName
	}
	return o
}

// owns applies the authorship rules in order: the out flag, from_id equal
// to "user<id>" or "<id>", then the sender name.
func (o jsonOwner) owns(m jsonMessage) bool {
	if m.Out {
		return true
	}
	fromID := string(m.FromID)
	if o.id != "" && (fromID == "user"+o.id || fromID == o.id) {
		return true
	}
	return o.firstName != "" && m.From != nil && *m.From == o.firstName
}

func parseJSONDate(m jsonMessage, loc *time.Location) (time.Time, error) {
	if m.DateUnixtime != "" {
		sec, err := strconv.ParseInt(string(m.DateUnixtime), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date_unixtime %q", m.DateUnixtime)
		}
		return time.Unix(sec, 0), nil
	}
	if m.Date == "" {
		return time.Time{}, errors.New("missing date")
	}
	if t, err := time.Parse(time.RFC3339, m.Date); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", m.Date, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", m.Date)
}

// parseText accepts a string or an array of strings and {"type","text"}
// entities, concatenated in order.
func parseText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return "", err
		}
		var b strings.Builder
		for _, p := range parts {
			p = bytes.TrimSpace(p)
			if len(p) == 0 {
				continue
			}
			if p[0] == '"' {
				var s string
				if err := json.Unmarshal(p, &s); err != nil {
					return "", err
				}
				b.WriteString(s)
				continue
			}
			var entity struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(p, &entity); err != nil {
				return "", fmt.Errorf("invalid text entity: %w", err)
			}
			b.WriteString(entity.Text)
		}
		return b.String(), nil
	default:
		return "", errors.New("unsupported text value")
	}
}
