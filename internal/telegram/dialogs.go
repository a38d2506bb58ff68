package telegram

import (
	"strings"

	"github.com/gotd/td/tg"

	"github.com/aatumaykin/tgpurge/internal/purge"
)

const dialogPageSize = 100

// channelIDShift turns a bare channel id into its marked "-100..." form.
const channelIDShift = 1_000_000_000_000

type peerKind int

const (
	kindUser peerKind = iota + 1
	kindChat
	kindChannel
)

type peerKey struct {
	kind peerKind
	id   int64
}

func keyOfPeer(p tg.PeerClass) (peerKey, bool) {
	switch v := p.(type) {
	case *tg.PeerUser:
		return peerKey{kindUser, v.UserID}, true
	case *tg.PeerChat:
		return peerKey{kindChat, v.ChatID}, true
	case *tg.PeerChannel:
		return peerKey{kindChannel, v.ChannelID}, true
	default:
		return peerKey{}, false
	}
}

func keyOfInput(p any) (peerKey, bool) {
	switch v := p.(type) {
	case *tg.InputPeerUser:
		return peerKey{kindUser, v.UserID}, true
	case *tg.InputPeerChat:
		return peerKey{kindChat, v.ChatID}, true
	case *tg.InputPeerChannel:
		return peerKey{kindChannel, v.ChannelID}, true
	default:
		return peerKey{}, false
	}
}

// matchesID compares a dialog with a marked id: a positive id is a user,
// -<chat> a basic group and -100<channel> a channel or supergroup.
func matchesID(c purge.Chat, id int64) bool {
	if _, self := c.Peer.(*tg.InputPeerSelf); self {
		return id > 0 && c.ID == id
	}
	key, ok := keyOfInput(c.Peer)
	if !ok {
		return false
	}
	switch {
	case id > 0:
		return key.kind == kindUser && key.id == id
	case id <= -channelIDShift:
		return key.kind == kindChannel && key.id == -id-channelIDShift
	default:
		return key.kind == kindChat && key.id == -id
	}
}

// matchesBareID compares the unmarked id of any dialog kind.
func matchesBareID(c purge.Chat, id int64) bool {
	if _, self := c.Peer.(*tg.InputPeerSelf); self {
		return c.ID == id
	}
	key, ok := keyOfInput(c.Peer)
	return ok && key.id == id
}

// entities indexes the users and chats attached to an RPC response.
type entities struct {
	users    map[int64]*tg.User
	chats    map[int64]*tg.Chat
	channels map[int64]*tg.Channel
}

func newEntities(chats []tg.ChatClass, users []tg.UserClass) entities {
	e := entities{
		users:    make(map[int64]*tg.User, len(users)),
		chats:    make(map[int64]*tg.Chat),
		channels: make(map[int64]*tg.Channel),
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			e.users[user.ID] = user
		}
	}
	for _, c := range chats {
		switch v := c.(type) {
		case *tg.Chat:
			e.chats[v.ID] = v
		case *tg.Channel:
			e.channels[v.ID] = v
		}
	}
	return e
}

// chat builds the purge handle for a dialog peer.
func (e entities) chat(p tg.PeerClass) (purge.Chat, bool) {
	key, ok := keyOfPeer(p)
	if !ok {
		return purge.Chat{}, false
	}

	switch key.kind {
	case kindUser:
		u, ok := e.users[key.id]
		if !ok {
			return purge.Chat{}, false
		}
		return userChat(u), true
	case kindChat:
		c, ok := e.chats[key.id]
		if !ok || c.Deactivated {
			return purge.Chat{}, false
		}
		return purge.Chat{
			ID:   c.ID,
			Name: c.Title,
			Type: "private_group",
			Peer: &tg.InputPeerChat{ChatID: c.ID},
		}, true
	case kindChannel:
		c, ok := e.channels[key.id]
		if !ok {
			return purge.Chat{}, false
		}
		return channelChat(c), true
	}
	return purge.Chat{}, false
}

func userChat(u *tg.User) purge.Chat {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	chat := purge.Chat{
		ID:       u.ID,
		Name:     name,
		Username: u.Username,
		Type:     "personal_chat",
		Peer:     &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash},
	}
	switch {
	case u.Self:
		chat.Name = "Saved Messages"
		chat.Type = "saved_messages"
		chat.Peer = &tg.InputPeerSelf{}
	case u.Bot:
		chat.Type = "bot_chat"
	}
	if chat.Name == "" {
		chat.Name = u.Username
	}
	return chat
}

func channelChat(c *tg.Channel) purge.Chat {
	visibility := "private"
	if c.Username != "" {
		visibility = "public"
	}
	kind := "supergroup"
	if c.Broadcast {
		kind = "channel"
	}
	return purge.Chat{
		ID:       c.ID,
		Name:     c.Title,
		Username: c.Username,
		Type:     visibility + "_" + kind,
		Peer:     &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash},
	}
}

// inputPeer returns the input peer for a dialog peer, used as a page offset.
func (e entities) inputPeer(p tg.PeerClass) tg.InputPeerClass {
	chat, ok := e.chat(p)
	if !ok {
		return &tg.InputPeerEmpty{}
	}
	if ip, ok := chat.Peer.(tg.InputPeerClass); ok {
		return ip
	}
	return &tg.InputPeerEmpty{}
}

// topMessageDate finds the date of a dialog's top message in a page.
func topMessageDate(messages []tg.MessageClass, d *tg.Dialog) int {
	want, _ := keyOfPeer(d.Peer)
	for _, m := range messages {
		switch v := m.(type) {
		case *tg.Message:
			if k, ok := keyOfPeer(v.PeerID); ok && k == want && v.ID == d.TopMessage {
				return v.Date
			}
		case *tg.MessageService:
			if k, ok := keyOfPeer(v.PeerID); ok && k == want && v.ID == d.TopMessage {
				return v.Date
			}
		}
	}
	return 0
}
