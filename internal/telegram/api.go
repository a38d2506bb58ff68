// Package telegram is the live MTProto side of tgpurge, built on gotd/td.
// It logs in as the user, lists dialogs, finds the user's own messages and
// deletes them one by one, translating RPC errors into purge failures.
package telegram

import (
	"context"

	"github.com/gotd/td/tg"
)

// API is the subset of *tg.Client used here.
type API interface {
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	MessagesSearch(ctx context.Context, request *tg.MessagesSearchRequest) (tg.MessagesMessagesClass, error)
	MessagesGetMessages(ctx context.Context, id []tg.InputMessageClass) (tg.MessagesMessagesClass, error)
	ChannelsGetMessages(ctx context.Context, request *tg.ChannelsGetMessagesRequest) (tg.MessagesMessagesClass, error)
	MessagesDeleteMessages(ctx context.Context, request *tg.MessagesDeleteMessagesRequest) (*tg.MessagesAffectedMessages, error)
	ChannelsDeleteMessages(ctx context.Context, request *tg.ChannelsDeleteMessagesRequest) (*tg.MessagesAffectedMessages, error)
}

var _ API = (*tg.Client)(nil)

// messagesOf extracts the message list of any messages.Messages variant.
func messagesOf(res tg.MessagesMessagesClass) []tg.MessageClass {
	switch r := res.(type) {
	case *tg.MessagesMessages:
		return r.Messages
	case *tg.MessagesMessagesSlice:
		return r.Messages
	case *tg.MessagesChannelMessages:
		return r.Messages
	default:
		return nil
	}
}
