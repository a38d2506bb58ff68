package telegram

import (
	"fmt"

	"github.com/gotd/td/tgerr"

	"github.com/aatumaykin/tgpurge/internal/purge"
)

// RPC error types that mean the chat is not reachable from this account.
var chatMissingErrors = []string{
	"PEER_ID_INVALID",
	"CHANNEL_INVALID",
	"CHANNEL_PRIVATE",
	"CHAT_ID_INVALID",
}

// translate maps an RPC error onto the purge failure taxonomy; anything
// not recognised is returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return &purge.RateLimitError{Wait: wait}
	}
	switch {
	case tgerr.Is(err, "CHAT_ADMIN_REQUIRED"):
		return fmt.Errorf("%w: %v", purge.ErrPermissionDenied, err)
	case tgerr.Is(err, "MESSAGE_DELETE_FORBIDDEN"):
		return fmt.Errorf("%w: %v", purge.ErrDeleteForbidden, err)
	case tgerr.Is(err, chatMissingErrors...):
		return fmt.Errorf("%w: %v", purge.ErrChatNotFound, err)
	}
	return err
}
