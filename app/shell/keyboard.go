package shell

import (
	"sort"

	"nuclight.org/tgweb/pkg/td"
)

// maxHeldKeys suppresses shortcuts during fast typing.
const maxHeldKeys = 3

const pinnedChatsLimit = 10

// KeyEvent is a physical key press. Repeat is set for auto-repeat events.
type KeyEvent struct {
	Key    string
	Ctrl   bool
	Alt    bool
	Shift  bool
	Repeat bool
}

// KeyDown records a held key and runs a shortcut if one matches. It reports
// whether the event was consumed.
//
// Ctrl+Alt+0 opens Saved Messages, Ctrl+Alt+1..5 opens the n-th pinned chat.
func (r *Root) KeyDown(ev KeyEvent) bool {
	r.keys[ev.Key] = struct{}{}

	if !r.stores.App.AuthorizationState().IsReady() {
		return false
	}
	if len(r.keys) > maxHeldKeys || ev.Repeat {
		return false
	}
	if !ev.Ctrl || !ev.Alt {
		return false
	}

	switch ev.Key {
	case "0":
		r.openSavedMessages()
	case "1", "2", "3", "4", "5":
		r.openPinnedChat(int(ev.Key[0] - '1'))
	default:
		return false
	}

	return true
}

func (r *Root) KeyUp(key string) {
	delete(r.keys, key)
}

// HeldKeys returns the keys currently held, sorted.
func (r *Root) HeldKeys() []string {
	keys := make([]string, 0, len(r.keys))
	for k := range r.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Focus and Blur track window focus. Held keys are forgotten either way since
// key-up events are lost while unfocused.
func (r *Root) Focus() {
	r.setFocus(true)
}

func (r *Root) Blur() {
	r.setFocus(false)
}

func (r *Root) HasFocus() bool {
	return r.hasFocus
}

func (r *Root) setFocus(focused bool) {
	clear(r.keys)

	if !r.stores.App.AuthorizationState().IsReady() {
		return
	}

	r.hasFocus = focused
	r.gw.ClientUpdate(&td.ClientUpdateFocusWindow{Focused: focused})
}

func (r *Root) openSavedMessages() {
	myID := r.stores.Users.MyID()
	if myID == 0 {
		r.log.Warn("opening saved messages before my_id is known")
		return
	}

	r.createPrivateChat(myID, func(chat *td.Chat) {
		r.setChatID(chat.ID, 0)
	})
}

func (r *Root) openPinnedChat(index int) {
	req := td.GetChats{
		OffsetOrder:  td.MaxOrder,
		OffsetChatID: 0,
		Limit:        pinnedChatsLimit,
	}
	r.send(req, func(resp td.Response) {
		chats, ok := resp.(*td.Chats)
		if !ok {
			return
		}

		pinned := -1
		for _, id := range chats.ChatIDs {
			chat := r.stores.Chats.Get(id)
			if chat == nil || !chat.IsPinned {
				continue
			}

			pinned++
			if pinned == index {
				r.setChatID(chat.ID, 0)
				return
			}
		}
	})
}
