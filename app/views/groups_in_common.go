package views

import (
	"context"
	"fmt"
	"strings"

	"nuclight.org/tgweb/app/stores"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

const groupsInCommonLimit = 100

// GroupsInCommon lists the groups shared with the peer of a private chat.
type GroupsInCommon struct {
	lifecycle

	ChatID int64
	Popup  bool

	log   logger.Logger
	gw    Gateway
	chats *stores.ChatStore

	chatIDs []int64
	loaded  bool
	err     error
}

func NewGroupsInCommon(log logger.Logger, gw Gateway, chats *stores.ChatStore, chatID int64, popup bool) *GroupsInCommon {
	return &GroupsInCommon{
		ChatID: chatID,
		Popup:  popup,
		log:    log.With("view", "groups_in_common", "chat_id", chatID),
		gw:     gw,
		chats:  chats,
	}
}

func (g *GroupsInCommon) Mount(ctx context.Context) {
	if !g.mount() {
		return
	}

	userID := g.chats.Get(g.ChatID).UserID()
	if userID == 0 {
		return
	}

	req := td.GetGroupsInCommon{
		UserID:       userID,
		OffsetChatID: 0,
		Limit:        groupsInCommonLimit,
	}
	g.gw.SendThen(ctx, req, func(resp td.Response, err error) {
		if !g.Mounted() {
			return
		}

		g.loaded = true
		if err != nil {
			g.err = err
			g.log.Warn("loading groups in common", "error", err)
			return
		}

		chats, ok := resp.(*td.Chats)
		if !ok {
			g.err = fmt.Errorf("unexpected %s response", resp.Type())
			return
		}
		g.chatIDs = chats.ChatIDs
	})
}

func (g *GroupsInCommon) Unmount() {
	g.unmount()
}

// ChatIDs returns the loaded groups, empty until the request completes.
func (g *GroupsInCommon) ChatIDs() []int64 {
	return g.chatIDs
}

func (g *GroupsInCommon) Err() error {
	return g.err
}

// Select opens a group and closes the popup this list was shown in.
func (g *GroupsInCommon) Select(chatID int64) {
	g.gw.ClientUpdate(&td.ClientUpdateOpenChat{ChatID: chatID})

	if g.Popup {
		g.gw.ClientUpdate(&td.ClientUpdateDialogChatID{ChatID: 0})
	}
}

func (g *GroupsInCommon) Render() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Groups in common"))
	b.WriteString("\n")

	switch {
	case g.err != nil:
		b.WriteString(styleError.Render(g.err.Error()))
	case !g.loaded:
		b.WriteString(styleMuted.Render("Loading..."))
	case len(g.chatIDs) == 0:
		b.WriteString(styleMuted.Render("No groups in common"))
	}

	for _, id := range g.chatIDs {
		title := fmt.Sprintf("Chat %d", id)
		if chat := g.chats.Get(id); chat != nil && chat.Title != "" {
			title = chat.Title
		}
		b.WriteString("\n  " + title)
	}

	if g.Popup {
		return styleDialog.Render(b.String())
	}
	return b.String()
}
