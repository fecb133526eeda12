// Package shell composes the stores and views into the application root.
package shell

import (
	"context"
	"fmt"

	"go.uber.org/atomic"

	"nuclight.org/tgweb/app/stores"
	"nuclight.org/tgweb/app/views"
	"nuclight.org/tgweb/pkg/emitter"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

const optionOnline = "online"

// Gateway is the part of the controller the root talks to.
type Gateway interface {
	views.Gateway
}

// ChatScroller is the message list of the open chat.
type ChatScroller interface {
	ScrollToMessage()
	ScrollToStart()
	ScrollToBottom()
}

// Stores are the aggregates the root reads.
type Stores struct {
	App      *stores.ApplicationStore
	Chats    *stores.ChatStore
	Users    *stores.UserStore
	Polls    *stores.PollStore
	Stickers *stores.StickerStore
	Files    *stores.FileStore
}

// Root holds UI-only state: the authorization phase, overlays, focus and held
// keys. All methods run on the task queue.
type Root struct {
	// Details receives scroll requests for the open chat. It may be nil.
	Details ChatScroller

	log       logger.Logger
	gw        Gateway
	queue     views.Poster
	stores    Stores
	onRefresh func()

	// ctx is the session context used for requests started by store events.
	ctx     context.Context
	subs    emitter.Bag
	mounted atomic.Bool

	authorizationState *td.AuthorizationState
	authError          error
	inactive           bool
	fatalError         bool
	hasFocus           bool
	chatDetailsVisible bool

	mediaViewerContent        *td.MediaViewerContent
	profileMediaViewerContent *td.ProfileMediaViewerContent
	forwardInfo               *td.ForwardInfo

	keys map[string]struct{}

	pollDialog    *views.CreatePollDialog
	stickerDialog *views.StickerSetDialog
	groups        *views.GroupsInCommon
}

// New builds the root. onRefresh is called when the user chooses Refresh in the
// fatal error overlay.
func New(log logger.Logger, gw Gateway, queue views.Poster, s Stores, onRefresh func()) *Root {
	r := &Root{
		log:                log.With("view", "root"),
		gw:                 gw,
		queue:              queue,
		stores:             s,
		onRefresh:          onRefresh,
		ctx:                context.Background(),
		hasFocus:           true,
		chatDetailsVisible: s.App.State().ChatDetailsVisible,
		keys:               make(map[string]struct{}),
	}
	r.pollDialog = views.NewCreatePollDialog(log, gw, queue, s.Polls, r.sendPoll)
	r.stickerDialog = views.NewStickerSetDialog(log, gw, s.Stickers)

	return r
}

func (r *Root) Mount(ctx context.Context) {
	if !r.mounted.CompareAndSwap(false, true) {
		return
	}
	r.ctx = ctx

	app := r.stores.App
	r.subs.Add(
		r.stores.Users.On(td.TypeClientUpdateOpenUser, r.onOpenUser),
		r.stores.Chats.On(td.TypeClientUpdateOpenChat, r.onOpenChat),

		app.On(td.TypeUpdateAuthorizationState, r.onAuthorizationState),
		app.On(td.TypeClientUpdateChatDetailsVisibility, r.onChatDetailsVisibility),
		app.On(td.TypeClientUpdateChatID, r.onChatID),
		app.On(td.TypeClientUpdateMediaViewerContent, r.onMediaViewerContent),
		app.On(td.TypeClientUpdateProfileMediaViewerContent, r.onProfileMediaViewerContent),
		app.On(td.TypeClientUpdateAppInactive, r.onAppInactive),
		app.On(td.TypeUpdateFatalError, r.onFatalError),
		app.On(td.TypeClientUpdateForward, r.onForward),
	)

	r.pollDialog.Mount(ctx)
	r.stickerDialog.Mount(ctx)
}

func (r *Root) Unmount() {
	if !r.mounted.CompareAndSwap(true, false) {
		return
	}

	r.subs.Close()
	r.pollDialog.Unmount()
	r.stickerDialog.Unmount()
	if r.groups != nil {
		r.groups.Unmount()
		r.groups = nil
	}
}

func (r *Root) Mounted() bool {
	return r.mounted.Load()
}

func (r *Root) Page() Page {
	return PageFor(r.authorizationState, r.inactive)
}

func (r *Root) FatalError() bool {
	return r.fatalError
}

func (r *Root) PollDialog() *views.CreatePollDialog {
	return r.pollDialog
}

func (r *Root) StickerSetDialog() *views.StickerSetDialog {
	return r.stickerDialog
}

// GroupsInCommon returns the chat info list, or nil when it is not shown.
func (r *Root) GroupsInCommon() *views.GroupsInCommon {
	return r.groups
}

func (r *Root) onAuthorizationState(o td.Object) error {
	u, ok := o.(*td.UpdateAuthorizationState)
	if !ok {
		return nil
	}

	state := u.AuthorizationState
	r.authorizationState = &state
	r.authError = nil

	if !r.hasFocus || !state.IsReady() {
		return nil
	}

	r.send(td.SetOption{Name: optionOnline, Value: td.OptionBool(true)}, nil)
	return nil
}

func (r *Root) onChatDetailsVisibility(td.Object) error {
	r.chatDetailsVisible = r.stores.App.State().ChatDetailsVisible
	r.syncChatInfo()
	return nil
}

func (r *Root) onChatID(td.Object) error {
	r.syncChatInfo()
	return nil
}

func (r *Root) onMediaViewerContent(td.Object) error {
	r.mediaViewerContent = r.stores.App.State().MediaViewerContent
	return nil
}

func (r *Root) onProfileMediaViewerContent(td.Object) error {
	r.profileMediaViewerContent = r.stores.App.State().ProfileMediaViewerContent
	return nil
}

func (r *Root) onAppInactive(td.Object) error {
	r.inactive = true
	return nil
}

func (r *Root) onFatalError(td.Object) error {
	r.fatalError = true
	return nil
}

func (r *Root) onForward(o td.Object) error {
	if u, ok := o.(*td.ClientUpdateForward); ok {
		r.forwardInfo = u.Info
	}
	return nil
}

func (r *Root) onOpenChat(o td.Object) error {
	if u, ok := o.(*td.ClientUpdateOpenChat); ok {
		r.SelectChat(u.ChatID, u.MessageID, u.Popup)
	}
	return nil
}

func (r *Root) onOpenUser(o td.Object) error {
	if u, ok := o.(*td.ClientUpdateOpenUser); ok {
		r.SelectUser(u.UserID, u.Popup)
	}
	return nil
}

// SelectChat opens a chat. Popups only switch the dialog chat; selecting the
// open chat again scrolls it instead of reopening.
func (r *Root) SelectChat(chatID, messageID int64, popup bool) {
	st := r.stores.App.State()

	if popup {
		if st.DialogChatID != chatID {
			r.gw.ClientUpdate(&td.ClientUpdateDialogChatID{ChatID: chatID})
		}
		return
	}

	switch {
	case st.ChatID == chatID && messageID != 0 && st.MessageID == messageID:
		if r.Details != nil {
			r.Details.ScrollToMessage()
		}
		r.gw.ClientUpdate(&td.ClientUpdateMessageHighlighted{ChatID: chatID, MessageID: messageID})
	case st.ChatID == chatID && messageID == 0:
		if r.Details == nil {
			return
		}
		if chat := r.stores.Chats.Get(chatID); chat != nil && chat.UnreadCount > 0 {
			r.Details.ScrollToStart()
		} else {
			r.Details.ScrollToBottom()
		}
	default:
		r.setChatID(chatID, messageID)
	}
}

// SelectUser opens the private chat with a user, creating it if needed.
func (r *Root) SelectUser(userID int64, popup bool) {
	if userID == 0 {
		return
	}

	r.createPrivateChat(userID, func(chat *td.Chat) {
		r.SelectChat(chat.ID, 0, popup)
	})
}

func (r *Root) setChatID(chatID, messageID int64) {
	r.gw.ClientUpdate(&td.ClientUpdateChatID{ChatID: chatID, MessageID: messageID})
}

func (r *Root) createPrivateChat(userID int64, then func(*td.Chat)) {
	r.send(td.CreatePrivateChat{UserID: userID, Force: true}, func(resp td.Response) {
		chat, ok := resp.(*td.Chat)
		if !ok {
			r.log.Warn("unexpected createPrivateChat response", "td_type", resp.Type())
			return
		}

		r.stores.Chats.Set(chat)
		then(chat)
	})
}

// syncChatInfo shows groups in common for the open private chat while chat
// details are visible.
func (r *Root) syncChatInfo() {
	if !r.Mounted() {
		return
	}

	chatID := r.stores.App.ChatID()
	show := r.chatDetailsVisible && chatID != 0 && r.stores.Chats.Get(chatID).UserID() != 0

	if r.groups != nil && (!show || r.groups.ChatID != chatID) {
		r.groups.Unmount()
		r.groups = nil
	}
	if show && r.groups == nil {
		r.groups = views.NewGroupsInCommon(r.log, r.gw, r.stores.Chats, chatID, false)
		r.groups.Mount(r.ctx)
	}
}

// Refresh closes the fatal error overlay and restarts the session.
func (r *Root) Refresh() {
	r.fatalError = false
	if r.onRefresh != nil {
		r.onRefresh()
	}
}

// Destroy closes the fatal error overlay and logs out by destroying the
// engine instance.
func (r *Root) Destroy() {
	r.fatalError = false
	r.send(td.Destroy{}, nil)
}

func (r *Root) SubmitPhoneNumber(phone string) {
	r.sendAuth(td.SetAuthenticationPhoneNumber{PhoneNumber: phone})
}

func (r *Root) SubmitCode(code string) {
	r.sendAuth(td.CheckAuthenticationCode{Code: code})
}

func (r *Root) SubmitPassword(password string) {
	r.sendAuth(td.CheckAuthenticationPassword{Password: password})
}

// ChangePhone returns to the phone number form without telling the engine.
func (r *Root) ChangePhone() {
	r.authorizationState = &td.AuthorizationState{Kind: td.AuthorizationStateWaitPhoneNumber}
	r.authError = nil
}

func (r *Root) LogOut() {
	r.send(td.LogOut{}, nil)
}

// NewPoll opens the poll dialog with an empty draft.
func (r *Root) NewPoll() {
	r.gw.ClientUpdate(&td.ClientUpdateNewPoll{})
}

// OpenStickerSet loads a sticker set into the sticker set dialog.
func (r *Root) OpenStickerSet(setID int64) {
	r.send(td.GetStickerSet{SetID: td.Int64(setID)}, func(resp td.Response) {
		set, ok := resp.(*td.StickerSet)
		if !ok {
			return
		}
		r.gw.ClientUpdate(&td.ClientUpdateStickerSet{StickerSet: set})
	})
}

func (r *Root) SetChatDetailsVisible(visible bool) {
	r.gw.ClientUpdate(&td.ClientUpdateChatDetailsVisibility{Visible: visible})
}

func (r *Root) CloseMediaViewer() {
	r.gw.ClientUpdate(&td.ClientUpdateMediaViewerContent{Content: nil})
}

func (r *Root) CloseForward() {
	r.gw.ClientUpdate(&td.ClientUpdateForward{Info: nil})
}

func (r *Root) sendPoll(content *td.InputMessagePoll) {
	chatID := r.stores.App.ChatID()
	if chatID == 0 {
		r.log.Warn("sending poll without an open chat")
		return
	}

	r.send(td.SendMessage{ChatID: chatID, InputMessageContent: *content}, nil)
}

func (r *Root) sendAuth(req td.Request) {
	r.authError = nil
	r.gw.SendThen(r.ctx, req, func(_ td.Response, err error) {
		if !r.Mounted() {
			return
		}
		if err != nil {
			r.authError = err
			r.log.Warn("authorization request failed", "td_type", req.Type(), "error", err)
		}
	})
}

// send issues a request and runs then with the response on the task queue if the
// root is still mounted. Failures are logged.
func (r *Root) send(req td.Request, then func(td.Response)) {
	r.gw.SendThen(r.ctx, req, func(resp td.Response, err error) {
		if err != nil {
			r.log.Warn("request failed", "td_type", req.Type(), "error", err)
			return
		}
		if then == nil || !r.Mounted() {
			return
		}
		then(resp)
	})
}

// State is a serializable snapshot of the root for diagnostics.
type State struct {
	Page               string   `json:"page"`
	AuthorizationState string   `json:"authorization_state,omitempty"`
	AuthError          string   `json:"auth_error,omitempty"`
	FatalError         bool     `json:"fatal_error"`
	Inactive           bool     `json:"inactive"`
	HasFocus           bool     `json:"has_focus"`
	ChatID             int64    `json:"chat_id"`
	DialogChatID       int64    `json:"dialog_chat_id"`
	ChatDetailsVisible bool     `json:"chat_details_visible"`
	HeldKeys           []string `json:"held_keys"`
	MediaViewer        bool     `json:"media_viewer"`
	ProfileMediaViewer bool     `json:"profile_media_viewer"`
	Forwarding         bool     `json:"forwarding"`
	PollDraft          bool     `json:"poll_draft"`
	StickerSetID       string   `json:"sticker_set_id,omitempty"`
}

func (r *Root) State() State {
	app := r.stores.App.State()

	st := State{
		Page:               r.Page().String(),
		FatalError:         r.fatalError,
		Inactive:           r.inactive,
		HasFocus:           r.hasFocus,
		ChatID:             app.ChatID,
		DialogChatID:       app.DialogChatID,
		ChatDetailsVisible: r.chatDetailsVisible,
		HeldKeys:           r.HeldKeys(),
		MediaViewer:        r.mediaViewerContent != nil,
		ProfileMediaViewer: r.profileMediaViewerContent != nil,
		Forwarding:         r.forwardInfo != nil,
		PollDraft:          r.pollDialog.Poll() != nil,
	}
	if r.authorizationState != nil {
		st.AuthorizationState = r.authorizationState.Kind
	}
	if r.authError != nil {
		st.AuthError = r.authError.Error()
	}
	if set := r.stickerDialog.StickerSet(); set != nil {
		st.StickerSetID = fmt.Sprint(int64(set.ID))
	}

	return st
}
