package td

const (
	TypeClientUpdateStickerSet                = "clientUpdateStickerSet"
	TypeClientUpdateNewPoll                   = "clientUpdateNewPoll"
	TypeClientUpdateNewPollOption             = "clientUpdateNewPollOption"
	TypeClientUpdateDeletePollOption          = "clientUpdateDeletePollOption"
	TypeClientUpdatePollOption                = "clientUpdatePollOption"
	TypeClientUpdatePollQuestion              = "clientUpdatePollQuestion"
	TypeClientUpdateDeletePoll                = "clientUpdateDeletePoll"
	TypeClientUpdateFocusWindow               = "clientUpdateFocusWindow"
	TypeClientUpdateOpenChat                  = "clientUpdateOpenChat"
	TypeClientUpdateOpenUser                  = "clientUpdateOpenUser"
	TypeClientUpdateDialogChatID              = "clientUpdateDialogChatId"
	TypeClientUpdateChatID                    = "clientUpdateChatId"
	TypeClientUpdateChatDetailsVisibility     = "clientUpdateChatDetailsVisibility"
	TypeClientUpdateMediaViewerContent        = "clientUpdateMediaViewerContent"
	TypeClientUpdateProfileMediaViewerContent = "clientUpdateProfileMediaViewerContent"
	TypeClientUpdateAppInactive               = "clientUpdateAppInactive"
	TypeClientUpdateForward                   = "clientUpdateForward"
	TypeClientUpdateMessageHighlighted        = "clientUpdateMessageHighlighted"
)

type ClientUpdateStickerSet struct {
	StickerSet *StickerSet
}

// ClientUpdateNewPoll starts an empty poll draft.
type ClientUpdateNewPoll struct{}

type ClientUpdateNewPollOption struct {
	Option PollOption
}

type ClientUpdateDeletePollOption struct {
	ID int64
}

type ClientUpdatePollOption struct {
	ID   int64
	Text string
}

type ClientUpdatePollQuestion struct {
	Question string
}

// ClientUpdateDeletePoll discards the poll draft.
type ClientUpdateDeletePoll struct{}

type ClientUpdateFocusWindow struct {
	Focused bool
}

type ClientUpdateOpenChat struct {
	ChatID    int64
	MessageID int64
	Popup     bool
}

type ClientUpdateOpenUser struct {
	UserID int64
	Popup  bool
}

// ClientUpdateDialogChatID selects the chat shown in the popup dialog; 0 closes it.
type ClientUpdateDialogChatID struct {
	ChatID int64
}

// ClientUpdateChatID selects the chat shown in the main column.
type ClientUpdateChatID struct {
	ChatID    int64
	MessageID int64
}

type ClientUpdateChatDetailsVisibility struct {
	Visible bool
}

type ClientUpdateMediaViewerContent struct {
	Content *MediaViewerContent
}

type ClientUpdateProfileMediaViewerContent struct {
	Content *ProfileMediaViewerContent
}

// ClientUpdateAppInactive is sent when another instance took over the session.
type ClientUpdateAppInactive struct{}

type ClientUpdateForward struct {
	Info *ForwardInfo
}

type ClientUpdateMessageHighlighted struct {
	ChatID    int64
	MessageID int64
}

func (*ClientUpdateStickerSet) Type() string       { return TypeClientUpdateStickerSet }
func (*ClientUpdateNewPoll) Type() string          { return TypeClientUpdateNewPoll }
func (*ClientUpdateNewPollOption) Type() string    { return TypeClientUpdateNewPollOption }
func (*ClientUpdateDeletePollOption) Type() string { return TypeClientUpdateDeletePollOption }
func (*ClientUpdatePollOption) Type() string       { return TypeClientUpdatePollOption }
func (*ClientUpdatePollQuestion) Type() string     { return TypeClientUpdatePollQuestion }
func (*ClientUpdateDeletePoll) Type() string       { return TypeClientUpdateDeletePoll }
func (*ClientUpdateFocusWindow) Type() string      { return TypeClientUpdateFocusWindow }
func (*ClientUpdateOpenChat) Type() string         { return TypeClientUpdateOpenChat }
func (*ClientUpdateOpenUser) Type() string         { return TypeClientUpdateOpenUser }
func (*ClientUpdateDialogChatID) Type() string     { return TypeClientUpdateDialogChatID }
func (*ClientUpdateChatID) Type() string           { return TypeClientUpdateChatID }
func (*ClientUpdateChatDetailsVisibility) Type() string {
	return TypeClientUpdateChatDetailsVisibility
}
func (*ClientUpdateMediaViewerContent) Type() string { return TypeClientUpdateMediaViewerContent }
func (*ClientUpdateProfileMediaViewerContent) Type() string {
	return TypeClientUpdateProfileMediaViewerContent
}
func (*ClientUpdateAppInactive) Type() string        { return TypeClientUpdateAppInactive }
func (*ClientUpdateForward) Type() string            { return TypeClientUpdateForward }
func (*ClientUpdateMessageHighlighted) Type() string { return TypeClientUpdateMessageHighlighted }

func (*ClientUpdateStickerSet) isClientUpdate()                {}
func (*ClientUpdateNewPoll) isClientUpdate()                   {}
func (*ClientUpdateNewPollOption) isClientUpdate()             {}
func (*ClientUpdateDeletePollOption) isClientUpdate()          {}
func (*ClientUpdatePollOption) isClientUpdate()                {}
func (*ClientUpdatePollQuestion) isClientUpdate()              {}
func (*ClientUpdateDeletePoll) isClientUpdate()                {}
func (*ClientUpdateFocusWindow) isClientUpdate()               {}
func (*ClientUpdateOpenChat) isClientUpdate()                  {}
func (*ClientUpdateOpenUser) isClientUpdate()                  {}
func (*ClientUpdateDialogChatID) isClientUpdate()              {}
func (*ClientUpdateChatID) isClientUpdate()                    {}
func (*ClientUpdateChatDetailsVisibility) isClientUpdate()     {}
func (*ClientUpdateMediaViewerContent) isClientUpdate()        {}
func (*ClientUpdateProfileMediaViewerContent) isClientUpdate() {}
func (*ClientUpdateAppInactive) isClientUpdate()               {}
func (*ClientUpdateForward) isClientUpdate()                   {}
func (*ClientUpdateMessageHighlighted) isClientUpdate()        {}
