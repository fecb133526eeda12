package td

import "encoding/json"

const (
	TypeUpdateAuthorizationState   = "updateAuthorizationState"
	TypeUpdateInstalledStickerSets = "updateInstalledStickerSets"
	TypeUpdateNewChat              = "updateNewChat"
	TypeUpdateChatIsPinned         = "updateChatIsPinned"
	TypeUpdateChatReadInbox        = "updateChatReadInbox"
	TypeUpdateUser                 = "updateUser"
	TypeUpdateOption               = "updateOption"
	TypeUpdateFile                 = "updateFile"
	TypeUpdateFatalError           = "updateFatalError"
)

type UpdateAuthorizationState struct {
	AuthorizationState AuthorizationState `json:"authorization_state"`
}

type UpdateInstalledStickerSets struct {
	IsMasks       bool    `json:"is_masks"`
	StickerSetIDs []Int64 `json:"sticker_set_ids"`
}

// Contains reports whether id is among the installed sets.
func (u *UpdateInstalledStickerSets) Contains(id Int64) bool {
	for _, x := range u.StickerSetIDs {
		if x == id {
			return true
		}
	}
	return false
}

type UpdateNewChat struct {
	Chat Chat `json:"chat"`
}

type UpdateChatIsPinned struct {
	ChatID   int64 `json:"chat_id"`
	IsPinned bool  `json:"is_pinned"`
	Order    Int64 `json:"order"`
}

type UpdateChatReadInbox struct {
	ChatID                 int64 `json:"chat_id"`
	LastReadInboxMessageID int64 `json:"last_read_inbox_message_id"`
	UnreadCount            int32 `json:"unread_count"`
}

type UpdateUser struct {
	User User `json:"user"`
}

type UpdateOption struct {
	Name  string      `json:"name"`
	Value OptionValue `json:"value"`
}

type UpdateFile struct {
	File File `json:"file"`
}

// UpdateFatalError is synthesized by the controller when the engine connection
// can no longer be used. It is never received from the engine.
type UpdateFatalError struct {
	Err error `json:"-"`
}

// UnknownUpdate carries an update whose tag this client does not model.
type UnknownUpdate struct {
	TypeName string
	Raw      json.RawMessage
}

func (*UpdateAuthorizationState) Type() string   { return TypeUpdateAuthorizationState }
func (*UpdateInstalledStickerSets) Type() string { return TypeUpdateInstalledStickerSets }
func (*UpdateNewChat) Type() string              { return TypeUpdateNewChat }
func (*UpdateChatIsPinned) Type() string         { return TypeUpdateChatIsPinned }
func (*UpdateChatReadInbox) Type() string        { return TypeUpdateChatReadInbox }
func (*UpdateUser) Type() string                 { return TypeUpdateUser }
func (*UpdateOption) Type() string               { return TypeUpdateOption }
func (*UpdateFile) Type() string                 { return TypeUpdateFile }
func (*UpdateFatalError) Type() string           { return TypeUpdateFatalError }
func (u *UnknownUpdate) Type() string            { return u.TypeName }

func (*UpdateAuthorizationState) isUpdate()   {}
func (*UpdateInstalledStickerSets) isUpdate() {}
func (*UpdateNewChat) isUpdate()              {}
func (*UpdateChatIsPinned) isUpdate()         {}
func (*UpdateChatReadInbox) isUpdate()        {}
func (*UpdateUser) isUpdate()                 {}
func (*UpdateOption) isUpdate()               {}
func (*UpdateFile) isUpdate()                 {}
func (*UpdateFatalError) isUpdate()           {}
func (*UnknownUpdate) isUpdate()              {}
