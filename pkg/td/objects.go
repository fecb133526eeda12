package td

import (
	"encoding/json"
)

type Sticker struct {
	SetID  Int64  `json:"set_id"`
	Width  int32  `json:"width"`
	Height int32  `json:"height"`
	Emoji  string `json:"emoji"`
}

type StickerSet struct {
	ID          Int64     `json:"id"`
	Title       string    `json:"title"`
	Name        string    `json:"name"`
	IsInstalled bool      `json:"is_installed"`
	IsArchived  bool      `json:"is_archived"`
	IsOfficial  bool      `json:"is_official"`
	IsViewed    bool      `json:"is_viewed"`
	Stickers    []Sticker `json:"stickers"`
}

const (
	ChatTypePrivate    = "chatTypePrivate"
	ChatTypeBasicGroup = "chatTypeBasicGroup"
	ChatTypeSupergroup = "chatTypeSupergroup"
	ChatTypeSecret     = "chatTypeSecret"
)

type ChatType struct {
	Kind         string `json:"@type"`
	UserID       int64  `json:"user_id,omitempty"`
	BasicGroupID int64  `json:"basic_group_id,omitempty"`
	SupergroupID int64  `json:"supergroup_id,omitempty"`
	IsChannel    bool   `json:"is_channel,omitempty"`
}

type Chat struct {
	ID          int64    `json:"id"`
	ChatType    ChatType `json:"type"`
	Title       string   `json:"title"`
	Order       Int64    `json:"order"`
	IsPinned    bool     `json:"is_pinned"`
	UnreadCount int32    `json:"unread_count"`

	LastReadInboxMessageID int64 `json:"last_read_inbox_message_id"`
}

// UserID returns the peer of a one-to-one chat, or 0 for group chats.
func (c *Chat) UserID() int64 {
	if c == nil {
		return 0
	}

	switch c.ChatType.Kind {
	case ChatTypePrivate, ChatTypeSecret:
		return c.ChatType.UserID
	default:
		return 0
	}
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// DisplayName joins first and last names, falling back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}

	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

type LocalFile struct {
	Path                   string `json:"path"`
	IsDownloadingActive    bool   `json:"is_downloading_active"`
	IsDownloadingCompleted bool   `json:"is_downloading_completed"`
	DownloadedSize         int64  `json:"downloaded_size"`
}

type RemoteFile struct {
	ID                   string `json:"id"`
	IsUploadingActive    bool   `json:"is_uploading_active"`
	IsUploadingCompleted bool   `json:"is_uploading_completed"`
	UploadedSize         int64  `json:"uploaded_size"`
}

type File struct {
	ID           int32      `json:"id"`
	Size         int64      `json:"size"`
	ExpectedSize int64      `json:"expected_size"`
	Local        LocalFile  `json:"local"`
	Remote       RemoteFile `json:"remote"`

	// IDBKey is set once the file content is cached by the client.
	IDBKey string `json:"idb_key,omitempty"`
}

const (
	AuthorizationStateWaitTdlibParameters = "authorizationStateWaitTdlibParameters"
	AuthorizationStateWaitEncryptionKey   = "authorizationStateWaitEncryptionKey"
	AuthorizationStateWaitPhoneNumber     = "authorizationStateWaitPhoneNumber"
	AuthorizationStateWaitCode            = "authorizationStateWaitCode"
	AuthorizationStateWaitPassword        = "authorizationStateWaitPassword"
	AuthorizationStateReady               = "authorizationStateReady"
	AuthorizationStateLoggingOut          = "authorizationStateLoggingOut"
	AuthorizationStateClosing             = "authorizationStateClosing"
	AuthorizationStateClosed              = "authorizationStateClosed"
)

type AuthorizationState struct {
	Kind string `json:"@type"`

	// PasswordHint is only sent with authorizationStateWaitPassword.
	PasswordHint string `json:"password_hint,omitempty"`
}

// IsReady reports whether the state is non-nil and authorizationStateReady.
func (s *AuthorizationState) IsReady() bool {
	return s != nil && s.Kind == AuthorizationStateReady
}

const (
	OptionValueBoolean = "optionValueBoolean"
	OptionValueInteger = "optionValueInteger"
	OptionValueString  = "optionValueString"
	OptionValueEmpty   = "optionValueEmpty"
)

type OptionValue struct {
	Kind  string          `json:"@type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func OptionBool(v bool) OptionValue {
	raw, _ := json.Marshal(v)
	return OptionValue{Kind: OptionValueBoolean, Value: raw}
}

func OptionString(v string) OptionValue {
	raw, _ := json.Marshal(v)
	return OptionValue{Kind: OptionValueString, Value: raw}
}

// Int64 returns the value of an optionValueInteger.
func (v OptionValue) Int64() (int64, bool) {
	if v.Kind != OptionValueInteger {
		return 0, false
	}

	var i Int64
	if err := i.UnmarshalJSON(v.Value); err != nil {
		return 0, false
	}

	return int64(i), true
}

// Bool returns the value of an optionValueBoolean.
func (v OptionValue) Bool() (bool, bool) {
	if v.Kind != OptionValueBoolean {
		return false, false
	}

	var b bool
	if err := json.Unmarshal(v.Value, &b); err != nil {
		return false, false
	}

	return b, true
}

// PollOption is an answer being edited in a poll draft.
type PollOption struct {
	ID   int64
	Text string
}

// MediaViewerContent identifies the message whose media is open in the viewer.
type MediaViewerContent struct {
	ChatID    int64
	MessageID int64
}

// ProfileMediaViewerContent identifies the chat whose profile photos are open.
type ProfileMediaViewerContent struct {
	ChatID int64
}

// ForwardInfo describes messages waiting for a forward destination.
type ForwardInfo struct {
	ChatID     int64
	MessageIDs []int64
}
