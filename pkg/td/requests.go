package td

import "encoding/json"

const (
	TypeGetChats                     = "getChats"
	TypeGetGroupsInCommon            = "getGroupsInCommon"
	TypeCreatePrivateChat            = "createPrivateChat"
	TypeSetOption                    = "setOption"
	TypeDestroy                      = "destroy"
	TypeGetStickerSet                = "getStickerSet"
	TypeChangeStickerSet             = "changeStickerSet"
	TypeSendMessage                  = "sendMessage"
	TypeGetMe                        = "getMe"
	TypeSetAuthenticationPhoneNumber = "setAuthenticationPhoneNumber"
	TypeCheckAuthenticationCode      = "checkAuthenticationCode"
	TypeCheckAuthenticationPassword  = "checkAuthenticationPassword"
	TypeLogOut                       = "logOut"

	TypeInputMessageText = "inputMessageText"
	TypeInputMessagePoll = "inputMessagePoll"
	TypeFormattedText    = "formattedText"
)

// MaxOrder is the offset_order that starts a chat list from the top.
const MaxOrder Int64 = 9223372036854775807

type GetChats struct {
	OffsetOrder  Int64 `json:"offset_order"`
	OffsetChatID int64 `json:"offset_chat_id"`
	Limit        int32 `json:"limit"`
}

type GetGroupsInCommon struct {
	UserID       int64 `json:"user_id"`
	OffsetChatID int64 `json:"offset_chat_id"`
	Limit        int32 `json:"limit"`
}

type CreatePrivateChat struct {
	UserID int64 `json:"user_id"`
	Force  bool  `json:"force"`
}

type SetOption struct {
	Name  string      `json:"name"`
	Value OptionValue `json:"value"`
}

// Destroy closes the engine instance and wipes the local session.
type Destroy struct{}

type GetStickerSet struct {
	SetID Int64 `json:"set_id"`
}

type ChangeStickerSet struct {
	SetID       Int64 `json:"set_id"`
	IsInstalled bool  `json:"is_installed"`
	IsArchived  bool  `json:"is_archived"`
}

type SendMessage struct {
	ChatID              int64               `json:"chat_id"`
	ReplyToMessageID    int64               `json:"reply_to_message_id,omitempty"`
	InputMessageContent InputMessageContent `json:"input_message_content"`
}

type GetMe struct{}

type SetAuthenticationPhoneNumber struct {
	PhoneNumber string `json:"phone_number"`
}

type CheckAuthenticationCode struct {
	Code string `json:"code"`
}

type CheckAuthenticationPassword struct {
	Password string `json:"password"`
}

type LogOut struct{}

func (GetChats) Type() string                     { return TypeGetChats }
func (GetGroupsInCommon) Type() string            { return TypeGetGroupsInCommon }
func (CreatePrivateChat) Type() string            { return TypeCreatePrivateChat }
func (SetOption) Type() string                    { return TypeSetOption }
func (Destroy) Type() string                      { return TypeDestroy }
func (GetStickerSet) Type() string                { return TypeGetStickerSet }
func (ChangeStickerSet) Type() string             { return TypeChangeStickerSet }
func (SendMessage) Type() string                  { return TypeSendMessage }
func (GetMe) Type() string                        { return TypeGetMe }
func (SetAuthenticationPhoneNumber) Type() string { return TypeSetAuthenticationPhoneNumber }
func (CheckAuthenticationCode) Type() string      { return TypeCheckAuthenticationCode }
func (CheckAuthenticationPassword) Type() string  { return TypeCheckAuthenticationPassword }
func (LogOut) Type() string                       { return TypeLogOut }

func (GetChats) isRequest()                     {}
func (GetGroupsInCommon) isRequest()            {}
func (CreatePrivateChat) isRequest()            {}
func (SetOption) isRequest()                    {}
func (Destroy) isRequest()                      {}
func (GetStickerSet) isRequest()                {}
func (ChangeStickerSet) isRequest()             {}
func (SendMessage) isRequest()                  {}
func (GetMe) isRequest()                        {}
func (SetAuthenticationPhoneNumber) isRequest() {}
func (CheckAuthenticationCode) isRequest()      {}
func (CheckAuthenticationPassword) isRequest()  {}
func (LogOut) isRequest()                       {}

// InputMessageContent is the content of an outgoing message.
//
//sumtype:decl
type InputMessageContent interface {
	Object
	isInputMessageContent()
}

type FormattedText struct {
	Text string `json:"text"`
}

func (t FormattedText) MarshalJSON() ([]byte, error) {
	type plain FormattedText
	return marshalTagged(TypeFormattedText, plain(t))
}

type InputMessageText struct {
	Text                  FormattedText `json:"text"`
	DisableWebPagePreview bool          `json:"disable_web_page_preview,omitempty"`
	ClearDraft            bool          `json:"clear_draft,omitempty"`
}

type InputMessagePoll struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (InputMessageText) Type() string { return TypeInputMessageText }
func (InputMessagePoll) Type() string { return TypeInputMessagePoll }

func (InputMessageText) isInputMessageContent() {}
func (InputMessagePoll) isInputMessageContent() {}

func (m InputMessageText) MarshalJSON() ([]byte, error) {
	type plain InputMessageText
	return marshalTagged(m.Type(), plain(m))
}

func (m InputMessagePoll) MarshalJSON() ([]byte, error) {
	type plain InputMessagePoll
	return marshalTagged(m.Type(), plain(m))
}

func marshalTagged(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return withFields(body, typ, nil)
}
