package td

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-faster/jx"
	"github.com/tidwall/gjson"
)

// ErrNoType is returned for payloads without an @type tag.
var ErrNoType = errors.New("message has no @type")

var updateTypes = map[string]func() Update{
	TypeUpdateAuthorizationState:   func() Update { return new(UpdateAuthorizationState) },
	TypeUpdateInstalledStickerSets: func() Update { return new(UpdateInstalledStickerSets) },
	TypeUpdateNewChat:              func() Update { return new(UpdateNewChat) },
	TypeUpdateChatIsPinned:         func() Update { return new(UpdateChatIsPinned) },
	TypeUpdateChatReadInbox:        func() Update { return new(UpdateChatReadInbox) },
	TypeUpdateUser:                 func() Update { return new(UpdateUser) },
	TypeUpdateOption:               func() Update { return new(UpdateOption) },
	TypeUpdateFile:                 func() Update { return new(UpdateFile) },
}

var responseTypes = map[string]func() Response{
	TypeOk:         func() Response { return new(Ok) },
	TypeError:      func() Response { return new(Error) },
	TypeChats:      func() Response { return new(Chats) },
	TypeChat:       func() Response { return new(Chat) },
	TypeUser:       func() Response { return new(User) },
	TypeStickerSet: func() Response { return new(StickerSet) },
	TypeMessage:    func() Response { return new(Message) },
}

var requestTypes = map[string]func([]byte) (Request, error){
	TypeGetChats:                     decodeRequest[GetChats],
	TypeGetGroupsInCommon:            decodeRequest[GetGroupsInCommon],
	TypeCreatePrivateChat:            decodeRequest[CreatePrivateChat],
	TypeSetOption:                    decodeRequest[SetOption],
	TypeDestroy:                      decodeRequest[Destroy],
	TypeGetStickerSet:                decodeRequest[GetStickerSet],
	TypeChangeStickerSet:             decodeRequest[ChangeStickerSet],
	TypeSendMessage:                  decodeRequest[SendMessage],
	TypeGetMe:                        decodeRequest[GetMe],
	TypeSetAuthenticationPhoneNumber: decodeRequest[SetAuthenticationPhoneNumber],
	TypeCheckAuthenticationCode:      decodeRequest[CheckAuthenticationCode],
	TypeCheckAuthenticationPassword:  decodeRequest[CheckAuthenticationPassword],
	TypeLogOut:                       decodeRequest[LogOut],
}

// EncodeRequest serializes req with its @type tag and the @extra correlation id.
func EncodeRequest(req Request, extra int64) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", req.Type(), err)
	}

	return withFields(body, req.Type(), &extra)
}

// DecodeRequest parses a request payload. Engines use it to serve requests.
func DecodeRequest(raw []byte) (Request, error) {
	typ := PeekType(raw)
	if typ == "" {
		return nil, ErrNoType
	}

	decode, ok := requestTypes[typ]
	if !ok {
		return nil, fmt.Errorf("unknown request type %q", typ)
	}

	req, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %w", typ, err)
	}

	return req, nil
}

// DecodeUpdate parses an update pushed by the engine. Tags that are not modelled
// decode to *UnknownUpdate so that nothing is silently dropped at this layer.
func DecodeUpdate(raw []byte) (Update, error) {
	typ := PeekType(raw)
	if typ == "" {
		return nil, ErrNoType
	}

	newUpdate, ok := updateTypes[typ]
	if !ok {
		return &UnknownUpdate{TypeName: typ, Raw: append(json.RawMessage(nil), raw...)}, nil
	}

	u := newUpdate()
	if err := json.Unmarshal(raw, u); err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %w", typ, err)
	}

	return u, nil
}

// DecodeResponse parses the result of a request.
func DecodeResponse(raw []byte) (Response, error) {
	typ := PeekType(raw)
	if typ == "" {
		return nil, ErrNoType
	}

	newResponse, ok := responseTypes[typ]
	if !ok {
		return nil, fmt.Errorf("unknown response type %q", typ)
	}

	r := newResponse()
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %w", typ, err)
	}

	return r, nil
}

// EncodeObject serializes a response or an update with its @type tag. extra is
// attached when non-nil.
func EncodeObject(obj Object, extra *int64) ([]byte, error) {
	body, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", obj.Type(), err)
	}

	return withFields(body, obj.Type(), extra)
}

// PeekType returns the @type tag of a payload without decoding the rest of it.
func PeekType(raw []byte) string {
	return peekField(raw, "@type").String()
}

// PeekExtra returns the @extra correlation id of a response.
func PeekExtra(raw []byte) (int64, bool) {
	r := peekField(raw, "@extra")
	switch r.Type {
	case gjson.Number, gjson.String:
		return r.Int(), true
	default:
		return 0, false
	}
}

// peekField walks top-level keys. gjson paths treat a leading @ as a modifier, so
// the tag fields cannot be addressed by path.
func peekField(raw []byte, name string) gjson.Result {
	var found gjson.Result
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		if key.Str == name {
			found = value
			return false
		}
		return true
	})
	return found
}

func withFields(body []byte, typ string, extra *int64) ([]byte, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("@type")
	e.Str(typ)
	if extra != nil {
		e.FieldStart("@extra")
		e.Int64(*extra)
	}

	d := jx.DecodeBytes(body)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		if k := string(key); k != "@type" && k != "@extra" {
			e.FieldStart(k)
			e.Raw(raw)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copying %s fields: %w", typ, err)
	}

	e.ObjEnd()
	return e.Bytes(), nil
}

func decodeRequest[T Request](raw []byte) (Request, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (m *SendMessage) UnmarshalJSON(data []byte) error {
	var aux struct {
		ChatID              int64           `json:"chat_id"`
		ReplyToMessageID    int64           `json:"reply_to_message_id"`
		InputMessageContent json.RawMessage `json:"input_message_content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.ChatID = aux.ChatID
	m.ReplyToMessageID = aux.ReplyToMessageID
	m.InputMessageContent = nil

	if len(aux.InputMessageContent) == 0 {
		return nil
	}

	switch typ := PeekType(aux.InputMessageContent); typ {
	case TypeInputMessageText:
		var c InputMessageText
		if err := json.Unmarshal(aux.InputMessageContent, &c); err != nil {
			return err
		}
		m.InputMessageContent = c
	case TypeInputMessagePoll:
		var c InputMessagePoll
		if err := json.Unmarshal(aux.InputMessageContent, &c); err != nil {
			return err
		}
		m.InputMessageContent = c
	default:
		return fmt.Errorf("unknown input message content %q", typ)
	}

	return nil
}
