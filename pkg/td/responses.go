package td

import "fmt"

const (
	TypeOk         = "ok"
	TypeError      = "error"
	TypeChats      = "chats"
	TypeChat       = "chat"
	TypeUser       = "user"
	TypeStickerSet = "stickerSet"
	TypeMessage    = "message"
)

type Ok struct{}

// Error is the engine's failure response. It is returned as the error of a request.
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

type Chats struct {
	TotalCount int32   `json:"total_count"`
	ChatIDs    []int64 `json:"chat_ids"`
}

type Message struct {
	ID     int64 `json:"id"`
	ChatID int64 `json:"chat_id"`
	Date   int32 `json:"date"`
}

func (*Ok) Type() string         { return TypeOk }
func (*Error) Type() string      { return TypeError }
func (*Chats) Type() string      { return TypeChats }
func (*Chat) Type() string       { return TypeChat }
func (*User) Type() string       { return TypeUser }
func (*StickerSet) Type() string { return TypeStickerSet }
func (*Message) Type() string    { return TypeMessage }

func (*Ok) isResponse()         {}
func (*Error) isResponse()      {}
func (*Chats) isResponse()      {}
func (*Chat) isResponse()       {}
func (*User) isResponse()       {}
func (*StickerSet) isResponse() {}
func (*Message) isResponse()    {}
