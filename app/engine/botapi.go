package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/mutex"
	"nuclight.org/tgweb/pkg/td"
)

const (
	codeBadRequest  = 400
	codeUnavailable = 503
)

// BotAPI serves the engine contract with a Telegram bot account. Only the requests a
// bot can honour are supported; the rest fail with error 400.
type BotAPI struct {
	Log        logger.Logger
	APIToken   string
	WorkersNum int

	// Endpoint overrides tgbotapi.APIEndpoint. It takes the token and the method.
	Endpoint string

	bot       *tgbotapi.BotAPI
	wg        sync.WaitGroup
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
	stopOnce  sync.Once

	// Bot API rate limits are per chat, so sends to one chat go out one at a time.
	chatLocks mutex.KeyedMutex[int64]

	mu    sync.Mutex
	chats map[int64]td.Chat
	users map[int64]struct{}
}

func (c *BotAPI) Start(ctx context.Context) (err error) {
	if c.WorkersNum == 0 {
		return fmt.Errorf("workers number must be greater than 0")
	}

	log := c.Log

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	c.bot, err = tgbotapi.NewBotAPIWithAPIEndpoint(c.APIToken, endpoint)
	if err != nil {
		return fmt.Errorf("creating bot api: %w", err)
	}

	log.Info("bot api created", "username", c.bot.Self.UserName)

	c.out = make(chan []byte, 256)
	c.done = make(chan struct{})
	c.chats = make(map[int64]td.Chat)
	c.users = make(map[int64]struct{})

	self := toUser(&c.bot.Self)
	c.users[self.ID] = struct{}{}

	for _, u := range []td.Update{
		&td.UpdateUser{User: self},
		&td.UpdateOption{Name: "my_id", Value: optionInteger(self.ID)},
		&td.UpdateAuthorizationState{AuthorizationState: td.AuthorizationState{Kind: td.AuthorizationStateReady}},
	} {
		if err := c.emit(ctx, u, nil); err != nil {
			return err
		}
	}

	updatesConf := tgbotapi.NewUpdate(0)
	updatesConf.Timeout = 60

	updatesChan := c.bot.GetUpdatesChan(updatesConf)

	for i := 0; i < c.WorkersNum; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.handleUpdatesFromChan(ctx, updatesChan)
		}()
	}

	return nil
}

// Close stops polling and waits for the workers.
func (c *BotAPI) Close() error {
	c.stopPolling()
	c.closeOnce.Do(func() {
		if c.done != nil {
			close(c.done)
		}
	})
	c.wg.Wait()
	return nil
}

func (c *BotAPI) Send(ctx context.Context, payload []byte) error {
	extra, ok := td.PeekExtra(payload)
	if !ok {
		return errors.New("request has no @extra")
	}

	var resp td.Response
	req, err := td.DecodeRequest(payload)
	if err != nil {
		resp = &td.Error{Code: codeBadRequest, Message: err.Error()}
	} else {
		resp = c.serve(ctx, req)
	}

	return c.emit(ctx, resp, &extra)
}

func (c *BotAPI) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	case raw := <-c.out:
		return raw, nil
	}
}

func (c *BotAPI) serve(ctx context.Context, req td.Request) td.Response {
	log := c.Log.With("td_type", req.Type())

	switch r := req.(type) {
	case td.GetMe:
		u := toUser(&c.bot.Self)
		return &u
	case td.SetOption:
		return &td.Ok{}
	case td.GetChats:
		return c.knownChats(r.Limit)
	case td.CreatePrivateChat:
		chat := td.Chat{
			ID:       r.UserID,
			ChatType: td.ChatType{Kind: td.ChatTypePrivate, UserID: r.UserID},
		}
		if err := c.rememberChat(ctx, chat); err != nil {
			log.Warn("announcing chat", "error", err)
		}
		return &chat
	case td.SendMessage:
		return c.sendMessage(ctx, r)
	case td.LogOut, td.Destroy:
		// The bot token stays valid; only this session ends.
		c.stopPolling()
		u := &td.UpdateAuthorizationState{AuthorizationState: td.AuthorizationState{Kind: td.AuthorizationStateClosed}}
		if err := c.emit(ctx, u, nil); err != nil {
			log.Warn("announcing closed state", "error", err)
		}
		return &td.Ok{}
	default:
		return &td.Error{Code: codeBadRequest, Message: "method " + req.Type() + " is not available to bot accounts"}
	}
}

func (c *BotAPI) sendMessage(ctx context.Context, r td.SendMessage) td.Response {
	var conf tgbotapi.Chattable

	switch content := r.InputMessageContent.(type) {
	case td.InputMessageText:
		msg := tgbotapi.NewMessage(r.ChatID, content.Text.Text)
		msg.DisableWebPagePreview = content.DisableWebPagePreview
		msg.ReplyToMessageID = int(r.ReplyToMessageID)
		conf = msg
	case td.InputMessagePoll:
		poll := tgbotapi.NewPoll(r.ChatID, content.Question, content.Options...)
		poll.ReplyToMessageID = int(r.ReplyToMessageID)
		conf = poll
	default:
		return &td.Error{Code: codeBadRequest, Message: "input message content is required"}
	}

	c.chatLocks.Lock(r.ChatID)
	defer c.chatLocks.Unlock(r.ChatID)

	if err := ctx.Err(); err != nil {
		return toError(err)
	}

	sent, err := c.bot.Send(conf)
	if err != nil {
		c.Log.Warn("sending message", "tg_chat_id", r.ChatID, "error", err)
		return toError(err)
	}

	return &td.Message{
		ID:     int64(sent.MessageID),
		ChatID: r.ChatID,
		Date:   int32(sent.Date),
	}
}

// stopPolling ends the update stream but keeps serving requests.
func (c *BotAPI) stopPolling() {
	c.stopOnce.Do(func() {
		if c.bot != nil {
			c.bot.StopReceivingUpdates()
		}
	})
}

func (c *BotAPI) knownChats(limit int32) *td.Chats {
	c.mu.Lock()
	chats := make([]td.Chat, 0, len(c.chats))
	for _, chat := range c.chats {
		chats = append(chats, chat)
	}
	c.mu.Unlock()

	sort.Slice(chats, func(i, j int) bool {
		if chats[i].Order != chats[j].Order {
			return chats[i].Order > chats[j].Order
		}
		return chats[i].ID < chats[j].ID
	})

	if limit > 0 && int(limit) < len(chats) {
		chats = chats[:limit]
	}

	ids := make([]int64, len(chats))
	for i, chat := range chats {
		ids[i] = chat.ID
	}

	return &td.Chats{TotalCount: int32(len(ids)), ChatIDs: ids}
}

func (c *BotAPI) handleUpdatesFromChan(ctx context.Context, updatesChan tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case update, ok := <-updatesChan:
			if !ok {
				return
			}
			err := c.handleUpdate(ctx, update)
			if err != nil {
				c.Log.Error("handling update", "tg_update_id", update.UpdateID, "error", err)
			}
		}
	}
}

func (c *BotAPI) handleUpdate(ctx context.Context, update tgbotapi.Update) (err error) {
	log := c.Log.With("tg_update_id", update.UpdateID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic", "error", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	msg := update.Message
	if msg == nil {
		log.Debug("skipping update without message")
		return nil
	}

	if msg.Chat == nil {
		log.Warn("message chat is nil")
		return nil
	}

	if msg.From != nil {
		if err := c.rememberUser(ctx, msg.From); err != nil {
			return fmt.Errorf("announcing user: %w", err)
		}
	}

	chat := toChat(msg.Chat)
	chat.Order = td.Int64(msg.Date)
	if err := c.rememberChat(ctx, chat); err != nil {
		return fmt.Errorf("announcing chat: %w", err)
	}

	log.Debug("new message", "tg_chat_id", msg.Chat.ID, "tg_message_id", msg.MessageID)

	return nil
}

// rememberChat announces a chat the first time it is seen and keeps its order fresh.
func (c *BotAPI) rememberChat(ctx context.Context, chat td.Chat) error {
	c.mu.Lock()
	known, seen := c.chats[chat.ID]
	if seen && chat.Order < known.Order {
		chat.Order = known.Order
	}
	if seen && chat.Title == "" {
		chat.Title = known.Title
	}
	c.chats[chat.ID] = chat
	c.mu.Unlock()

	if !seen {
		return c.emit(ctx, &td.UpdateNewChat{Chat: chat}, nil)
	}
	return nil
}

func (c *BotAPI) rememberUser(ctx context.Context, from *tgbotapi.User) error {
	c.mu.Lock()
	_, seen := c.users[from.ID]
	c.users[from.ID] = struct{}{}
	c.mu.Unlock()

	if seen {
		return nil
	}
	return c.emit(ctx, &td.UpdateUser{User: toUser(from)}, nil)
}

func (c *BotAPI) emit(ctx context.Context, obj td.Object, extra *int64) error {
	raw, err := td.EncodeObject(obj, extra)
	if err != nil {
		return err
	}

	select {
	case c.out <- raw:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

func toUser(u *tgbotapi.User) td.User {
	return td.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.UserName,
	}
}

func toChat(chat *tgbotapi.Chat) td.Chat {
	out := td.Chat{ID: chat.ID, Title: chat.Title}

	switch chat.Type {
	case "private":
		out.ChatType = td.ChatType{Kind: td.ChatTypePrivate, UserID: chat.ID}
		out.Title = strings.TrimSpace(chat.FirstName + " " + chat.LastName)
		if out.Title == "" {
			out.Title = chat.UserName
		}
	case "group":
		out.ChatType = td.ChatType{Kind: td.ChatTypeBasicGroup, BasicGroupID: chat.ID}
	default:
		out.ChatType = td.ChatType{
			Kind:         td.ChatTypeSupergroup,
			SupergroupID: chat.ID,
			IsChannel:    chat.Type == "channel",
		}
	}

	return out
}

func toError(err error) *td.Error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &td.Error{Code: int32(apiErr.Code), Message: apiErr.Message}
	}

	return &td.Error{Code: codeUnavailable, Message: err.Error()}
}

func optionInteger(v int64) td.OptionValue {
	raw, _ := td.Int64(v).MarshalJSON()
	return td.OptionValue{Kind: td.OptionValueInteger, Value: raw}
}
