package engine_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclight.org/tgweb/app/controller"
	"nuclight.org/tgweb/app/engine"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/loop"
	"nuclight.org/tgweb/pkg/td"
)

const testToken = "123:abc"

type botServer struct {
	mu      sync.Mutex
	sent    []string
	polls   []string
	updates bool
}

func (s *botServer) handler() http.Handler {
	mux := http.NewServeMux()
	prefix := "/bot" + testToken + "/"

	reply := func(w http.ResponseWriter, result string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"ok":true,"result":%s}`, result)
	}

	mux.HandleFunc(prefix+"getMe", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"id":42,"is_bot":true,"first_name":"Echo","username":"echo_bot"}`)
	})

	mux.HandleFunc(prefix+"getUpdates", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		first := !s.updates
		s.updates = true
		s.mu.Unlock()

		if !first {
			time.Sleep(20 * time.Millisecond)
			reply(w, `[]`)
			return
		}

		reply(w, `[{"update_id":1,"message":{"message_id":5,"date":100,
			"chat":{"id":-100,"type":"group","title":"Friends"},
			"from":{"id":7,"is_bot":false,"first_name":"Ann"}}},
			{"update_id":2,"message":{"message_id":6,"date":150,
			"chat":{"id":7,"type":"private","first_name":"Ann"},
			"from":{"id":7,"is_bot":false,"first_name":"Ann"}}}]`)
	})

	mux.HandleFunc(prefix+"sendMessage", func(w http.ResponseWriter, r *http.Request) {
		chatID := r.FormValue("chat_id")
		if chatID == "13" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"ok":false,"error_code":429,
				"description":"Too Many Requests: retry after 3","parameters":{"retry_after":3}}`)
			return
		}

		s.mu.Lock()
		s.sent = append(s.sent, r.FormValue("text"))
		s.mu.Unlock()

		reply(w, fmt.Sprintf(`{"message_id":9,"date":200,"chat":{"id":%s,"type":"private"}}`, chatID))
	})

	mux.HandleFunc(prefix+"sendPoll", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.polls = append(s.polls, r.FormValue("question"))
		s.mu.Unlock()

		reply(w, `{"message_id":10,"date":210,"chat":{"id":-100,"type":"group"},
			"poll":{"id":"p","question":"Lunch?","options":[]}}`)
	})

	return mux
}

type botHarness struct {
	server *botServer
	bot    *engine.BotAPI
	queue  *loop.Loop
	ctrl   *controller.Controller

	mu      sync.Mutex
	updates []td.Update
}

func startBot(t *testing.T) *botHarness {
	t.Helper()

	s := &botServer{}
	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)

	log := logger.Discard()
	bot := &engine.BotAPI{
		Log:        log,
		APIToken:   testToken,
		WorkersNum: 2,
		Endpoint:   srv.URL + "/bot%s/%s",
	}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bot.Start(ctx))

	h := &botHarness{server: s, bot: bot, queue: loop.New(log)}
	h.ctrl = controller.New(log, bot, h.queue)
	h.ctrl.OnUpdate(func(u td.Update) error {
		h.mu.Lock()
		h.updates = append(h.updates, u)
		h.mu.Unlock()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = bot.Close()
	})

	return h
}

func (h *botHarness) typesSeen() []string {
	h.queue.Drain()

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0, len(h.updates))
	for _, u := range h.updates {
		out = append(out, u.Type())
	}
	return out
}

func TestBotAPI_AnnouncesAccountAndChats(t *testing.T) {
	h := startBot(t)

	require.Eventually(t, func() bool {
		n := 0
		for _, typ := range h.typesSeen() {
			if typ == td.TypeUpdateNewChat {
				n++
			}
		}
		return n == 2
	}, 5*time.Second, 10*time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()

	assert.Equal(t, td.TypeUpdateUser, h.updates[0].Type())
	opt := h.updates[1].(*td.UpdateOption)
	myID, ok := opt.Value.Int64()
	require.True(t, ok)
	assert.EqualValues(t, 42, myID)
	assert.True(t, h.updates[2].(*td.UpdateAuthorizationState).AuthorizationState.IsReady())

	var group *td.Chat
	users := 0
	for _, u := range h.updates {
		switch u := u.(type) {
		case *td.UpdateNewChat:
			if u.Chat.ID == -100 {
				group = &u.Chat
			}
		case *td.UpdateUser:
			users++
		}
	}
	require.NotNil(t, group)
	assert.Equal(t, "Friends", group.Title)
	assert.Equal(t, td.ChatTypeBasicGroup, group.ChatType.Kind)
	// the bot itself and Ann, who wrote twice
	assert.Equal(t, 2, users)
}

func TestBotAPI_GetChatsNewestFirst(t *testing.T) {
	h := startBot(t)
	ctx := context.Background()

	require.Eventually(t, func() bool {
		chats, err := controller.Call[*td.Chats](ctx, h.ctrl, td.GetChats{OffsetOrder: td.MaxOrder, Limit: 10})
		return err == nil && len(chats.ChatIDs) == 2
	}, 5*time.Second, 10*time.Millisecond)

	chats, err := controller.Call[*td.Chats](ctx, h.ctrl, td.GetChats{OffsetOrder: td.MaxOrder, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, chats.ChatIDs)
}

func TestBotAPI_GetMe(t *testing.T) {
	h := startBot(t)

	me, err := controller.Call[*td.User](context.Background(), h.ctrl, td.GetMe{})
	require.NoError(t, err)
	assert.EqualValues(t, 42, me.ID)
	assert.Equal(t, "echo_bot", me.Username)
}

func TestBotAPI_SendText(t *testing.T) {
	h := startBot(t)

	msg, err := controller.Call[*td.Message](context.Background(), h.ctrl, td.SendMessage{
		ChatID:              7,
		InputMessageContent: td.InputMessageText{Text: td.FormattedText{Text: "hello"}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 9, msg.ID)
	assert.EqualValues(t, 7, msg.ChatID)

	h.server.mu.Lock()
	defer h.server.mu.Unlock()
	assert.Equal(t, []string{"hello"}, h.server.sent)
}

func TestBotAPI_SendPoll(t *testing.T) {
	h := startBot(t)

	msg, err := controller.Call[*td.Message](context.Background(), h.ctrl, td.SendMessage{
		ChatID:              -100,
		InputMessageContent: td.InputMessagePoll{Question: "Lunch?", Options: []string{"Yes", "No"}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 10, msg.ID)

	h.server.mu.Lock()
	defer h.server.mu.Unlock()
	assert.Equal(t, []string{"Lunch?"}, h.server.polls)
}

func TestBotAPI_RateLimitIsTransient(t *testing.T) {
	h := startBot(t)

	_, err := h.ctrl.Send(context.Background(), td.SendMessage{
		ChatID:              13,
		InputMessageContent: td.InputMessageText{Text: td.FormattedText{Text: "spam"}},
	})
	require.Error(t, err)

	var tdErr *td.Error
	require.ErrorAs(t, err, &tdErr)
	assert.EqualValues(t, 429, tdErr.Code)
	assert.Equal(t, controller.SeverityTransient, controller.Classify(err))
	assert.True(t, controller.Retryable(err))
	assert.Equal(t, 3*time.Second, controller.RetryAfter(err))
}

func TestBotAPI_UnsupportedMethod(t *testing.T) {
	h := startBot(t)

	_, err := h.ctrl.Send(context.Background(), td.GetStickerSet{SetID: 1})

	var tdErr *td.Error
	require.ErrorAs(t, err, &tdErr)
	assert.EqualValues(t, 400, tdErr.Code)
	assert.Equal(t, controller.SeverityTransient, controller.Classify(err))
}

func TestBotAPI_LogOutClosesSession(t *testing.T) {
	h := startBot(t)

	_, err := controller.Call[*td.Ok](context.Background(), h.ctrl, td.LogOut{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		h.typesSeen()
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, u := range h.updates {
			if s, ok := u.(*td.UpdateAuthorizationState); ok && s.AuthorizationState.Kind == td.AuthorizationStateClosed {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBotAPI_RequiresWorkers(t *testing.T) {
	bot := &engine.BotAPI{Log: logger.Discard(), APIToken: testToken}
	assert.Error(t, bot.Start(context.Background()))
}
