package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nuclight.org/tgweb/pkg/logger"
)

// ErrClosed is returned by engines after Close.
var ErrClosed = errors.New("engine closed")

const writeTimeout = 10 * time.Second

type frame struct {
	data []byte
	err  error
}

// Websocket talks to a JSON engine over a websocket connection. Every text frame
// carries exactly one @type tagged object.
type Websocket struct {
	log  logger.Logger
	conn *websocket.Conn

	writeMu sync.Mutex

	frames    chan frame
	closeOnce sync.Once
	done      chan struct{}
}

// DialWebsocket connects to url and starts reading frames.
func DialWebsocket(ctx context.Context, log logger.Logger, url string, header http.Header) (*Websocket, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing engine %s: %w", url, err)
	}

	ws := &Websocket{
		log:    log.With("engine", "websocket"),
		conn:   conn,
		frames: make(chan frame, 64),
		done:   make(chan struct{}),
	}
	go ws.readLoop()

	return ws, nil
}

func (w *Websocket) Send(ctx context.Context, payload []byte) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}

	if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	return nil
}

func (w *Websocket) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f, ok := <-w.frames:
		if !ok {
			return nil, ErrClosed
		}
		return f.data, f.err
	}
}

// Close sends a close frame and tears the connection down. It is safe to call more
// than once.
func (w *Websocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)

		w.writeMu.Lock()
		_ = w.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		w.writeMu.Unlock()

		err = w.conn.Close()
	})
	return err
}

func (w *Websocket) readLoop() {
	defer close(w.frames)

	for {
		typ, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}

			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.log.Warn("engine connection lost", "error", err)
			}
			w.push(frame{err: fmt.Errorf("reading frame: %w", err)})
			return
		}

		if typ != websocket.TextMessage {
			w.log.Debug("skipping non-text frame", "frame_type", typ)
			continue
		}

		if !w.push(frame{data: data}) {
			return
		}
	}
}

func (w *Websocket) push(f frame) bool {
	select {
	case w.frames <- f:
		return true
	case <-w.done:
		return false
	}
}
