package replcraft

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn implements the transport interface over a gorilla WebSocket
// connection.
type wsConn struct {
	url         string
	dialTimeout time.Duration

	conn *websocket.Conn
	mu   sync.Mutex // protects conn writes

	msgHandler   func(data []byte)
	disconnectFn func(error)

	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(url string, dialTimeout time.Duration) *wsConn {
	return &wsConn{
		url:         url,
		dialTimeout: dialTimeout,
		done:        make(chan struct{}),
	}
}

func (c *wsConn) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.dialTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return &ConnectionError{URL: c.url, Reason: err.Error()}
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop()

	return nil
}

func (c *wsConn) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errClosed("transport is not connected")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) setMessageHandler(fn func(data []byte)) {
	c.msgHandler = fn
}

func (c *wsConn) onDisconnect(fn func(error)) {
	c.disconnectFn = fn
}

func (c *wsConn) close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

func (c *wsConn) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				if c.disconnectFn != nil {
					c.disconnectFn(err)
				}
				return
			}
		}

		if c.msgHandler != nil {
			c.msgHandler(data)
		}
	}
}
