package channel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/feed/errors"
	"github.com/sirupsen/logrus"
)

// DefaultWriteTimeout bounds a single frame write.
const DefaultWriteTimeout = 10 * time.Second

// WebsocketTransport opens channel connections over websocket. Each
// connection runs one reader goroutine that delivers handler events.
type WebsocketTransport struct {
	Dialer       *websocket.Dialer
	Header       http.Header
	WriteTimeout time.Duration
	Logger       *logrus.Entry
}

// NewWebsocketTransport returns a transport with default dial settings.
func NewWebsocketTransport(logger *logrus.Entry) *WebsocketTransport {
	return &WebsocketTransport{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		WriteTimeout: DefaultWriteTimeout,
		Logger:       logger,
	}
}

// Open implements Transport.
func (t *WebsocketTransport) Open(ctx context.Context, url string, h ConnHandler) Conn {
	dialCtx, cancel := context.WithCancel(ctx)
	c := &wsConn{
		url:          url,
		cancel:       cancel,
		writeTimeout: t.WriteTimeout,
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = DefaultWriteTimeout
	}
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := t.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	go c.run(dialCtx, dialer, t.Header, h, logger)
	return c
}

type wsConn struct {
	url          string
	cancel       context.CancelFunc
	writeTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (c *wsConn) run(ctx context.Context, dialer *websocket.Dialer, header http.Header, h ConnHandler, logger *logrus.Entry) {
	conn, resp, err := dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		h.OnClose(errors.Transport(c.url, err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		h.OnClose(nil)
		return
	}
	c.conn = conn
	c.mu.Unlock()

	h.OnOpen()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			local := c.closed
			c.mu.Unlock()
			if local || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.OnClose(nil)
			} else {
				h.OnClose(errors.Transport(c.url, err))
			}
			conn.Close()
			return
		}
		if kind != websocket.TextMessage {
			logger.WithField("frame", kind).Debug("Ignoring non-text frame")
			continue
		}
		h.OnMessage(data)
	}
}

// Send writes one text frame.
func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return errors.New(errors.ErrCodeNotConnected, "channel is not open")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return errors.Transport(c.url, err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Transport(c.url, err)
	}
	return nil
}

// Close sends a close frame and tears the connection down. It also aborts a
// dial still in progress.
func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()
	if c.conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}
