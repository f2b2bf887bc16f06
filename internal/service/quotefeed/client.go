package quotefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/pkg/logger"
)

// Client is a QuoteStream over a WebSocket that pushes frames of the form
// {"type":"quote","data":[snapshot, ...]}.
type Client struct {
	apiKey         string
	url            string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex // guards conn and serialises writes
	conn      *websocket.Conn
	connected atomic.Bool
}

type Option func(*Client)

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithTiming(reconnectDelay, pingInterval time.Duration) Option {
	return func(c *Client) {
		c.reconnectDelay = reconnectDelay
		c.pingInterval = pingInterval
	}
}

// New creates a feed client for symbols.
func New(feedURL, apiKey string, symbols []string, opts ...Option) *Client {
	c := &Client{
		apiKey:         apiKey,
		url:            feedURL,
		symbols:        symbols,
		reconnectDelay: 5 * time.Second,
		pingInterval:   30 * time.Second,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wireFrame struct {
	Type string             `json:"type"`
	Data []*models.Snapshot `json:"data"`
}

// Connect dials the feed.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("%w: feed url: %v", models.ErrConfiguration, err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("token", c.apiKey)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: feed connect: %v", models.ErrTransientSource, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.log.Info("quote feed connected", logger.String("host", u.Host))
	return nil
}

// Subscribe asks the feed for every configured symbol.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected.Load() {
		return fmt.Errorf("%w: feed not connected", models.ErrTransientSource)
	}
	for _, s := range c.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": s}); err != nil {
			return fmt.Errorf("%w: subscribe %s: %v", models.ErrTransientSource, s, err)
		}
	}
	c.log.Info("quote feed subscribed", logger.Strings("symbols", c.symbols))
	return nil
}

// Read streams snapshots until the connection fails or ctx ends. A read
// failure is sent on the error channel and both channels are closed.
// Frames that do not decode are dropped.
func (c *Client) Read(ctx context.Context) (<-chan *models.Snapshot, <-chan error) {
	snaps := make(chan *models.Snapshot, 256)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	done := make(chan struct{})
	go c.pingLoop(ctx, conn, done)

	go func() {
		defer close(snaps)
		defer close(errs)
		defer close(done)
		if conn == nil {
			errs <- fmt.Errorf("%w: feed not connected", models.ErrTransientSource)
			return
		}
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				c.connected.Store(false)
				if ctx.Err() == nil {
					errs <- fmt.Errorf("%w: feed read: %v", models.ErrTransientSource, err)
				}
				return
			}
			var f wireFrame
			if err := json.Unmarshal(b, &f); err != nil {
				c.log.Debug("dropping undecodable feed frame", logger.Error(err))
				continue
			}
			if f.Type != "quote" {
				continue
			}
			for _, s := range f.Data {
				if s == nil {
					continue
				}
				select {
				case snaps <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return snaps, errs
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	if conn == nil || c.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.mu.Unlock()
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.log.Debug("feed ping failed", logger.Error(err))
			}
		}
	}
}

// Reconnect closes, waits reconnectDelay, then dials and subscribes again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.connected.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) IsConnected() bool { return c.connected.Load() }

var _ drepo.QuoteStream = (*Client)(nil)
