package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"chat-client/internal/apperr"
	"chat-client/internal/models"
	"chat-client/internal/observability"
)

var (
	// ErrNotConnected is returned when a frame cannot be sent yet.
	ErrNotConnected = errors.New("event channel not connected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("event channel closed")
)

// Conn is the subset of *websocket.Conn the channel needs.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a broker connection.
type Dialer func(ctx context.Context, url string, header http.Header) (Conn, error)

// Option configures a Channel.
type Option func(*Channel)

// WithDialer replaces the gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(c *Channel) { c.dial = d }
}

// WithRetryInterval sets the initial reconnect backoff.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Channel) { c.retryInitial = d }
}

// Channel is the single long-lived connection to the real-time broker. It
// tracks joined rooms so that at most the rooms requested by the engine are
// joined, and rejoins them after a reconnect.
type Channel struct {
	url          string
	dial         Dialer
	retryInitial time.Duration

	writeMu sync.Mutex

	mu       sync.RWMutex
	ctx      context.Context
	user     models.User
	conn     Conn
	info     ConnInfo
	ready    bool
	started  bool
	rooms    map[string]bool
	handlers map[EventKind][]Handler

	done      chan struct{}
	closeOnce sync.Once
}

// NewChannel creates a channel for the broker at url. Nothing is dialed until
// Connect.
func NewChannel(url string, opts ...Option) *Channel {
	c := &Channel{
		url:          url,
		dial:         dialGorilla,
		retryInitial: 500 * time.Millisecond,
		rooms:        make(map[string]bool),
		handlers:     make(map[EventKind][]Handler),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func dialGorilla(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Connect dials the broker, registers user with a setup frame and starts
// reading. The connected event arrives asynchronously. A failed first dial is
// returned and retried with backoff until Close.
func (c *Channel) Connect(ctx context.Context, user models.User) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("event channel already connected")
	}
	c.started = true
	c.ctx = ctx
	c.user = user
	c.mu.Unlock()

	conn, err := c.open(ctx, 1)
	if err != nil {
		// keep retrying in the background; the connected event reports success
		c.mu.Lock()
		c.info.Attempt = 1
		c.mu.Unlock()
		go func() {
			next, ok := c.reconnect()
			if ok {
				c.readLoop(next)
			}
		}()
		return err
	}
	go c.readLoop(conn)
	return nil
}

func (c *Channel) open(ctx context.Context, attempt int) (Conn, error) {
	ctx, span := observability.Tracer().Start(ctx, "ws.connect")
	defer span.End()
	span.SetAttributes(attribute.Int("ws.attempt", attempt))

	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+user.Token)
	conn, err := c.dial(ctx, c.url, header)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial")
		return nil, apperr.Network("ws connect", 0, "", err)
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      user.ID,
		URL:         c.url,
		ConnectedAt: time.Now(),
		Attempt:     attempt,
	}
	c.mu.Lock()
	c.conn = conn
	c.info = info
	c.ready = false
	rooms := c.joinedLocked()
	c.mu.Unlock()

	if err := c.write(EventSetup, user); err != nil {
		c.drop(conn)
		return nil, err
	}
	for _, room := range rooms {
		if err := c.write(EventJoinChat, room); err != nil {
			c.drop(conn)
			return nil, err
		}
	}
	log.Printf("ws connected conn_id=%s user_id=%s attempt=%d rooms=%d", info.ConnID, info.UserID, attempt, len(rooms))
	return conn, nil
}

// Connected reports whether the broker acknowledged setup on the current
// connection.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.ready
}

// Info returns the current connection info.
func (c *Channel) Info() ConnInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

// Subscribe registers handler for kind. Handlers are called in registration
// order.
func (c *Channel) Subscribe(kind EventKind, handler Handler) {
	c.mu.Lock()
	c.handlers[kind] = append(c.handlers[kind], handler)
	c.mu.Unlock()
}

// JoinRoom subscribes to a conversation's room. Joining a joined room is a
// no-op. Without a connection the room is recorded and joined on connect.
func (c *Channel) JoinRoom(conversationID string) error {
	c.mu.Lock()
	if c.rooms[conversationID] {
		c.mu.Unlock()
		return nil
	}
	c.rooms[conversationID] = true
	online := c.conn != nil
	c.mu.Unlock()

	if !online {
		return nil
	}
	return c.write(EventJoinChat, conversationID)
}

// LeaveRoom unsubscribes from a conversation's room. Leaving a room that is
// not joined is a no-op.
func (c *Channel) LeaveRoom(conversationID string) error {
	c.mu.Lock()
	if !c.rooms[conversationID] {
		c.mu.Unlock()
		return nil
	}
	delete(c.rooms, conversationID)
	online := c.conn != nil
	c.mu.Unlock()

	if !online {
		return nil
	}
	return c.write(EventLeaveChat, conversationID)
}

// Rooms returns the joined rooms in sorted order.
func (c *Channel) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.joinedLocked()
}

func (c *Channel) joinedLocked() []string {
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// EmitTyping announces local typing state. Nothing is sent until the broker
// acknowledged setup.
func (c *Channel) EmitTyping(conversationID string, isTyping bool) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	event := EventStoppedTyping
	if isTyping {
		event = EventTyping
	}
	return c.write(event, conversationID)
}

// EmitMessage broadcasts a persisted message to its room.
func (c *Channel) EmitMessage(msg models.Message) error {
	return c.write(EventNewMessage, msg)
}

// Close stops the reader and closes the connection.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.ready = false
		c.mu.Unlock()
		observability.SetWSConnected(false)
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Channel) write(event string, data any) error {
	frame, err := newFrame(event, data)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("ws write error event=%q: %v", event, err)
		return apperr.Network("ws "+event, 0, "", err)
	}
	observability.IncWSEvent("out", event)
	return nil
}

func (c *Channel) drop(conn Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.ready = false
	}
	c.mu.Unlock()
	observability.SetWSConnected(false)
	_ = conn.Close()
}

func (c *Channel) readLoop(conn Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if c.isClosed() {
				return
			}
			log.Printf("ws read error conn_id=%s: %v", c.Info().ConnID, err)
			c.drop(conn)

			next, ok := c.reconnect()
			if !ok {
				return
			}
			conn = next
			continue
		}
		observability.IncWSEvent("in", frame.Event)
		c.dispatch(frame)
	}
}

func (c *Channel) reconnect() (Conn, bool) {
	c.mu.RLock()
	ctx := c.ctx
	attempt := c.info.Attempt
	c.mu.RUnlock()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	var conn Conn
	op := func() error {
		if c.isClosed() {
			return backoff.Permanent(ErrClosed)
		}
		attempt++
		next, err := c.open(ctx, attempt)
		if err != nil {
			return err
		}
		conn = next
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("ws reconnect failed, retrying in %s: %v", wait, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		log.Printf("ws reconnect abandoned: %v", err)
		return nil, false
	}
	return conn, true
}

func (c *Channel) dispatch(frame Frame) {
	event, ok, err := decodeFrame(frame)
	if err != nil {
		log.Printf("ws malformed frame event=%q: %v", frame.Event, err)
		return
	}
	if !ok {
		log.Printf("ws ignoring event=%q", frame.Event)
		return
	}

	c.mu.Lock()
	if event.Kind == Connected {
		c.ready = true
	}
	handlers := append([]Handler(nil), c.handlers[event.Kind]...)
	c.mu.Unlock()
	if event.Kind == Connected {
		observability.SetWSConnected(true)
	}

	for _, h := range handlers {
		h(event)
	}
}
