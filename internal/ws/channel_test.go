package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/apperr"
	"chat-client/internal/models"
)

// broker is a minimal websocket peer that records client frames.
type broker struct {
	t        *testing.T
	upgrader websocket.Upgrader
	frames   chan Frame
	conns    chan *websocket.Conn
	headers  chan http.Header
}

func newBroker(t *testing.T) (*broker, string) {
	b := &broker{
		t:       t,
		frames:  make(chan Frame, 64),
		conns:   make(chan *websocket.Conn, 4),
		headers: make(chan http.Header, 4),
	}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)
	return b, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (b *broker) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.headers <- r.Header.Clone()
	b.conns <- conn
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		b.frames <- f
	}
}

func (b *broker) next() Frame {
	b.t.Helper()
	select {
	case f := <-b.frames:
		return f
	case <-time.After(2 * time.Second):
		b.t.Fatal("no frame received")
		return Frame{}
	}
}

func (b *broker) none() {
	b.t.Helper()
	select {
	case f := <-b.frames:
		b.t.Fatalf("unexpected frame %q", f.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func (b *broker) conn() *websocket.Conn {
	b.t.Helper()
	select {
	case c := <-b.conns:
		return c
	case <-time.After(2 * time.Second):
		b.t.Fatal("no connection")
		return nil
	}
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := newFrame(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(frame))
}

func connect(t *testing.T, url string) (*Channel, models.User) {
	t.Helper()
	ch := NewChannel(url, WithRetryInterval(10*time.Millisecond))
	t.Cleanup(func() { ch.Close() })
	user := models.User{ID: "u1", Name: "Ann", Token: "tok"}
	require.NoError(t, ch.Connect(context.Background(), user))
	return ch, user
}

func dataString(t *testing.T, f Frame) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(f.Data, &s))
	return s
}

func TestConnectSendsSetupAndWaitsForAck(t *testing.T) {
	b, url := newBroker(t)
	ch, _ := connect(t, url)
	server := b.conn()

	header := <-b.headers
	assert.Equal(t, "Bearer tok", header.Get("Authorization"))

	setup := b.next()
	require.Equal(t, EventSetup, setup.Event)
	var user models.User
	require.NoError(t, json.Unmarshal(setup.Data, &user))
	assert.Equal(t, "u1", user.ID)
	assert.False(t, ch.Connected())

	acked := make(chan struct{})
	ch.Subscribe(Connected, func(Event) { close(acked) })
	send(t, server, EventConnectedAck, nil)

	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("connected not dispatched")
	}
	require.True(t, ch.Connected())
}

func TestTypingSuppressedUntilConnected(t *testing.T) {
	b, url := newBroker(t)
	ch, _ := connect(t, url)
	server := b.conn()
	require.Equal(t, EventSetup, b.next().Event)

	require.ErrorIs(t, ch.EmitTyping("c1", true), ErrNotConnected)
	b.none()

	send(t, server, EventConnectedAck, nil)
	require.Eventually(t, ch.Connected, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, ch.EmitTyping("c1", true))
	f := b.next()
	assert.Equal(t, EventTyping, f.Event)
	assert.Equal(t, "c1", dataString(t, f))

	require.NoError(t, ch.EmitTyping("c1", false))
	assert.Equal(t, EventStoppedTyping, b.next().Event)
}

func TestRoomTracking(t *testing.T) {
	b, url := newBroker(t)
	ch, _ := connect(t, url)
	b.conn()
	require.Equal(t, EventSetup, b.next().Event)

	require.NoError(t, ch.JoinRoom("c1"))
	require.NoError(t, ch.JoinRoom("c1"))
	require.NoError(t, ch.LeaveRoom("c2"))
	require.NoError(t, ch.LeaveRoom("c1"))
	require.NoError(t, ch.JoinRoom("c2"))

	join := b.next()
	assert.Equal(t, EventJoinChat, join.Event)
	assert.Equal(t, "c1", dataString(t, join))
	leave := b.next()
	assert.Equal(t, EventLeaveChat, leave.Event)
	assert.Equal(t, "c1", dataString(t, leave))
	join = b.next()
	assert.Equal(t, "c2", dataString(t, join))
	b.none()

	assert.Equal(t, []string{"c2"}, ch.Rooms())
}

func TestInboundMessageDispatch(t *testing.T) {
	b, url := newBroker(t)
	ch, _ := connect(t, url)
	server := b.conn()

	events := make(chan Event, 4)
	ch.Subscribe(MessageReceived, func(e Event) { events <- e })
	ch.Subscribe(TypingStarted, func(e Event) { events <- e })

	send(t, server, EventMessageRecieved, models.Message{
		ID:      "m1",
		Sender:  models.User{ID: "u2"},
		Content: "hi",
		Chat:    &models.Conversation{ID: "c9"},
	})
	send(t, server, "presence", "ignored")
	send(t, server, EventTyping, "c9")

	e := <-events
	assert.Equal(t, MessageReceived, e.Kind)
	assert.Equal(t, "c9", e.ConversationID)
	require.NotNil(t, e.Message)
	assert.Equal(t, "hi", e.Message.Content)

	e = <-events
	assert.Equal(t, TypingStarted, e.Kind)
	assert.Equal(t, "c9", e.ConversationID)
}

func TestEmitMessage(t *testing.T) {
	b, url := newBroker(t)
	ch, _ := connect(t, url)
	b.conn()
	b.next()

	require.NoError(t, ch.EmitMessage(models.Message{ID: "m1", Content: "hello", Chat: &models.Conversation{ID: "c1"}}))
	f := b.next()
	require.Equal(t, EventNewMessage, f.Event)
	var msg models.Message
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	assert.Equal(t, "m1", msg.ID)
}

func TestReconnectRejoinsRooms(t *testing.T) {
	b, url := newBroker(t)
	ch, _ := connect(t, url)
	first := b.conn()
	require.Equal(t, EventSetup, b.next().Event)
	require.NoError(t, ch.JoinRoom("c1"))
	require.Equal(t, EventJoinChat, b.next().Event)

	require.NoError(t, first.Close())

	b.conn()
	require.Equal(t, EventSetup, b.next().Event)
	rejoin := b.next()
	require.Equal(t, EventJoinChat, rejoin.Event)
	assert.Equal(t, "c1", dataString(t, rejoin))
	assert.Equal(t, 2, ch.Info().Attempt)
}

func TestDecodeFrame(t *testing.T) {
	e, ok, err := decodeFrame(Frame{Event: EventStoppedTyping})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TypingStopped, e.Kind)
	assert.Empty(t, e.ConversationID)

	_, ok, err = decodeFrame(Frame{Event: EventMessageRecieved, Data: json.RawMessage(`"nope"`)})
	require.Error(t, err)
	require.False(t, ok)

	_, ok, err = decodeFrame(Frame{Event: "unknown"})
	require.NoError(t, err)
	require.False(t, ok)
}

type fakeConn struct {
	mu      sync.Mutex
	written []Frame
	closed  bool
	reads   chan Frame
}

func (f *fakeConn) ReadJSON(v any) error {
	frame, ok := <-f.reads
	if !ok {
		return websocket.ErrCloseSent
	}
	*(v.(*Frame)) = frame
	return nil
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, v.(Frame))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestCloseStopsReader(t *testing.T) {
	fc := &fakeConn{reads: make(chan Frame)}
	ch := NewChannel("ws://broker", WithDialer(func(context.Context, string, http.Header) (Conn, error) {
		return fc, nil
	}))
	require.NoError(t, ch.Connect(context.Background(), models.User{ID: "u1"}))

	require.NoError(t, ch.Close())
	close(fc.reads)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.True(t, fc.closed)
	require.Len(t, fc.written, 1)
	assert.Equal(t, EventSetup, fc.written[0].Event)
	require.ErrorIs(t, ch.Connect(context.Background(), models.User{}), ErrClosed)
	require.ErrorIs(t, ch.EmitMessage(models.Message{}), ErrNotConnected)
}

func TestFailedFirstDialRetriesInBackground(t *testing.T) {
	fc := &fakeConn{reads: make(chan Frame)}
	var mu sync.Mutex
	dials := 0
	ch := NewChannel("ws://broker",
		WithRetryInterval(time.Millisecond),
		WithDialer(func(context.Context, string, http.Header) (Conn, error) {
			mu.Lock()
			defer mu.Unlock()
			dials++
			if dials == 1 {
				return nil, errors.New("connection refused")
			}
			return fc, nil
		}))
	t.Cleanup(func() {
		_ = ch.Close()
		close(fc.reads)
	})
	require.NoError(t, ch.JoinRoom("c1"))

	err := ch.Connect(context.Background(), models.User{ID: "u1"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNetwork))

	require.Eventually(t, func() bool {
		fc.mu.Lock()
		defer fc.mu.Unlock()
		return len(fc.written) == 2
	}, time.Second, 5*time.Millisecond)
	fc.mu.Lock()
	assert.Equal(t, EventSetup, fc.written[0].Event)
	assert.Equal(t, EventJoinChat, fc.written[1].Event)
	fc.mu.Unlock()
	assert.Equal(t, 2, ch.Info().Attempt)

	fc.reads <- Frame{Event: EventConnectedAck}
	require.Eventually(t, ch.Connected, time.Second, 5*time.Millisecond)
	require.Error(t, ch.Connect(context.Background(), models.User{ID: "u1"}), "single session per channel")
}
