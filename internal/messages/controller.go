// Package messages drives the open conversation: history fetch, sending,
// inbound routing and the typing indicator protocol.
//
// All Controller methods except Send run on the event loop. Send blocks on the
// network and must be called off the loop.
package messages

import (
	"context"
	"log"
	"strings"
	"time"

	"chat-client/internal/apperr"
	"chat-client/internal/loop"
	"chat-client/internal/models"
	"chat-client/internal/notice"
	"chat-client/internal/observability"
)

// State is the lifecycle of the open conversation's view.
type State int

const (
	Idle State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// API is the subset of the REST client the controller uses.
type API interface {
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID, content string) (models.Message, error)
}

// Channel is the subset of the event channel the controller uses.
type Channel interface {
	Connected() bool
	JoinRoom(conversationID string) error
	EmitTyping(conversationID string, isTyping bool) error
	EmitMessage(msg models.Message) error
}

// ListSync receives list updates caused by messages.
type ListSync interface {
	Touch(msg models.Message)
	Invalidate()
	// Left reports whether the local user left the conversation.
	Left(conversationID string) bool
}

// Notifier collects messages for conversations that are not open.
type Notifier interface {
	Add(msg models.Message) bool
}

// Options tunes the typing protocol.
type Options struct {
	// TypingTimeout is the silence after which a local burst ends.
	TypingTimeout time.Duration
	// RemoteTypingTimeout clears the peer's typing flag when no stop event
	// arrives. Zero keeps the flag until the peer stops.
	RemoteTypingTimeout time.Duration
}

// View is a snapshot of the open conversation.
type View struct {
	ConversationID string           `json:"conversation_id,omitempty"`
	State          State            `json:"state"`
	Messages       []models.Message `json:"messages"`
	Draft          string           `json:"draft"`
	LocalTyping    bool             `json:"local_typing"`
	RemoteTyping   bool             `json:"remote_typing"`
	LastKeystroke  time.Time        `json:"last_keystroke_at,omitempty"`
}

type Controller struct {
	loop    *loop.Loop
	sched   loop.Scheduler
	api     API
	channel Channel
	list    ListSync
	notify  Notifier
	notices *notice.Board
	opts    Options
	now     func() time.Time

	state    State
	target   string
	messages []models.Message
	seen     map[string]bool
	draft    string

	localTyping   bool
	keystrokes    uint64
	lastKeystroke time.Time
	stopTimer     loop.Timer

	remoteTyping bool
	remoteTimer  loop.Timer
}

// New creates a controller. sched is usually the loop itself.
func New(l *loop.Loop, sched loop.Scheduler, api API, channel Channel, list ListSync, notify Notifier, notices *notice.Board, opts Options) *Controller {
	if opts.TypingTimeout <= 0 {
		opts.TypingTimeout = 3 * time.Second
	}
	return &Controller{
		loop:    l,
		sched:   sched,
		api:     api,
		channel: channel,
		list:    list,
		notify:  notify,
		notices: notices,
		opts:    opts,
		now:     time.Now,
		seen:    map[string]bool{},
	}
}

// HandleSelect reacts to a selection change. It is registered as a session
// store selection listener.
func (c *Controller) HandleSelect(prev, next *models.Conversation) {
	if c.localTyping && prev != nil {
		if err := c.channel.EmitTyping(prev.ID, false); err != nil {
			log.Printf("emit stop typing failed: chat_id=%s err=%v", prev.ID, err)
		}
	}
	c.resetTyping()
	c.draft = ""
	c.clear()

	if next == nil {
		c.target = ""
		c.state = Idle
		return
	}
	c.target = next.ID
	c.state = Loading
	c.fetch(next.ID)
}

// Reload refetches the open conversation's history.
func (c *Controller) Reload() {
	if c.target == "" {
		return
	}
	c.state = Loading
	c.fetch(c.target)
}

func (c *Controller) fetch(chatID string) {
	loop.Await(c.loop, func(ctx context.Context) ([]models.Message, error) {
		return c.api.ListMessages(ctx, chatID)
	}, func(list []models.Message, err error) {
		if c.target != chatID {
			observability.IncMessage("stale_fetch")
			log.Printf("discarding stale history: chat_id=%s open=%s", chatID, c.target)
			return
		}
		if err != nil {
			log.Printf("load messages failed: chat_id=%s err=%v", chatID, err)
			c.notices.Push(notice.Error("Error Occured!", "Failed to load the messages", notice.PositionBottom))
			return
		}

		// live messages delivered while the fetch was in flight stay after the history
		live := c.messages
		c.clear()
		for _, m := range list {
			c.append(m)
		}
		for _, m := range live {
			c.append(m)
		}
		if err := c.channel.JoinRoom(chatID); err != nil {
			log.Printf("join room failed: chat_id=%s err=%v", chatID, err)
		}
		c.state = Ready
	})
}

func (c *Controller) clear() {
	c.messages = nil
	c.seen = map[string]bool{}
}

// append adds m unless a message with the same id is already shown.
func (c *Controller) append(m models.Message) bool {
	if m.ID != "" {
		if c.seen[m.ID] {
			return false
		}
		c.seen[m.ID] = true
	}
	c.messages = append(c.messages, m)
	return true
}

// Keystroke records the draft and drives the local typing protocol.
func (c *Controller) Keystroke(text string) {
	c.draft = text
	if c.target == "" || !c.channel.Connected() {
		return
	}

	if !c.localTyping {
		if err := c.channel.EmitTyping(c.target, true); err != nil {
			log.Printf("emit typing failed: chat_id=%s err=%v", c.target, err)
			return
		}
		c.localTyping = true
	}
	c.keystrokes++
	c.lastKeystroke = c.now()

	if c.stopTimer != nil {
		c.stopTimer.Stop()
	}
	stamp, chatID := c.keystrokes, c.target
	c.stopTimer = c.sched.AfterFunc(c.opts.TypingTimeout, func() {
		if c.keystrokes != stamp || !c.localTyping || c.target != chatID {
			return
		}
		c.stopLocalTyping()
	})
}

func (c *Controller) stopLocalTyping() {
	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}
	if !c.localTyping {
		return
	}
	c.localTyping = false
	if err := c.channel.EmitTyping(c.target, false); err != nil {
		log.Printf("emit stop typing failed: chat_id=%s err=%v", c.target, err)
	}
}

func (c *Controller) resetTyping() {
	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}
	if c.remoteTimer != nil {
		c.remoteTimer.Stop()
		c.remoteTimer = nil
	}
	c.localTyping = false
	c.remoteTyping = false
	c.lastKeystroke = time.Time{}
}

// Send posts the current draft to the open conversation. On failure the draft
// is restored unless the user typed something new meanwhile.
func (c *Controller) Send(ctx context.Context) (models.Message, error) {
	const op = "send message"

	var (
		chatID, content string
		rejected        error
	)
	if err := c.loop.Do(ctx, func() {
		switch {
		case strings.TrimSpace(c.draft) == "":
			rejected = apperr.Validation(op, "message is empty")
		case c.target == "" || c.state != Ready:
			rejected = apperr.Validation(op, "conversation is not ready")
		default:
			chatID, content = c.target, c.draft
			c.stopLocalTyping()
			c.draft = ""
		}
	}); err != nil {
		return models.Message{}, err
	}
	if rejected != nil {
		return models.Message{}, rejected
	}

	msg, sendErr := c.api.SendMessage(ctx, chatID, content)
	if err := c.loop.Do(ctx, func() {
		if sendErr != nil {
			if c.target == chatID && c.draft == "" {
				c.draft = content
			}
			observability.IncMessage("send_failed")
			c.notices.Push(notice.Error("Error occured", "Failed to send message", notice.PositionBottom))
			return
		}

		if msg.Chat == nil {
			msg.Chat = &models.Conversation{ID: chatID}
		}
		observability.IncMessage("sent")
		if c.target == chatID {
			c.append(msg)
		}
		if err := c.channel.EmitMessage(msg); err != nil {
			log.Printf("emit message failed: chat_id=%s message_id=%s err=%v", chatID, msg.ID, err)
		}
		c.list.Touch(msg)
		c.list.Invalidate()
	}); err != nil {
		return models.Message{}, err
	}
	if sendErr != nil {
		return models.Message{}, sendErr
	}
	return msg, nil
}

// HandleInbound routes a delivered message to the open view or to the
// notifications.
func (c *Controller) HandleInbound(msg models.Message) {
	chatID := msg.ConversationID()
	if chatID == "" {
		log.Printf("inbound message without chat: message_id=%s", msg.ID)
		return
	}

	if c.target != "" && chatID == c.target {
		if c.append(msg) {
			observability.IncMessage("received")
			c.list.Touch(msg)
		}
		return
	}

	if c.list.Left(chatID) {
		observability.IncMessage("dropped_untracked")
		log.Printf("ignoring message for left chat: chat_id=%s message_id=%s", chatID, msg.ID)
		return
	}

	observability.IncMessage("routed_notification")
	c.notify.Add(msg)
	c.list.Invalidate()
}

// HandleTyping applies a peer's typing event. An empty conversation id refers
// to the open conversation; events for other conversations are ignored.
func (c *Controller) HandleTyping(conversationID string, started bool) {
	if c.target == "" {
		return
	}
	if conversationID == "" {
		conversationID = c.target
	}
	if conversationID != c.target {
		return
	}

	if c.remoteTimer != nil {
		c.remoteTimer.Stop()
		c.remoteTimer = nil
	}
	c.remoteTyping = started
	if started && c.opts.RemoteTypingTimeout > 0 {
		c.remoteTimer = c.sched.AfterFunc(c.opts.RemoteTypingTimeout, func() {
			if c.target == conversationID {
				c.remoteTyping = false
			}
		})
	}
}

// ActiveTarget is the conversation fetch results are compared against.
func (c *Controller) ActiveTarget() string {
	return c.target
}

// Snapshot copies the open conversation's view.
func (c *Controller) Snapshot() View {
	msgs := make([]models.Message, len(c.messages))
	copy(msgs, c.messages)
	return View{
		ConversationID: c.target,
		State:          c.state,
		Messages:       msgs,
		Draft:          c.draft,
		LocalTyping:    c.localTyping,
		RemoteTyping:   c.remoteTyping,
		LastKeystroke:  c.lastKeystroke,
	}
}
