// Package app wires the chat engine onto the event loop and exposes the
// goroutine-safe operations the control API calls.
package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"chat-client/internal/apperr"
	"chat-client/internal/auth"
	"chat-client/internal/chatlist"
	"chat-client/internal/loop"
	"chat-client/internal/messages"
	"chat-client/internal/models"
	"chat-client/internal/notice"
	"chat-client/internal/notify"
	"chat-client/internal/observability"
	"chat-client/internal/repositories"
	"chat-client/internal/session"
	"chat-client/internal/telemetry"
	"chat-client/internal/ws"
)

var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// API is the REST client contract.
type API interface {
	chatlist.API
	messages.API
	Login(ctx context.Context, email, password string) (models.User, error)
	Register(ctx context.Context, name, email, password, photo string) (models.User, error)
	SetToken(token string)
}

// Registration is a sign-up request.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Photo           string `json:"photo"`
}

// Deps are the collaborators of a Client.
type Deps struct {
	Loop *loop.Loop
	// Scheduler defaults to Loop.
	Scheduler loop.Scheduler
	API       API
	// NewChannel creates the event channel of a new session.
	NewChannel func() EventChannel
	Profiles   repositories.ProfileRepository
	Audit      *telemetry.AuditEmitter
	Notices    *notice.Board
	Typing     messages.Options
}

// Client is the chat session. Its methods may be called from any goroutine
// other than the loop's.
type Client struct {
	loop       *loop.Loop
	store      *session.Store
	api        API
	channel    *sessionChannel
	newChannel func() EventChannel
	profiles   repositories.ProfileRepository
	audit      *telemetry.AuditEmitter
	notices    *notice.Board

	chats  *chatlist.Synchronizer
	msgs   *messages.Controller
	notify *notify.Aggregator

	now func() time.Time

	// serializes login, restore and logout
	sessionMu sync.Mutex
}

// New wires a client. The loop must be running before any method is called.
func New(deps Deps) *Client {
	sched := deps.Scheduler
	if sched == nil {
		sched = deps.Loop
	}
	notices := deps.Notices
	if notices == nil {
		notices = notice.NewBoard(5 * time.Second)
	}

	c := &Client{
		loop:       deps.Loop,
		store:      session.NewStore(),
		api:        deps.API,
		channel:    &sessionChannel{},
		newChannel: deps.NewChannel,
		profiles:   deps.Profiles,
		audit:      deps.Audit,
		notices:    notices,
		now:        time.Now,
	}
	c.notify = notify.New(c.store)
	c.chats = chatlist.New(c.loop, c.store, c.api, c.channel, c.notices)
	c.msgs = messages.New(c.loop, sched, c.api, c.channel, c.chats, c.notify, c.notices, deps.Typing)

	c.store.OnSelect(c.msgs.HandleSelect)
	c.store.OnSelect(func(_, next *models.Conversation) {
		if next != nil {
			c.notify.Dismiss(next.ID)
		}
	})
	c.chats.SetReloader(c.msgs.Reload)
	return c
}

// Store exposes the session state for reading.
func (c *Client) Store() *session.Store {
	return c.store
}

// Login authenticates with the server and starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		c.notices.Push(notice.Warning("Please fill all the fields", notice.PositionTopRight))
		return models.User{}, apperr.Validation("login", "email and password are required")
	}

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	user, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.notices.Push(notice.Error("Error occurred", apperr.Message(err), notice.PositionTopRight))
		return models.User{}, err
	}
	if err := c.begin(ctx, user); err != nil {
		return models.User{}, err
	}
	c.audit.Emit(ctx, telemetry.AuditLogin, "", user.ID, map[string]string{"email": user.Email})
	return user, nil
}

// Register creates an account and starts a session for it.
func (c *Client) Register(ctx context.Context, reg Registration) (models.User, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" || reg.ConfirmPassword == "" {
		c.notices.Push(notice.Warning("Please fill all the fields", notice.PositionTopRight))
		return models.User{}, apperr.Validation("register", "name, email and password are required")
	}
	if reg.Password != reg.ConfirmPassword {
		c.notices.Push(notice.Warning("Passwords do not match", notice.PositionTopRight))
		return models.User{}, apperr.Validation("register", "passwords do not match")
	}

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	user, err := c.api.Register(ctx, reg.Name, reg.Email, reg.Password, reg.Photo)
	if err != nil {
		c.notices.Push(notice.Error("Some error occured while signing up", apperr.Message(err), notice.PositionTopRight))
		return models.User{}, err
	}
	c.notices.Push(notice.Success("Registration Successful", notice.PositionBottom))
	if err := c.begin(ctx, user); err != nil {
		return models.User{}, err
	}
	c.audit.Emit(ctx, telemetry.AuditRegister, "", user.ID, map[string]string{"email": user.Email})
	return user, nil
}

// begin persists the profile of a freshly authenticated user and starts the
// session.
func (c *Client) begin(ctx context.Context, user models.User) error {
	if err := c.profiles.Save(ctx, user); err != nil {
		log.Printf("save profile failed: %v", err)
	}
	return c.start(ctx, user)
}

// Restore resumes the persisted session, if any. It reports whether a session
// was started. An expired token clears the stored profile.
func (c *Client) Restore(ctx context.Context) (bool, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	user, err := c.profiles.Load(ctx)
	if errors.Is(err, repositories.ErrProfileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := auth.CheckExpiry(user.Token, c.now()); err != nil {
		log.Printf("stored profile rejected: user_id=%s err=%v", user.ID, err)
		return false, c.profiles.Clear(ctx)
	}
	return true, c.start(ctx, user)
}

func (c *Client) start(ctx context.Context, user models.User) error {
	if _, ok := c.store.User(); ok {
		c.stop(ctx)
	}

	c.api.SetToken(user.Token)
	if err := c.loop.Do(ctx, func() { c.store.SetUser(&user) }); err != nil {
		return err
	}

	ch := c.newChannel()
	c.subscribe(ch)
	c.channel.swap(ch)
	// the channel outlives the request that started the session
	if err := ch.Connect(c.loop.Context(), user); err != nil {
		log.Printf("event channel connect failed: user_id=%s err=%v", user.ID, err)
	}

	if err := c.chats.Refresh(ctx); err != nil {
		log.Printf("initial chat list failed: %v", err)
	}
	return nil
}

// subscribe forwards ch's events onto the loop, dropping any that arrive
// after ch stopped being the session channel.
func (c *Client) subscribe(ch EventChannel) {
	post := func(fn func()) {
		c.loop.Post(func() {
			if c.channel.current() != ch {
				return
			}
			fn()
		})
	}

	ch.Subscribe(ws.Connected, func(ws.Event) {
		post(func() { log.Printf("event channel ready") })
	})
	ch.Subscribe(ws.MessageReceived, func(e ws.Event) {
		if e.Message == nil {
			return
		}
		msg := *e.Message
		post(func() { c.msgs.HandleInbound(msg) })
	})
	ch.Subscribe(ws.TypingStarted, func(e ws.Event) {
		post(func() { c.msgs.HandleTyping(e.ConversationID, true) })
	})
	ch.Subscribe(ws.TypingStopped, func(e ws.Event) {
		post(func() { c.msgs.HandleTyping(e.ConversationID, false) })
	})
}

// Logout ends the session and forgets the stored profile.
func (c *Client) Logout(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	user, ok := c.store.User()
	if !ok {
		return ErrNotAuthenticated
	}
	c.stop(ctx)
	if err := c.profiles.Clear(ctx); err != nil {
		return err
	}
	c.audit.Emit(ctx, telemetry.AuditLogout, "", user.ID, nil)
	return nil
}

func (c *Client) stop(ctx context.Context) {
	if err := c.loop.Do(ctx, func() {
		c.chats.OnSelect(nil)
		c.chats.Reset()
		c.store.SetUser(nil)
		observability.SetNotificationsPending(0)
	}); err != nil {
		log.Printf("reset session state failed: %v", err)
	}
	if prev := c.channel.swap(nil); prev != nil {
		if err := prev.Close(); err != nil {
			log.Printf("event channel close failed: %v", err)
		}
	}
	c.api.SetToken("")
}

// Close releases the event channel.
func (c *Client) Close() error {
	if prev := c.channel.swap(nil); prev != nil {
		return prev.Close()
	}
	return nil
}

// User returns the authenticated user.
func (c *Client) User() (models.User, bool) {
	return c.store.User()
}

// ChatEntry is a conversation as rendered in the list.
type ChatEntry struct {
	models.Conversation
	DisplayName string `json:"display_name"`
	Preview     string `json:"preview"`
	TimeLabel   string `json:"time_label,omitempty"`
	Selected    bool   `json:"selected"`
}

// Chats renders the known conversations in display order.
func (c *Client) Chats() []ChatEntry {
	me, _ := c.store.User()
	selected := c.store.SelectedID()
	now := c.now()

	list := c.store.Conversations()
	out := make([]ChatEntry, 0, len(list))
	for _, conv := range list {
		entry := ChatEntry{
			Conversation: conv,
			DisplayName:  chatlist.DisplayName(conv, me),
			Preview:      chatlist.Preview(conv, me),
			Selected:     conv.ID == selected,
		}
		if conv.LatestMessage != nil && !conv.LatestMessage.CreatedAt.IsZero() {
			entry.TimeLabel = chatlist.FormatTime(conv.LatestMessage.CreatedAt, now)
		}
		out = append(out, entry)
	}
	return out
}

// Open opens a known conversation.
func (c *Client) Open(ctx context.Context, conversationID string) error {
	found := false
	if err := c.loop.Do(ctx, func() { found = c.chats.Select(conversationID) }); err != nil {
		return err
	}
	if !found {
		return ErrConversationNotFound
	}
	return nil
}

// CloseConversation clears the selection.
func (c *Client) CloseConversation(ctx context.Context) error {
	return c.loop.Do(ctx, func() { c.chats.OnSelect(nil) })
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	return c.chats.SearchUsers(ctx, query)
}

func (c *Client) AccessChat(ctx context.Context, userID string) (models.Conversation, error) {
	return c.chats.AccessChat(ctx, userID)
}

func (c *Client) CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error) {
	return c.chats.CreateGroup(ctx, name, userIDs)
}

func (c *Client) RenameGroup(ctx context.Context, chatID, name string) (models.Conversation, error) {
	return c.chats.RenameGroup(ctx, chatID, name)
}

func (c *Client) AddToGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	return c.chats.AddToGroup(ctx, chatID, userID)
}

func (c *Client) RemoveFromGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	return c.chats.RemoveFromGroup(ctx, chatID, userID)
}

// Messages returns the open conversation's view.
func (c *Client) Messages(ctx context.Context) (messages.View, error) {
	var v messages.View
	err := c.loop.Do(ctx, func() { v = c.msgs.Snapshot() })
	return v, err
}

// Keystroke updates the draft and the local typing indicator.
func (c *Client) Keystroke(ctx context.Context, text string) error {
	return c.loop.Do(ctx, func() { c.msgs.Keystroke(text) })
}

// Send sends the draft to the open conversation.
func (c *Client) Send(ctx context.Context) (models.Message, error) {
	msg, err := c.msgs.Send(ctx)
	if err != nil && !apperr.IsKind(err, apperr.KindValidation) {
		user, _ := c.store.User()
		c.audit.Emit(ctx, telemetry.AuditSendFailed, "", user.ID, map[string]string{
			"chat_id": c.store.SelectedID(),
			"error":   apperr.Message(err),
		})
	}
	return msg, err
}

// NotificationEntry is a pending notification with its menu title.
type NotificationEntry struct {
	models.Notification
	Title string `json:"title"`
}

// Notifications lists pending notifications, most recent first.
func (c *Client) Notifications() []NotificationEntry {
	me, _ := c.store.User()
	list := c.store.Notifications()
	out := make([]NotificationEntry, 0, len(list))
	for _, n := range list {
		out = append(out, NotificationEntry{Notification: n, Title: notify.Title(n, me)})
	}
	return out
}

// OpenNotification opens the conversation of a notification and dismisses it.
func (c *Client) OpenNotification(ctx context.Context, messageID string) error {
	found := false
	err := c.loop.Do(ctx, func() {
		n, ok := c.notify.Find(messageID)
		if !ok {
			return
		}
		found = true
		c.notify.DismissOne(messageID)

		conv := n.Conversation
		if known, ok := c.store.Conversation(conv.ID); ok {
			conv = known
		}
		c.chats.OnSelect(&conv)
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}

// DismissNotification drops a notification without opening it.
func (c *Client) DismissNotification(ctx context.Context, messageID string) error {
	found := false
	if err := c.loop.Do(ctx, func() { found = c.notify.DismissOne(messageID) }); err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}

// Notices lists the active notices.
func (c *Client) Notices() []notice.Notice {
	return c.notices.Active()
}

// DismissNotice closes a notice.
func (c *Client) DismissNotice(id string) bool {
	return c.notices.Dismiss(id)
}

// EmitAuditTest publishes a test audit event.
func (c *Client) EmitAuditTest(ctx context.Context, requestID string) {
	user, _ := c.store.User()
	c.audit.Emit(ctx, telemetry.AuditTest, requestID, user.ID, map[string]string{"text": "debug audit test"})
}
