// Package notice keeps the transient, dismissible messages shown to the user
// when an action fails or completes.
package notice

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusError   Status = "error"
	StatusWarning Status = "warning"
	StatusSuccess Status = "success"
	StatusInfo    Status = "info"
)

// Position anchors a notice on screen.
type Position string

const (
	PositionBottom   Position = "bottom"
	PositionTop      Position = "top"
	PositionTopRight Position = "top-right"
)

// Notice is a single toast.
type Notice struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      Status        `json:"status"`
	Position    Position      `json:"position"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Error builds an error notice.
func Error(title, description string, pos Position) Notice {
	return Notice{Title: title, Description: description, Status: StatusError, Position: pos}
}

// Warning builds a warning notice.
func Warning(title string, pos Position) Notice {
	return Notice{Title: title, Status: StatusWarning, Position: pos}
}

// Success builds a success notice.
func Success(title string, pos Position) Notice {
	return Notice{Title: title, Status: StatusSuccess, Position: pos}
}

// Board holds active notices until they expire or are dismissed.
type Board struct {
	mu       sync.Mutex
	notices  []Notice
	duration time.Duration
	now      func() time.Time
}

// NewBoard creates a board whose notices last d unless they set their own
// duration.
func NewBoard(d time.Duration) *Board {
	return &Board{duration: d, now: time.Now}
}

// Push records n and returns it with id, duration and timestamp filled in.
func (b *Board) Push(n Notice) Notice {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Duration == 0 {
		n.Duration = b.duration
	}
	if n.Position == "" {
		n.Position = PositionBottom
	}

	b.mu.Lock()
	n.CreatedAt = b.now()
	b.notices = append(b.notices, n)
	b.mu.Unlock()

	log.Printf("notice status=%s title=%q description=%q", n.Status, n.Title, n.Description)
	return n
}

// Active returns unexpired notices, oldest first.
func (b *Board) Active() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	kept := b.notices[:0]
	for _, n := range b.notices {
		if now.Sub(n.CreatedAt) < n.Duration {
			kept = append(kept, n)
		}
	}
	b.notices = kept

	out := make([]Notice, len(kept))
	copy(out, kept)
	return out
}

// Dismiss removes a notice. It reports whether the notice was active.
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.notices {
		if n.ID == id {
			b.notices = append(b.notices[:i], b.notices[i+1:]...)
			return true
		}
	}
	return false
}
