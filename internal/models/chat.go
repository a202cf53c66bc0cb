package models

import "time"

// Conversation is a direct or group chat as mirrored from the server.
type Conversation struct {
	ID            string    `json:"_id"`
	ChatName      string    `json:"chatName"`
	IsGroupChat   bool      `json:"isGroupChat"`
	Users         []User    `json:"users"`
	GroupAdmin    *User     `json:"groupAdmin,omitempty"`
	LatestMessage *Message  `json:"latestMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AdminID returns the group admin id, or "" for direct chats.
func (c Conversation) AdminID() string {
	if !c.IsGroupChat || c.GroupAdmin == nil {
		return ""
	}
	return c.GroupAdmin.ID
}

// HasMember reports whether userID participates in the conversation.
func (c Conversation) HasMember(userID string) bool {
	for _, u := range c.Users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the first participant that is not selfID. For a direct
// chat this is the peer.
func (c Conversation) OtherParticipant(selfID string) (User, bool) {
	for _, u := range c.Users {
		if u.ID != selfID {
			return u, true
		}
	}
	return User{}, false
}
