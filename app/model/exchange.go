package model

import "time"

const (
	DefaultUserID = "default_user"
	DefaultRoomID = "default_room"
)

type Exchange struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation scopes history to one user inside one room.
type Conversation struct {
	RoomID string
	UserID string
}

func NewConversation(roomID, userID string) Conversation {
	if roomID == "" {
		roomID = DefaultRoomID
	}
	if userID == "" {
		userID = DefaultUserID
	}

	return Conversation{RoomID: roomID, UserID: userID}
}

func (c Conversation) Key() string {
	return c.RoomID + "_" + c.UserID
}
