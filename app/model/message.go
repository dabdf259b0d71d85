package model

import (
	"errors"
	"time"
)

// ErrPermanent marks chat backend failures that retrying will not fix
// (bad credentials, room gone). The poll loop stops on them.
var ErrPermanent = errors.New("permanent chat backend error")

type Message struct {
	ID           string
	RoomID       string
	SenderID     string
	SenderName   string
	Text         string
	MentionedIDs []string
	Created      time.Time
}

type Room struct {
	ID           string
	Title        string
	Type         string
	LastActivity time.Time
}

type Membership struct {
	ID          string
	RoomID      string
	PersonID    string
	PersonEmail string
	DisplayName string
}

type Person struct {
	ID          string
	Emails      []string
	DisplayName string
}

// BotIdentity is resolved once per run.
type BotIdentity struct {
	BotID    string
	BotEmail string
}
