package webex

import "time"

type listResponse[T any] struct {
	Items []T `json:"items"`
}

type room struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Type         string    `json:"type"`
	LastActivity time.Time `json:"lastActivity"`
}

type membership struct {
	ID                string `json:"id"`
	RoomID            string `json:"roomId"`
	PersonID          string `json:"personId"`
	PersonEmail       string `json:"personEmail"`
	PersonDisplayName string `json:"personDisplayName"`
}

type person struct {
	ID          string   `json:"id"`
	Emails      []string `json:"emails"`
	DisplayName string   `json:"displayName"`
}

type message struct {
	ID              string    `json:"id"`
	RoomID          string    `json:"roomId"`
	PersonID        string    `json:"personId"`
	PersonEmail     string    `json:"personEmail"`
	Text            string    `json:"text"`
	MentionedPeople []string  `json:"mentionedPeople"`
	Created         time.Time `json:"created"`
}

type createMessageRequest struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type errorResponse struct {
	Message    string `json:"message"`
	TrackingID string `json:"trackingId"`
}
