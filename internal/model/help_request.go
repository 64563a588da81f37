package model

import "time"

type HelpRequest struct {
	ID          int64      `json:"id"`
	RequestKey  string     `json:"request_key"`
	RequesterID int64      `json:"requester_id"`
	Reason      string     `json:"reason"`
	Contact     string     `json:"contact"`
	Message     string     `json:"message"`
	Anonymous   bool       `json:"anonymous"`
	Status      string     `json:"status"`
	ResponderID *int64     `json:"responder_id"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
