package model

import "time"

// Report is a moderation report against a link. Write-only: reports are never
// updated or deleted through the API. Origin is captured server-side from the
// connection, never taken from the request body.
type Report struct {
	ID        string    `json:"id"`
	LinkID    string    `json:"linkID"`
	Reason    string    `json:"reason"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"createdAt"`
}
