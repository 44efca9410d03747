package model

import "time"

// PendingImage is the short-lived conversational state: the user sent an
// image and we are waiting for a removal instruction. At most one exists per
// address; a newer image replaces it (latest image wins).
type PendingImage struct {
	Address    string    `json:"address"`
	ImageURL   string    `json:"image_url"`
	EventID    string    `json:"event_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// Expired reports whether the pending image is older than the configured
// instruction window at the given instant.
func (p *PendingImage) Expired(now time.Time, window time.Duration) bool {
	if p == nil {
		return true
	}
	return now.Sub(p.ReceivedAt) > window
}
