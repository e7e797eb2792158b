package models

import "time"

// Grant is a time-bound permission for one requester to read one mailbox.
type Grant struct {
	RequesterID    int64     `json:"requester_id"`
	MailboxAddress string    `json:"mailbox_address"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Active reports whether the grant is still in force at now.
func (g Grant) Active(now time.Time) bool {
	return g.ExpiresAt.After(now)
}
