package models

import (
	"time"
)

// Comment belongs to exactly one playlist or thread and is stored inline in
// its parent's JSON. Voters is upvote-only.
type Comment struct {
	ID        string          `json:"id"`
	UserUID   int64           `json:"userUID"`
	Username  string          `json:"username"`
	Text      string          `json:"text"`
	CreatedAt time.Time       `json:"createdAt"`
	Upvotes   int             `json:"upvotes"`
	Voters    map[string]bool `json:"voters"`
}

// Recount re-derives Upvotes from Voters.
func (c *Comment) Recount() int {
	if c.Voters == nil {
		c.Voters = map[string]bool{}
	}
	n := 0
	for uid, up := range c.Voters {
		if !up {
			delete(c.Voters, uid)
			continue
		}
		n++
	}
	c.Upvotes = n
	return n
}
