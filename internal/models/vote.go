package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// VoteValue is a single ballot on a playlist or thread.
type VoteValue string

const (
	VoteNone VoteValue = ""
	VoteUp   VoteValue = "up"
	VoteDown VoteValue = "down"
)

func (v VoteValue) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// Weight is the contribution of the vote to a score.
func (v VoteValue) Weight() int {
	switch v {
	case VoteUp:
		return 1
	case VoteDown:
		return -1
	}
	return 0
}

// UnmarshalJSON also accepts the legacy boolean ballots some thread records
// were written with: true is an upvote, false is no vote.
func (v *VoteValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "true":
		*v = VoteUp
		return nil
	case "false", "null":
		*v = VoteNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("vote value: %w", err)
	}
	*v = VoteValue(s)
	return nil
}

// Tally is the vote ledger of a votable entity. Score is persisted alongside
// Voters for cheap reads and is always re-derived from Voters on mutation.
type Tally struct {
	Score  int                  `json:"score"`
	Voters map[string]VoteValue `json:"voters"`
}

// Recount re-derives Score from Voters and drops entries that carry no vote.
func (t *Tally) Recount() int {
	if t.Voters == nil {
		t.Voters = map[string]VoteValue{}
	}
	score := 0
	for uid, v := range t.Voters {
		if !v.Valid() {
			delete(t.Voters, uid)
			continue
		}
		score += v.Weight()
	}
	t.Score = score
	return score
}

// Counts returns the number of up and down votes.
func (t *Tally) Counts() (up, down int) {
	for _, v := range t.Voters {
		switch v {
		case VoteUp:
			up++
		case VoteDown:
			down++
		}
	}
	return up, down
}
