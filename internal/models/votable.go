package models

// Votable is implemented by playlists and forum threads: entities that carry
// an up/down vote ledger, an owner and a comment list.
type Votable interface {
	Key() string
	OwnerID() int64
	Votes() *Tally
	Discussion() *[]Comment
}

var (
	_ Votable = (*Playlist)(nil)
	_ Votable = (*ForumThread)(nil)
)
