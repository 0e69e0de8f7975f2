package services

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"

	"cinehub/internal/apperr"
	"cinehub/internal/events"
	"cinehub/internal/ledger"
	"cinehub/internal/models"
	"cinehub/internal/ranking"
	"cinehub/internal/store"
	"cinehub/internal/utils"
)

// votable is satisfied by *models.Playlist and *models.ForumThread.
type votable[T any] interface {
	*T
	models.Votable
}

func indexOf[T any, P votable[T]](items []T, id string) int {
	for i := range items {
		if P(&items[i]).Key() == id {
			return i
		}
	}
	return -1
}

// board implements the vote and comment operations shared by playlists and
// forum threads on top of one collection.
type board[T any, P votable[T]] struct {
	coll     *store.Collection[T]
	notFound string
	deps     Deps
	log      *logrus.Entry
}

func newBoard[T any, P votable[T]](coll *store.Collection[T], notFound string, deps Deps) *board[T, P] {
	return &board[T, P]{
		coll:     coll,
		notFound: notFound,
		deps:     deps,
		log:      deps.Log.WithField("collection", coll.Name()),
	}
}

func (b *board[T, P]) name() string { return b.coll.Name() }

func (b *board[T, P]) all(ctx context.Context) ([]T, error) {
	return b.coll.All(ctx)
}

func (b *board[T, P]) get(ctx context.Context, id string) (T, error) {
	var zero T
	items, err := b.coll.All(ctx)
	if err != nil {
		return zero, err
	}
	i := indexOf[T, P](items, id)
	if i < 0 {
		return zero, apperr.NotFound(b.notFound)
	}
	return items[i], nil
}

// mutate runs fn against the entity with id inside a collection update.
func (b *board[T, P]) mutate(ctx context.Context, id string, fn func(P) error) error {
	return b.coll.Update(ctx, func(items *[]T) error {
		i := indexOf[T, P](*items, id)
		if i < 0 {
			return apperr.NotFound(b.notFound)
		}
		return fn(P(&(*items)[i]))
	})
}

func (b *board[T, P]) prepend(ctx context.Context, item T) error {
	return b.coll.Update(ctx, func(items *[]T) error {
		*items = slices.Insert(*items, 0, item)
		return nil
	})
}

// remove deletes the entity with id after checking that caller owns it.
func (b *board[T, P]) remove(ctx context.Context, caller models.CallerIdentity, id, notOwner string) error {
	if !caller.Authenticated() {
		return apperr.Unauthorized("Sign in first")
	}
	err := b.coll.Update(ctx, func(items *[]T) error {
		i := indexOf[T, P](*items, id)
		if i < 0 {
			return apperr.NotFound(b.notFound)
		}
		if err := ledger.RequireOwner(P(&(*items)[i]), caller, notOwner); err != nil {
			return err
		}
		*items = slices.Delete(*items, i, i+1)
		return nil
	})
	if err != nil {
		return err
	}
	b.emit(events.Event{Type: events.EventDeleted, EntityID: id, UserUID: caller.UserUID})
	return nil
}

// vote applies caller's vote and returns the entity as saved.
func (b *board[T, P]) vote(ctx context.Context, caller models.CallerIdentity, id string, value models.VoteValue) (T, ledger.VoteResult, error) {
	var (
		saved T
		res   ledger.VoteResult
	)
	if !caller.Authenticated() {
		return saved, res, apperr.Unauthorized("Sign in to vote")
	}
	err := b.mutate(ctx, id, func(e P) error {
		before := e.Votes().Score
		r, err := ledger.ApplyVote(e, caller, value)
		if err != nil {
			return err
		}
		res, saved = r, *e
		if !r.Changed && before == r.Score {
			return store.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return saved, res, err
	}

	if res.Changed {
		b.deps.Metrics.Votes.WithLabelValues(b.name(), string(value)).Inc()
		up, down := P(&saved).Votes().Counts()
		b.log.WithFields(logrus.Fields{
			"entity_id": id,
			"user_id":   caller.UserUID,
			"vote":      value,
			"score":     res.Score,
			"up":        up,
			"down":      down,
			"admin":     caller.IsAdmin,
		}).Debug("vote recorded")
		b.emit(events.Event{Type: events.EventVoted, EntityID: id, UserUID: caller.UserUID, Score: res.Score})
	}
	return saved, res, nil
}

// comments lists an entity's comments in storage order, or ranked by upvotes.
func (b *board[T, P]) comments(ctx context.Context, id string, top bool) ([]models.Comment, error) {
	e, err := b.get(ctx, id)
	if err != nil {
		return nil, err
	}
	cs := *P(&e).Discussion()
	if cs == nil {
		cs = []models.Comment{}
	}
	if top {
		return b.deps.Ranker.Comments(cs), nil
	}
	return cs, nil
}

func (b *board[T, P]) addComment(ctx context.Context, caller models.CallerIdentity, id, username, text string) (models.Comment, error) {
	if !caller.Authenticated() {
		return models.Comment{}, apperr.Unauthorized("Sign in to comment")
	}
	if username == "" {
		username = caller.Username
	}
	in := ledger.NewComment{
		ID:       b.deps.NewID(),
		Username: utils.StripHTML(username),
		Text:     utils.StripHTML(text),
		At:       b.deps.Now(),
	}

	var created models.Comment
	err := b.mutate(ctx, id, func(e P) error {
		c, err := ledger.AddComment(e, caller, in)
		created = c
		return err
	})
	if err != nil {
		return models.Comment{}, err
	}

	b.deps.Metrics.Comments.WithLabelValues(b.name()).Inc()
	b.emit(events.Event{Type: events.EventCommentAdded, EntityID: id, CommentID: created.ID, UserUID: caller.UserUID})
	return created, nil
}

func (b *board[T, P]) upvoteComment(ctx context.Context, caller models.CallerIdentity, id, commentID string) (int, error) {
	if !caller.Authenticated() {
		return 0, apperr.Unauthorized("Sign in to vote")
	}
	var upvotes int
	err := b.mutate(ctx, id, func(e P) error {
		n, err := ledger.UpvoteComment(e, commentID, caller)
		upvotes = n
		return err
	})
	if err != nil {
		return upvotes, err
	}
	b.emit(events.Event{Type: events.EventCommentUpvoted, EntityID: id, CommentID: commentID, UserUID: caller.UserUID, Upvotes: upvotes})
	return upvotes, nil
}

func (b *board[T, P]) deleteComment(ctx context.Context, caller models.CallerIdentity, id, commentID string) error {
	if !caller.Authenticated() {
		return apperr.Unauthorized("Sign in to delete comment")
	}
	err := b.mutate(ctx, id, func(e P) error {
		_, err := ledger.DeleteComment(e, commentID, caller)
		return err
	})
	if err != nil {
		return err
	}
	b.emit(events.Event{Type: events.EventCommentDeleted, EntityID: id, CommentID: commentID, UserUID: caller.UserUID})
	return nil
}

func (b *board[T, P]) emit(e events.Event) {
	e.Collection = b.name()
	if e.Timestamp.IsZero() {
		e.Timestamp = b.deps.Now()
	}
	b.deps.Notifier.Enqueue(e)
}

// rank orders entities by score with the tie shuffle.
func (b *board[T, P]) rank(items []T) []T {
	ptrs := make([]P, len(items))
	for i := range items {
		ptrs[i] = P(&items[i])
	}
	ranked := ranking.Entities(b.deps.Ranker, ptrs)
	out := make([]T, len(ranked))
	for i, p := range ranked {
		out[i] = *p
	}
	return out
}
