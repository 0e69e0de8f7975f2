package services

import (
	"context"
	"strings"

	"cinehub/internal/apperr"
	"cinehub/internal/events"
	"cinehub/internal/ledger"
	"cinehub/internal/models"
	"cinehub/internal/store"
	"cinehub/internal/utils"
)

const notPlaylistOwner = "You do not own this playlist"

type PlaylistService struct {
	board *board[models.Playlist, *models.Playlist]
	deps  Deps
}

func NewPlaylistService(playlists *store.Collection[models.Playlist], deps Deps) *PlaylistService {
	deps = deps.withDefaults()
	return &PlaylistService{
		board: newBoard[models.Playlist, *models.Playlist](playlists, "Playlist not found", deps),
		deps:  deps,
	}
}

type PlaylistFilter struct {
	Owner string
	Rank  bool
}

// List returns playlists in storage order (newest first), optionally
// filtered by owner name or ranked by score.
func (s *PlaylistService) List(ctx context.Context, f PlaylistFilter) ([]models.Playlist, error) {
	items, err := s.board.all(ctx)
	if err != nil {
		return nil, err
	}
	if f.Owner != "" {
		filtered := items[:0]
		for _, p := range items {
			if p.Owner == f.Owner {
				filtered = append(filtered, p)
			}
		}
		items = filtered
	}
	if f.Rank {
		items = s.board.rank(items)
	}
	return items, nil
}

func (s *PlaylistService) Get(ctx context.Context, id string) (models.Playlist, error) {
	return s.board.get(ctx, id)
}

type CreatePlaylistInput struct {
	Name  string
	Desc  string
	Owner string
}

func (s *PlaylistService) Create(ctx context.Context, caller models.CallerIdentity, in CreatePlaylistInput) (models.Playlist, error) {
	name := utils.StripHTML(in.Name)
	if name == "" {
		return models.Playlist{}, apperr.Validation("Playlist name required")
	}
	if !caller.Authenticated() {
		return models.Playlist{}, apperr.Unauthorized("Sign in to create playlists")
	}
	owner := utils.StripHTML(in.Owner)
	if owner == "" {
		owner = caller.Username
	}
	if owner == "" {
		owner = "Guest"
	}

	p := models.Playlist{
		ID:        s.deps.NewID(),
		Name:      name,
		Desc:      utils.StripHTML(in.Desc),
		Owner:     owner,
		OwnerUID:  caller.UserUID,
		Tally:     models.Tally{Voters: map[string]models.VoteValue{}},
		Comments:  []models.Comment{},
		Movies:    []models.PlaylistMovie{},
		CreatedAt: s.deps.Now(),
	}
	if err := s.board.prepend(ctx, p); err != nil {
		return models.Playlist{}, err
	}
	s.board.emit(events.Event{Type: events.EventCreated, EntityID: p.ID, UserUID: caller.UserUID})
	return p, nil
}

// Rename changes the playlist name. A blank name leaves it unchanged.
func (s *PlaylistService) Rename(ctx context.Context, caller models.CallerIdentity, id, name string) (models.Playlist, error) {
	if !caller.Authenticated() {
		return models.Playlist{}, apperr.Unauthorized("Sign in first")
	}
	name = utils.StripHTML(name)
	var updated models.Playlist
	err := s.board.mutate(ctx, id, func(p *models.Playlist) error {
		if err := ledger.RequireOwner(p, caller, notPlaylistOwner); err != nil {
			return err
		}
		if name != "" {
			p.Name = name
		}
		updated = *p
		return nil
	})
	return updated, err
}

func (s *PlaylistService) Delete(ctx context.Context, caller models.CallerIdentity, id string) error {
	return s.board.remove(ctx, caller, id, notPlaylistOwner)
}

func (s *PlaylistService) Vote(ctx context.Context, caller models.CallerIdentity, id string, value models.VoteValue) (ledger.VoteResult, error) {
	_, res, err := s.board.vote(ctx, caller, id, value)
	return res, err
}

func (s *PlaylistService) Comments(ctx context.Context, id string, top bool) ([]models.Comment, error) {
	return s.board.comments(ctx, id, top)
}

func (s *PlaylistService) AddComment(ctx context.Context, caller models.CallerIdentity, id, username, text string) (models.Comment, error) {
	return s.board.addComment(ctx, caller, id, username, text)
}

func (s *PlaylistService) UpvoteComment(ctx context.Context, caller models.CallerIdentity, id, commentID string) (int, error) {
	return s.board.upvoteComment(ctx, caller, id, commentID)
}

func (s *PlaylistService) DeleteComment(ctx context.Context, caller models.CallerIdentity, id, commentID string) error {
	return s.board.deleteComment(ctx, caller, id, commentID)
}

// AddMovie appends a movie to the playlist. It reports false when the movie
// was already present.
func (s *PlaylistService) AddMovie(ctx context.Context, caller models.CallerIdentity, id string, m models.PlaylistMovie) (bool, error) {
	if !caller.Authenticated() {
		return false, apperr.Unauthorized("Sign in first")
	}
	m.MovieID = strings.TrimSpace(m.MovieID)
	if m.MovieID == "" {
		return false, apperr.Validation("movieId required")
	}
	m.MovieTitle = utils.StripHTML(m.MovieTitle)
	m.Genre = utils.StripHTML(m.Genre)
	m.Poster = strings.TrimSpace(m.Poster)

	added := false
	err := s.board.mutate(ctx, id, func(p *models.Playlist) error {
		if err := ledger.RequireOwner(p, caller, notPlaylistOwner); err != nil {
			return err
		}
		if p.HasMovie(m.MovieID) {
			added = false
			return store.ErrUnchanged
		}
		p.Movies = append(p.Movies, m)
		added = true
		return nil
	})
	return added, err
}

func (s *PlaylistService) RemoveMovie(ctx context.Context, caller models.CallerIdentity, id, movieID string) error {
	if !caller.Authenticated() {
		return apperr.Unauthorized("Sign in first")
	}
	return s.board.mutate(ctx, id, func(p *models.Playlist) error {
		if err := ledger.RequireOwner(p, caller, notPlaylistOwner); err != nil {
			return err
		}
		kept := p.Movies[:0]
		for _, m := range p.Movies {
			if m.MovieID != movieID {
				kept = append(kept, m)
			}
		}
		p.Movies = kept
		return nil
	})
}
