package services

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"cinehub/internal/apperr"
	"cinehub/internal/events"
	"cinehub/internal/models"
	"cinehub/internal/store"
	"cinehub/internal/utils"
)

const notThreadOwner = "You do not own this thread"

// ForumService manages forum movie boards and the threads posted under them.
type ForumService struct {
	movies  *store.Collection[models.ForumMovie]
	threads *board[models.ForumThread, *models.ForumThread]
	deps    Deps
}

func NewForumService(movies *store.Collection[models.ForumMovie], threads *store.Collection[models.ForumThread], deps Deps) *ForumService {
	deps = deps.withDefaults()
	return &ForumService{
		movies:  movies,
		threads: newBoard[models.ForumThread, *models.ForumThread](threads, "Thread not found", deps),
		deps:    deps,
	}
}

// Movies lists forum movies, newest first, with their thread counts.
func (s *ForumService) Movies(ctx context.Context) ([]models.ForumMovieSummary, error) {
	movies, err := s.movies.All(ctx)
	if err != nil {
		return nil, err
	}
	threads, err := s.threads.all(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(movies))
	for _, t := range threads {
		counts[t.MovieID]++
	}

	out := make([]models.ForumMovieSummary, 0, len(movies))
	for _, m := range movies {
		out = append(out, models.ForumMovieSummary{ForumMovie: m, ThreadCount: counts[m.MovieID]})
	}
	return out, nil
}

type AddForumMovieInput struct {
	MovieID    string
	MovieTitle string
	Poster     string
	Genre      string
	Username   string
}

// AddMovie opens a board for a movie. Adding a movie that already has a board
// returns the existing one and false.
func (s *ForumService) AddMovie(ctx context.Context, caller models.CallerIdentity, in AddForumMovieInput) (models.ForumMovie, bool, error) {
	movieID := strings.TrimSpace(in.MovieID)
	title := utils.StripHTML(in.MovieTitle)
	if movieID == "" || title == "" {
		return models.ForumMovie{}, false, apperr.Validation("movieId and movieTitle required")
	}
	if !caller.Authenticated() {
		return models.ForumMovie{}, false, apperr.Unauthorized("Sign in to add movies")
	}
	addedBy := utils.StripHTML(in.Username)
	if addedBy == "" {
		addedBy = caller.Username
	}
	if addedBy == "" {
		addedBy = "User"
	}
	m := models.ForumMovie{
		MovieID:    movieID,
		MovieTitle: title,
		Poster:     strings.TrimSpace(in.Poster),
		Genre:      utils.StripHTML(in.Genre),
		AddedBy:    addedBy,
		AddedByUID: caller.UserUID,
		CreatedAt:  s.deps.Now(),
	}

	created := false
	err := s.movies.Update(ctx, func(items *[]models.ForumMovie) error {
		for _, existing := range *items {
			if existing.MovieID == movieID {
				m, created = existing, false
				return store.ErrUnchanged
			}
		}
		*items = slices.Insert(*items, 0, m)
		created = true
		return nil
	})
	if err != nil {
		return models.ForumMovie{}, false, err
	}
	if created {
		s.deps.Notifier.Enqueue(events.Event{
			Type:       events.EventCreated,
			Collection: s.movies.Name(),
			EntityID:   movieID,
			UserUID:    caller.UserUID,
			Timestamp:  s.deps.Now(),
		})
	}
	return m, created, nil
}

type ThreadFilter struct {
	MovieID string
	Rank    bool
}

// Threads lists threads with their comment counts. Without Rank the order is
// score descending with storage order kept among ties.
func (s *ForumService) Threads(ctx context.Context, f ThreadFilter) ([]models.ThreadSummary, error) {
	items, err := s.threads.all(ctx)
	if err != nil {
		return nil, err
	}
	if f.MovieID != "" {
		items = slices.DeleteFunc(items, func(t models.ForumThread) bool {
			return t.MovieID != f.MovieID
		})
	}
	if f.Rank {
		items = s.threads.rank(items)
	} else {
		slices.SortStableFunc(items, func(a, b models.ForumThread) int {
			return cmp.Compare(b.Score, a.Score)
		})
	}

	out := make([]models.ThreadSummary, len(items))
	for i := range items {
		out[i] = models.ThreadSummary{ForumThread: &items[i], CommentCount: len(items[i].Comments)}
	}
	return out, nil
}

// Thread returns a thread with its description rendered to sanitized HTML.
func (s *ForumService) Thread(ctx context.Context, id string) (models.ThreadDetail, error) {
	t, err := s.threads.get(ctx, id)
	if err != nil {
		return models.ThreadDetail{}, err
	}
	return models.ThreadDetail{ForumThread: &t, DescriptionHTML: utils.RenderMarkdown(t.Description)}, nil
}

type CreateThreadInput struct {
	MovieID     string
	Title       string
	Description string
	Image       string
	Username    string
}

func (s *ForumService) CreateThread(ctx context.Context, caller models.CallerIdentity, in CreateThreadInput) (models.ForumThread, error) {
	movieID := strings.TrimSpace(in.MovieID)
	title := utils.StripHTML(in.Title)
	desc := strings.TrimSpace(in.Description)
	if movieID == "" || title == "" || desc == "" {
		return models.ForumThread{}, apperr.Validation("movieId, title, and description required")
	}
	if !caller.Authenticated() {
		return models.ForumThread{}, apperr.Unauthorized("Sign in to post threads")
	}
	username := utils.StripHTML(in.Username)
	if username == "" {
		username = caller.Username
	}
	if username == "" {
		username = "User"
	}

	t := models.ForumThread{
		ID:          s.deps.NewID(),
		MovieID:     movieID,
		Title:       title,
		Description: desc,
		Image:       strings.TrimSpace(in.Image),
		Username:    username,
		UserUID:     caller.UserUID,
		Tally:       models.Tally{Voters: map[string]models.VoteValue{}},
		Comments:    []models.Comment{},
		CreatedAt:   s.deps.Now(),
	}
	if err := s.threads.prepend(ctx, t); err != nil {
		return models.ForumThread{}, err
	}
	s.threads.emit(events.Event{Type: events.EventCreated, EntityID: t.ID, UserUID: caller.UserUID})
	return t, nil
}

// VoteThread applies caller's vote and returns the thread as saved.
func (s *ForumService) VoteThread(ctx context.Context, caller models.CallerIdentity, id string, value models.VoteValue) (models.ForumThread, error) {
	t, _, err := s.threads.vote(ctx, caller, id, value)
	return t, err
}

func (s *ForumService) DeleteThread(ctx context.Context, caller models.CallerIdentity, id string) error {
	return s.threads.remove(ctx, caller, id, notThreadOwner)
}

func (s *ForumService) Comments(ctx context.Context, id string, top bool) ([]models.Comment, error) {
	return s.threads.comments(ctx, id, top)
}

func (s *ForumService) AddComment(ctx context.Context, caller models.CallerIdentity, id, username, text string) (models.Comment, error) {
	return s.threads.addComment(ctx, caller, id, username, text)
}

func (s *ForumService) UpvoteComment(ctx context.Context, caller models.CallerIdentity, id, commentID string) (int, error) {
	return s.threads.upvoteComment(ctx, caller, id, commentID)
}

func (s *ForumService) DeleteComment(ctx context.Context, caller models.CallerIdentity, id, commentID string) error {
	return s.threads.deleteComment(ctx, caller, id, commentID)
}
