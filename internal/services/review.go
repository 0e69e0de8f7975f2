package services

import (
	"context"
	"slices"
	"strings"

	"cinehub/internal/models"
	"cinehub/internal/store"
	"cinehub/internal/utils"
)

const maxStars = 5

type ReviewService struct {
	reviews *store.Collection[models.Review]
	deps    Deps
}

func NewReviewService(reviews *store.Collection[models.Review], deps Deps) *ReviewService {
	return &ReviewService{reviews: reviews, deps: deps.withDefaults()}
}

// List returns reviews newest first, limited to one movie when movieID is set.
func (s *ReviewService) List(ctx context.Context, movieID string) ([]models.Review, error) {
	items, err := s.reviews.All(ctx)
	if err != nil {
		return nil, err
	}
	if movieID == "" {
		return items, nil
	}
	return slices.DeleteFunc(items, func(r models.Review) bool {
		return r.MovieID == nil || *r.MovieID != movieID
	}), nil
}

type CreateReviewInput struct {
	User       string
	Pfp        string
	MovieTitle string
	MovieID    string
	Stars      int
	Text       string
}

// Create stores a review at the top of the list. Reviews may be posted
// without signing in and are credited to "Guest" when no name is given.
func (s *ReviewService) Create(ctx context.Context, in CreateReviewInput) (models.Review, error) {
	r := models.Review{
		User:       utils.StripHTML(in.User),
		Pfp:        optional(strings.TrimSpace(in.Pfp)),
		MovieTitle: optional(utils.StripHTML(in.MovieTitle)),
		MovieID:    optional(strings.TrimSpace(in.MovieID)),
		Stars:      min(max(in.Stars, 0), maxStars),
		Text:       utils.StripHTML(in.Text),
		CreatedAt:  s.deps.Now(),
	}
	if r.User == "" {
		r.User = "Guest"
	}

	err := s.reviews.Update(ctx, func(items *[]models.Review) error {
		*items = slices.Insert(*items, 0, r)
		return nil
	})
	if err != nil {
		return models.Review{}, err
	}
	s.deps.Log.WithField("movie_id", in.MovieID).Debug("review saved")
	return r, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
