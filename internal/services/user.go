package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"cinehub/internal/apperr"
	"cinehub/internal/models"
	"cinehub/internal/store"
	"cinehub/internal/utils"
)

const (
	defaultTier     = "Free"
	defaultLanguage = "en"
)

// UserService is the user registry behind sign-up, sign-in and profile edits.
type UserService struct {
	users *store.Collection[models.User]
	deps  Deps
}

func NewUserService(users *store.Collection[models.User], deps Deps) *UserService {
	return &UserService{users: users, deps: deps.withDefaults()}
}

type RegisterInput struct {
	Username     string
	UserEmail    string
	UserPassword string
	UserTier     string
	UserLanguage string
}

// Register creates a user with the next sequential uid. The returned user
// has no password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.UserEmail)
	if username == "" || email == "" || in.UserPassword == "" {
		return models.User{}, apperr.Validation("username, email, and password required")
	}

	hash, err := utils.HashPassword(in.UserPassword)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.KindInternal, "Could not register user", err)
	}

	var created models.User
	err = s.users.Update(ctx, func(items *[]models.User) error {
		var maxUID int64
		uids := make([]int64, 0, len(*items)+1)
		for i := range *items {
			u := &(*items)[i]
			if u.EmailMatches(email) {
				return apperr.Conflict("Email already registered")
			}
			maxUID = max(maxUID, u.UserUID)
			if u.UserUID != 0 {
				uids = append(uids, u.UserUID)
			}
		}

		created = models.User{
			Username:     username,
			UserUID:      maxUID + 1,
			UserEmail:    email,
			UserTier:     cmpOr(in.UserTier, defaultTier),
			UserLanguage: cmpOr(in.UserLanguage, defaultLanguage),
			AllUIDs:      append(uids, maxUID+1),
			Password:     hash,
		}
		*items = append(*items, created)
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	s.deps.Log.WithFields(logrus.Fields{"user_id": created.UserUID}).Info("user registered")
	return created.Public(), nil
}

// Authenticate checks the credentials and returns the user without its hash.
// Unknown emails and wrong passwords fail the same way.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, apperr.Validation("Email and password required")
	}
	users, err := s.users.All(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if !u.EmailMatches(email) {
			continue
		}
		if !utils.CheckPassword(u.Password, password) {
			break
		}
		return u.Public(), nil
	}
	return models.User{}, apperr.Unauthorized("Invalid credentials")
}

func (s *UserService) Get(ctx context.Context, uid int64) (models.User, error) {
	users, err := s.users.All(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if u.UserUID == uid {
			return u.Public(), nil
		}
	}
	return models.User{}, apperr.NotFound("User not found")
}

// ProfileUpdate holds the editable profile fields. Empty strings and nil
// slices keep the stored value. SearchCount and ViewCount are always
// written, so omitting them resets the counters to 0.
type ProfileUpdate struct {
	UserUID      int64
	Username     string
	UserEmail    string
	UserTier     string
	UserLanguage string
	SearchCount  int
	ViewCount    int
	AllUIDs      []int64
}

// Update edits the caller's own profile.
func (s *UserService) Update(ctx context.Context, caller models.CallerIdentity, in ProfileUpdate) (models.User, error) {
	if !caller.Authenticated() {
		return models.User{}, apperr.Unauthorized("Invalid token user")
	}
	if in.UserUID != 0 && in.UserUID != caller.UserUID {
		return models.User{}, apperr.Forbidden("Cannot update another user")
	}

	var updated models.User
	err := s.users.Update(ctx, func(items *[]models.User) error {
		for i := range *items {
			u := &(*items)[i]
			if u.UserUID != caller.UserUID {
				continue
			}
			if in.UserEmail != "" && !u.EmailMatches(in.UserEmail) {
				for _, other := range *items {
					if other.UserUID != u.UserUID && other.EmailMatches(in.UserEmail) {
						return apperr.Conflict("Email already registered")
					}
				}
			}
			u.Username = cmpOr(strings.TrimSpace(in.Username), u.Username)
			u.UserEmail = cmpOr(strings.TrimSpace(in.UserEmail), u.UserEmail)
			u.UserTier = cmpOr(in.UserTier, u.UserTier, defaultTier)
			u.UserLanguage = cmpOr(in.UserLanguage, u.UserLanguage, defaultLanguage)
			u.SearchCount = max(in.SearchCount, 0)
			u.ViewCount = max(in.ViewCount, 0)
			if in.AllUIDs != nil {
				u.AllUIDs = in.AllUIDs
			}
			updated = *u
			return nil
		}
		return apperr.NotFound("User not found")
	})
	if err != nil {
		return models.User{}, err
	}
	return updated.Public(), nil
}

// cmpOr returns the first non-blank value.
func cmpOr(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
