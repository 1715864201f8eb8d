// Package users handles signup, login and the user listing.
package users

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"productcatalog/internal/apperr"
	"productcatalog/internal/auth"
	"productcatalog/internal/models"
	"productcatalog/internal/store"
)

// SignupInput is the signup form.
type SignupInput struct {
	Name     string `json:"name" form:"name" validate:"required"`
	Company  string `json:"company" form:"company" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Session is what signup and login hand back to the client.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// View is a user as listed publicly, with its product ids and no password.
type View struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Company  string    `json:"company"`
	Email    string    `json:"email"`
	Created  time.Time `json:"created"`
	Products []string  `json:"products"`
}

type Service struct {
	store  *store.Store
	tokens *auth.Tokens
	log    *zap.Logger
	v      *validator.Validate
	now    func() time.Time
}

func NewService(st *store.Store, tokens *auth.Tokens, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &Service{
		store:  st,
		tokens: tokens,
		log:    log.Named("users"),
		v:      v,
		now:    time.Now,
	}
}

// Signup registers a new user and signs them in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, apperr.Wrap(apperr.KindInvalidInput, err, "Invalid inputs passed, please check your data.")
		}
		names := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			names = append(names, fe.Field())
		}
		return nil, apperr.Invalid("Invalid inputs passed, please check your data.", names...)
	}

	taken, err := s.store.EmailTaken(ctx, in.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Signing up failed, please try again later.")
	}
	if taken {
		return nil, apperr.New(apperr.KindConflict, "User exists already, please login instead.")
	}

	hash, err := models.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Could not create user, please try again.")
	}

	u := &models.User{
		Name:         in.Name,
		Company:      in.Company,
		Email:        in.Email,
		PasswordHash: hash,
		Created:      s.now(),
		ProductRefs:  []models.ProductRef{},
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "User exists already, please login instead.")
		}
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Signing up failed, please try again later.")
	}
	s.log.Info("user signed up", zap.String("user_id", u.ID))

	return s.session(u, "Signing up failed, please try again later.")
}

// Login checks the credentials and issues a fresh token. An unknown email
// and a wrong password answer with different statuses.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.store.UserByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(apperr.KindUnauthenticated, err, "Invalid credentials, could not log you in.").
				WithStatus(http.StatusForbidden)
		}
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Logging in failed, please try again later.")
	}
	if !models.CheckPassword(u.PasswordHash, in.Password) {
		return nil, apperr.New(apperr.KindUnauthenticated, "Invalid credentials, could not log you in.")
	}
	return s.session(u, "Logging in failed, please try again later.")
}

// List returns every user without password hashes.
func (s *Service) List(ctx context.Context) ([]View, error) {
	list, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Fetching users failed, please try again later.")
	}
	out := make([]View, 0, len(list))
	for i := range list {
		u := &list[i]
		out = append(out, View{
			ID:       u.ID,
			Name:     u.Name,
			Company:  u.Company,
			Email:    u.Email,
			Created:  u.Created,
			Products: u.ProductIDs(),
		})
	}
	return out, nil
}

func (s *Service) session(u *models.User, failMsg string) (*Session, error) {
	token, err := s.tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, failMsg)
	}
	return &Session{UserID: u.ID, Email: u.Email, Token: token}, nil
}
