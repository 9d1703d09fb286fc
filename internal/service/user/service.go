package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/natededev/de-commerce/internal/domain"
	userrepo "github.com/natededev/de-commerce/internal/repository/user"
)

// ErrWrongPassword is returned by ChangePassword when the current password
// does not match.
var ErrWrongPassword = errors.New("current password is incorrect")

const (
	passwordMin = 6
	nameMin     = 2
)

type tokenIssuer interface {
	Issue(u domain.User) (string, time.Time, error)
	TTL() time.Duration
}

// Service handles registration, login and profile updates.
type Service struct {
	repo       userrepo.Repository
	tokens     tokenIssuer
	bcryptCost int
}

// New creates a Service. tokens may be nil when the server only verifies
// externally issued tokens; Login then fails.
func New(repo userrepo.Repository, tokens tokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens, bcryptCost: bcrypt.DefaultCost}
}

// RegisterInput captures fields expected by the register endpoint.
type RegisterInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// Session is a successful login.
type Session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
}

// ProfileInput carries optional profile updates.
type ProfileInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Register creates a USER account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Create(ctx, domain.User{Email: email, Name: name, Role: domain.RoleUser, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrAlreadyExists)
		}
		return nil, err
	}
	return u, nil
}

// Login validates credentials and returns the user with a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if s.tokens == nil {
		return nil, errors.New("token signing not configured")
	}
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	token, _, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, ExpiresIn: int(s.tokens.TTL().Seconds())}, nil
}

// Get returns the user with id.
func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile changes name and/or email; nil fields keep their value.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*domain.User, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, email := current.Name, current.Email
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
	}
	if in.Email != nil {
		if email, err = normalizeEmail(*in.Email); err != nil {
			return nil, err
		}
	}
	return s.repo.Update(ctx, id, name, email)
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return domain.Invalid("currentPassword", ErrWrongPassword.Error())
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, hash)
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.Invalid("email", "email required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("email", "please provide a valid email")
	}
	return email, nil
}

func validatePassword(p string) error {
	if utf8.RuneCountInString(p) < passwordMin {
		return domain.Invalid("password", fmt.Sprintf("password must be at least %d characters long", passwordMin))
	}
	return nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < nameMin {
		return domain.Invalid("name", fmt.Sprintf("name must be at least %d characters long", nameMin))
	}
	return nil
}
