package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gosafar/travel-api/internal/logging"
	"github.com/gosafar/travel-api/internal/storage"
	"github.com/gosafar/travel-api/internal/user"
)

var (
	ErrFieldsRequired        = errors.New("email, password and phone number are required")
	ErrInvalidEmail          = errors.New("email is not valid")
	ErrInvalidPhone          = errors.New("phone number is not valid")
	ErrCredentialsRequired   = errors.New("password and either email or phone are required")
	ErrInvalidCredentials    = errors.New("invalid email, phone or password")
	ErrProfileFieldsRequired = errors.New("first name, last name and phone number are required")
	ErrFileRequired          = errors.New("profile image file is required")
)

// phonePattern accepts Indian mobile numbers with an optional +91/91 prefix.
var phonePattern = regexp.MustCompile(`^(\+91|91)?[6-9][0-9]{9}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// "in_phone" mirrors the format the signup form enforces client-side.
	if err := v.RegisterValidation("in_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

func validEmail(email string) bool {
	return validate.Var(email, "email") == nil
}

func validPhone(phone string) bool {
	return validate.Var(phone, "in_phone") == nil
}

// IdentifierKind tags which credential field a login identifier came from.
type IdentifierKind int

const (
	IdentifierEmail IdentifierKind = iota
	IdentifierPhone
)

// Identifier is the login identifier resolved once at the service boundary:
// either an email or a phone number, never both.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// resolveIdentifier picks and validates the login identifier. Email wins when
// both are supplied.
func resolveIdentifier(email, phone string) (Identifier, error) {
	switch {
	case email != "":
		if !validEmail(email) {
			return Identifier{}, ErrInvalidEmail
		}
		return Identifier{Kind: IdentifierEmail, Value: email}, nil
	case phone != "":
		if !validPhone(phone) {
			return Identifier{}, ErrInvalidPhone
		}
		return Identifier{Kind: IdentifierPhone, Value: phone}, nil
	default:
		return Identifier{}, ErrCredentialsRequired
	}
}

// Service handles authentication and profile business logic.
type Service struct {
	users    UserRepository
	tokens   TokenService
	images   storage.Store
	logger   *logging.Logger
	tokenTTL time.Duration
}

func NewService(
	users UserRepository,
	tokens TokenService,
	images storage.Store,
	logger *logging.Logger,
	tokenTTL time.Duration,
) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		images:   images,
		logger:   logger,
		tokenTTL: tokenTTL,
	}
}

// Signup creates a new identity record and issues a session token for it.
// Validation runs strictly before persistence: presence, then email format,
// then phone format.
func (s *Service) Signup(ctx context.Context, email, password, phone string) (*user.User, string, error) {
	if email == "" || password == "" || phone == "" {
		return nil, "", ErrFieldsRequired
	}
	if !validEmail(email) {
		return nil, "", ErrInvalidEmail
	}
	if !validPhone(phone) {
		return nil, "", ErrInvalidPhone
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, email, phone, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) || errors.Is(err, user.ErrDuplicatePhone) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.CreateToken(newUser.ID, newUser.Email, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Info("user signed up", "user_id", newUser.ID)

	return newUser, token, nil
}

// Login authenticates by email or phone plus password and issues a session
// token. A missing account and a wrong password are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, email, phone, password string) (*user.User, string, error) {
	if password == "" {
		return nil, "", ErrCredentialsRequired
	}

	identifier, err := resolveIdentifier(email, phone)
	if err != nil {
		return nil, "", err
	}

	var existing *user.User
	switch identifier.Kind {
	case IdentifierEmail:
		existing, err = s.users.GetByEmail(ctx, identifier.Value)
	case IdentifierPhone:
		existing, err = s.users.GetByPhone(ctx, identifier.Value)
	}
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existing.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.CreateToken(existing.ID, existing.Email, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create token: %w", err)
	}

	return existing, token, nil
}

// CurrentUser resolves the identity attached by the session middleware. The
// account may have been removed after the token was issued.
func (s *Service) CurrentUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateProfile persists the user's names and phone and marks the profile as
// set up.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, phone string) (*user.User, error) {
	if firstName == "" || lastName == "" || phone == "" {
		return nil, ErrProfileFieldsRequired
	}
	if !validPhone(phone) {
		return nil, ErrInvalidPhone
	}

	updated, err := s.users.UpdateProfile(ctx, id, firstName, lastName, phone)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrDuplicatePhone) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return updated, nil
}

// AttachImage stores an uploaded profile image and persists its path.
// Concurrent attaches for the same user are not serialized; the last write
// to the store wins.
func (s *Service) AttachImage(ctx context.Context, id uuid.UUID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	path, err := s.images.Save(ctx, filename, r, size, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	if _, err := s.users.UpdateImage(ctx, id, &path); err != nil {
		// The record was not updated, so the stored file is orphaned.
		if removeErr := s.images.Remove(ctx, path); removeErr != nil {
			s.logger.Warn("failed to clean up orphaned image", "path", path, "error", removeErr)
		}
		if errors.Is(err, user.ErrNotFound) {
			return "", user.ErrNotFound
		}
		return "", fmt.Errorf("failed to update image: %w", err)
	}

	return path, nil
}

// RemoveImage deletes the stored file (if any) and clears the image field.
// Removing when no image is set is a no-op success, and a file that is
// already gone from storage is tolerated.
func (s *Service) RemoveImage(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if u.Image != nil {
		if err := s.images.Remove(ctx, *u.Image); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("failed to remove image file: %w", err)
			}
			s.logger.Warn("image file already gone", "path", *u.Image, "user_id", id)
		}
	}

	if _, err := s.users.UpdateImage(ctx, id, nil); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to clear image: %w", err)
	}

	return nil
}
