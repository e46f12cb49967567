package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayushmap/ayushmap/internal/platform/auth"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt rejects longer input
	maxUsernameLen = 150
	maxOrgLen      = 255
	maxEmailLen    = 254
)

type Service struct {
	repo        Repository
	tokens      *auth.TokenIssuer
	revocations auth.RevocationStore
	logger      zerolog.Logger
	bcryptCost  int
}

func NewService(repo Repository, tokens *auth.TokenIssuer, revocations auth.RevocationStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// Register validates and stores a new account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	verr := &ValidationError{}
	if email == "" {
		verr.add("email", "This field is required.")
	} else if len(email) > maxEmailLen {
		verr.add("email", fmt.Sprintf("Ensure this field has no more than %d characters.", maxEmailLen))
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		verr.add("email", "Enter a valid email address.")
	}
	if username == "" {
		verr.add("username", "This field is required.")
	} else if utf8.RuneCountInString(username) > maxUsernameLen {
		verr.add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLen))
	}
	if len(req.Password) < minPasswordLen {
		verr.add("password", fmt.Sprintf("Ensure this field has at least %d characters.", minPasswordLen))
	} else if len(req.Password) > maxPasswordLen {
		verr.add("password", fmt.Sprintf("Ensure this field has no more than %d bytes.", maxPasswordLen))
	}
	var org *string
	if req.Organization != nil {
		o := strings.TrimSpace(*req.Organization)
		if utf8.RuneCountInString(o) > maxOrgLen {
			verr.add("organization", fmt.Sprintf("Ensure this field has no more than %d characters.", maxOrgLen))
		} else if o != "" {
			org = &o
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Email: email, Username: username, Organization: org, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, &ValidationError{Fields: map[string][]string{"email": {"A user with this email already exists."}}}
		}
		return nil, err
	}

	s.logger.Info().Str("user_id", u.ID.String()).Msg("user registered")
	return u, nil
}

// Login checks credentials and issues an access/refresh pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*auth.TokenPair, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.tokens.IssuePair(u.ID.String(), u.Email)
}

// Refresh exchanges a live refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, err := s.verifyRefresh(ctx, refresh)
	if err != nil {
		return "", err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: bad subject", auth.ErrInvalidToken)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%w: unknown user", auth.ErrInvalidToken)
		}
		return "", err
	}
	return s.tokens.IssueAccess(claims)
}

// Logout revokes a refresh token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, refresh string) error {
	claims, err := s.verifyRefresh(ctx, refresh)
	if err != nil {
		return err
	}
	exp := time.Now()
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, exp); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", claims.Subject).Msg("refresh token revoked")
	return nil
}

func (s *Service) verifyRefresh(ctx context.Context, refresh string) (*auth.Claims, error) {
	claims, err := s.tokens.ParseRefresh(strings.TrimSpace(refresh))
	if err != nil {
		return nil, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, auth.ErrTokenRevoked
	}
	return claims, nil
}
