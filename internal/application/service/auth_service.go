package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/pkg/utils"
)

// AuthService verifies credentials and bearer tokens
type AuthService interface {
	Login(ctx context.Context, email, password string) (*port.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*entity.User, error)
	Register(ctx context.Context, email, name, password string, role entity.Role) (*entity.User, error)
}

type authServiceImpl struct {
	userRepo port.UserRepository
	hasher   port.PasswordHasher
	issuer   port.TokenIssuer
	verifier port.TokenVerifier
	logger   Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo port.UserRepository,
	hasher port.PasswordHasher,
	issuer port.TokenIssuer,
	verifier port.TokenVerifier,
	logger Logger,
) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		hasher:   hasher,
		issuer:   issuer,
		verifier: verifier,
		logger:   logger,
	}
}

// Login checks the password and issues a token for the user
func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*port.LoginResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fail(port.ErrBadRequest, "Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to look up user", "error", err, "email", email)
		return nil, err
	}
	if user == nil || s.hasher.Compare(user.PasswordHash, password) != nil {
		s.logger.Info("Login rejected", "email", email)
		return nil, fail(port.ErrUnauthorized, "Invalid credentials")
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		s.logger.Error("Failed to issue token", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role)
	return &port.LoginResult{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to its user
func (s *authServiceImpl) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, fail(port.ErrUnauthorized, "Invalid or expired token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		s.logger.Error("Failed to load token subject", "error", err, "user_id", claims.Subject)
		return nil, err
	}
	if user == nil {
		return nil, fail(port.ErrUnauthorized, "Unknown user")
	}
	return user, nil
}

// Register creates a user with a hashed password
func (s *authServiceImpl) Register(ctx context.Context, email, name, password string, role entity.Role) (*entity.User, error) {
	email = utils.NormalizeEmail(email)
	switch {
	case email == "":
		return nil, fail(port.ErrBadRequest, "Email is required")
	case utils.ValidateEmail(email) != nil:
		return nil, fail(port.ErrBadRequest, "Email %s is not valid", email)
	case password == "":
		return nil, fail(port.ErrBadRequest, "Password is required")
	case role != entity.RoleRequester && role != entity.RoleReviewer:
		return nil, fail(port.ErrBadRequest, "Role must be requester or reviewer")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, port.ErrConflict) {
			return nil, fail(port.ErrConflict, "A user with email %s already exists", email)
		}
		s.logger.Error("Failed to create user", "error", err, "email", email)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "role", role)
	return user, nil
}
