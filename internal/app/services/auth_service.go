package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mvill/rosterbase/internal/app/models"
	"github.com/mvill/rosterbase/internal/app/models/dto"
	"github.com/mvill/rosterbase/internal/app/repositories"
	"github.com/mvill/rosterbase/internal/pkg/apperrors"
	"github.com/mvill/rosterbase/internal/pkg/auth"
	"github.com/mvill/rosterbase/internal/pkg/validation"
)

// AuthService handles administrator authentication and account management
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, userID int64, req dto.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, userID int64) error
}

type authService struct {
	userRepo   repositories.IUserRepository
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new auth service instance
func NewAuthService(userRepo repositories.IUserRepository, jwtService *auth.JWTService, logger zerolog.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Register creates a new administrator account and issues a session token
func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	if !validation.IsValidUsername(req.Username) {
		return nil, apperrors.NewValidationError("username must be 3-50 characters of letters, digits, dot, underscore or hyphen")
	}
	if len(req.Password) < validation.PasswordMinLength {
		return nil, apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", validation.PasswordMinLength))
	}
	if !models.ValidRole(req.Role) {
		return nil, apperrors.NewValidationError("role must be SUPER_ADMIN or ADMIN")
	}

	exists, err := s.userRepo.UsernameExists(ctx, req.Username, 0)
	if err != nil {
		return nil, fmt.Errorf("error checking username: %w", err)
	}
	if exists {
		return nil, apperrors.ErrUsernameAlreadyExists
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Password: hashed,
		Name:     req.Name,
		Role:     req.Role,
	}

	id, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	user.ID = id

	s.logger.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("Administrator registered")

	return s.issueToken(user)
}

// Login verifies credentials and issues a session token
func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issueToken(user)
}

func (s *authService) issueToken(user *models.User) (*dto.AuthResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		},
		User: user,
	}, nil
}

// ListUsers retrieves all administrator accounts
func (s *authService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

// UpdateUser applies a field-level merge to an administrator account
func (s *authService) UpdateUser(ctx context.Context, userID int64, req dto.UpdateUserRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if !validation.IsValidUsername(*req.Username) {
			return nil, apperrors.NewValidationError("username must be 3-50 characters of letters, digits, dot, underscore or hyphen")
		}
		taken, err := s.userRepo.UsernameExists(ctx, *req.Username, userID)
		if err != nil {
			return nil, fmt.Errorf("error checking username: %w", err)
		}
		if taken {
			return nil, apperrors.ErrUsernameAlreadyExists
		}
		user.Username = *req.Username
	}

	if req.Password != nil {
		if len(*req.Password) < validation.PasswordMinLength {
			return nil, apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", validation.PasswordMinLength))
		}
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		user.Password = hashed
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return nil, apperrors.NewValidationError("role must be SUPER_ADMIN or ADMIN")
		}
		user.Role = *req.Role
	}
	if req.ProfileImage != nil {
		user.ProfileImage = *req.ProfileImage
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	return user, nil
}

// DeleteUser removes an administrator account
func (s *authService) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("error deleting user: %w", err)
	}
	return nil
}
