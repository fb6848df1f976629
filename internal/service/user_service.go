package service

import (
	"context"
	"fmt"
	"strings"

	"quill/internal/models"
	"quill/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
}

type CreateStaffInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateStaff creates a back-office user with a bcrypt-hashed password.
func (s *UserService) CreateStaff(ctx context.Context, in CreateStaffInput) (*models.User, error) {
	if len(in.Password) < 8 {
		return nil, models.NewValidationError("password must be at least 8 characters")
	}
	user := &models.User{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		IsStaff:   true,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user.Password = string(hash)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create staff user: %w", err)
	}
	return user, nil
}

// Authenticate returns the staff user matching the credentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("invalid credentials")
	}
	if !user.IsStaff {
		return nil, models.NewForbiddenError("staff access required")
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// DeleteUser removes a user. The storage integrity error raised for a user
// who still authors posts is returned unchanged.
func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	return s.userRepo.Delete(ctx, id)
}
