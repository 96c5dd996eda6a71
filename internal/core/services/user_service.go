package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"diglab-api/internal/adapters/persistence/models"
	"diglab-api/internal/adapters/persistence/repositories"
	"diglab-api/internal/core/domain"
	"diglab-api/internal/pkg/password"

	"gorm.io/gorm"
)

// ErrWeakPassword rejects passwords below the minimum length.
var ErrWeakPassword = errors.New("password must be at least 8 characters")

// UserService handles staff account administration
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateUserInput represents account provisioning input
type CreateUserInput struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	WorkerID   string `json:"workerId" validate:"required"`
	HprNumber  string `json:"hprNumber"`
	Profession string `json:"profession"`
	Password   string `json:"password"`
}

// CreateUserOutput carries the new account and, when generated here,
// its one-time temporary password.
type CreateUserOutput struct {
	User         *models.UserResponse `json:"user"`
	TempPassword string               `json:"tempPassword,omitempty"`
}

// CreateUser provisions a staff account. The worker ID doubles as the
// login username. When no initial password is given a temporary one is
// generated and returned exactly once.
func (s *UserService) CreateUser(ctx context.Context, input *CreateUserInput) (*CreateUserOutput, error) {
	// 1. Validate worker ID
	workerID := strings.TrimSpace(input.WorkerID)
	if workerID == "" {
		return nil, domain.ErrWorkerIDRequired
	}
	exists, err := s.userRepo.ExistsByWorkerID(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrWorkerIDExists
	}

	// 2. Settle the initial password
	plain := input.Password
	tempPassword := ""
	if plain == "" {
		plain, err = password.GenerateTemp()
		if err != nil {
			return nil, err
		}
		tempPassword = plain
	} else if !password.ValidatePassword(plain) {
		return nil, ErrWeakPassword
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return nil, err
	}

	// 3. Create the account
	user := &models.User{
		Username:     workerID,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		WorkerID:     workerID,
		HprNumber:    strings.TrimSpace(input.HprNumber),
		Profession:   models.ParseProfession(input.Profession),
		PasswordHash: hash,
		Role:         "user",
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrWorkerIDExists
		}
		return nil, err
	}

	log.Printf("✅ User created: %s (%s)", user.Username, user.Profession)

	return &CreateUserOutput{
		User:         user.ToResponse(),
		TempPassword: tempPassword,
	}, nil
}

// ListUsers returns staff accounts ordered by name.
func (s *UserService) ListUsers(ctx context.Context, offset, limit int) ([]*models.UserResponse, int64, error) {
	users, total, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*models.UserResponse, len(users))
	for i, u := range users {
		out[i] = u.ToResponse()
	}
	return out, total, nil
}

// ChangeOwnPassword lets a signed-in user rotate their own password
// after proving the current one.
func (s *UserService) ChangeOwnPassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	if !password.Verify(current, user.PasswordHash) {
		return domain.ErrWrongPassword
	}
	if !password.ValidatePassword(next) {
		return ErrWeakPassword
	}

	hash, err := password.Hash(next)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	log.Printf("✅ Password changed for user: %s", user.Username)
	return nil
}

// AdminResetPassword sets an account's password without proof of the
// old one. When newPassword is blank a temporary password is generated
// and returned exactly once; otherwise the returned string is empty.
func (s *UserService) AdminResetPassword(ctx context.Context, userID uint, newPassword string) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrUserNotFound
		}
		return "", err
	}

	plain := newPassword
	temp := ""
	if plain == "" {
		plain, err = password.GenerateTemp()
		if err != nil {
			return "", err
		}
		temp = plain
	} else if !password.ValidatePassword(plain) {
		return "", ErrWeakPassword
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return "", err
	}

	log.Printf("✅ Password reset for user: %s", user.Username)
	return temp, nil
}
