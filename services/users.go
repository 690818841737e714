package services

import (
	"context"

	"elms-backend/models"
	"elms-backend/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService is the read-only user directory.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) List(ctx context.Context, policy scope.Policy, role models.Role) ([]models.User, error) {
	q := s.db.WithContext(ctx).Scopes(policy.Scope(scope.Users))
	if role != "" {
		q = q.Where("users.role = ?", role)
	}
	var users []models.User
	if err := q.Order("users.username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, policy scope.Policy, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Users)).
		First(&user, "users.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
