package services

import (
	"context"
	"fmt"
	"strings"

	"stocksocial/db"
	"stocksocial/models"
)

type UserService struct {
	store *db.Store
}

func NewUserService(store *db.Store) *UserService {
	return &UserService{store: store}
}

// CreateUser регистрирует username. Пароли и токены живут во внешнем сервисе.
func (s *UserService) CreateUser(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is empty", ErrInvalidArgument)
	}

	user := &models.User{Username: username}
	if err := s.store.Write(ctx).Create(user).Error; err != nil {
		if db.IsDuplicate(err) {
			return nil, fmt.Errorf("user %s already exists: %w", username, ErrConstraintViolation)
		}
		return nil, fmt.Errorf("failed to create user: %w", translateStoreError(err))
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.store.Read(ctx).Where("username = ?", username).Take(&user).Error
	if db.IsNotFound(err) {
		return nil, notFound("user " + username)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers ищет пользователей по префиксу username
func (s *UserService) SearchUsers(ctx context.Context, prefix string, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users := []models.User{}
	err := s.store.Read(ctx).
		Where(`username LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("username").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.store.Read(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
