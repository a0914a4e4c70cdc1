package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"stocksocial/config"
	"stocksocial/db"
	"stocksocial/models"

	"gorm.io/gorm"
)

// FriendService - граф друзей: заявки и производное от них отношение дружбы
type FriendService struct {
	store    *db.Store
	cooldown time.Duration
	now      func() time.Time
}

type FriendOption func(*FriendService)

// WithResendCooldown задаёт минимальную паузу между отказом и повторной заявкой
func WithResendCooldown(d time.Duration) FriendOption {
	return func(s *FriendService) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithClock подменяет часы (нужно тестам cooldown)
func WithClock(now func() time.Time) FriendOption {
	return func(s *FriendService) {
		s.now = now
	}
}

func NewFriendService(store *db.Store, opts ...FriendOption) *FriendService {
	s := &FriendService{
		store:    store,
		cooldown: config.DefaultResendCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cooldown - пауза перед повторной заявкой
func (s *FriendService) Cooldown() time.Duration {
	return s.cooldown
}

// SendFriendRequest создаёт заявку или переотправляет отклонённую после cooldown.
// Проверка существования здесь только для понятной ошибки: от гонки двух
// одновременных вставок защищает первичный ключ (sender, receiver).
func (s *FriendService) SendFriendRequest(ctx context.Context, sender, receiver string) (*models.FriendRequest, error) {
	now := s.now().UTC()
	var result models.FriendRequest

	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := requireUser(tx, receiver); err != nil {
			return err
		}

		var existing models.FriendRequest
		err := tx.Where("sender = ? AND receiver = ?", sender, receiver).Take(&existing).Error
		if db.IsNotFound(err) {
			result = models.FriendRequest{
				Sender:    sender,
				Receiver:  receiver,
				Status:    models.StatusPending,
				Timestamp: now,
			}
			return tx.Create(&result).Error
		}
		if err != nil {
			return err
		}

		if err := s.checkResend(existing, now); err != nil {
			return err
		}

		// Переход rejected -> pending только если статус не поменялся под нами
		res := tx.Model(&models.FriendRequest{}).
			Where("sender = ? AND receiver = ? AND status = ?", sender, receiver, models.StatusRejected).
			Updates(map[string]interface{}{"status": models.StatusPending, "timestamp": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDuplicateRequest
		}
		existing.Status = models.StatusPending
		existing.Timestamp = now
		result = existing
		return nil
	})
	if err != nil {
		if db.IsDuplicate(err) {
			return nil, ErrDuplicateRequest
		}
		return nil, translateStoreError(err)
	}
	return &result, nil
}

// AreFriends - есть ли принятая заявка в любую сторону
func (s *FriendService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := s.store.Read(ctx).Model(&models.FriendRequest{}).
		Where("((sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)) AND status = ?", a, b, b, a, models.StatusAccepted).
		Count(&count).Error
	if err != nil {
		return false, translateStoreError(err)
	}
	return count > 0, nil
}

// checkResend решает, можно ли переотправить существующую заявку
func (s *FriendService) checkResend(existing models.FriendRequest, now time.Time) error {
	switch existing.Status {
	case models.StatusRejected:
		if now.Sub(existing.Timestamp) < s.cooldown {
			return ErrCooldownActive
		}
		return nil
	case models.StatusPending, models.StatusAccepted:
		return ErrDuplicateRequest
	default:
		return fmt.Errorf("%w: unknown friend request status %q", ErrConstraintViolation, existing.Status)
	}
}

// AcceptFriendRequest подтверждает входящую заявку sender -> receiver
func (s *FriendService) AcceptFriendRequest(ctx context.Context, sender, receiver string) error {
	res := s.store.Write(ctx).Model(&models.FriendRequest{}).
		Where("sender = ? AND receiver = ? AND status = ?", sender, receiver, models.StatusPending).
		Update("status", models.StatusAccepted)
	if res.Error != nil {
		return fmt.Errorf("failed to accept friend request: %w", translateStoreError(res.Error))
	}
	if res.RowsAffected == 0 {
		return notFound(fmt.Sprintf("pending friend request %s -> %s", sender, receiver))
	}
	return nil
}

// RejectFriendRequest отклоняет заявку и обновляет timestamp - от него считается cooldown
func (s *FriendService) RejectFriendRequest(ctx context.Context, sender, receiver string) error {
	res := s.store.Write(ctx).Model(&models.FriendRequest{}).
		Where("sender = ? AND receiver = ? AND status = ?", sender, receiver, models.StatusPending).
		Updates(map[string]interface{}{"status": models.StatusRejected, "timestamp": s.now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("failed to reject friend request: %w", translateStoreError(res.Error))
	}
	if res.RowsAffected == 0 {
		return notFound(fmt.Sprintf("pending friend request %s -> %s", sender, receiver))
	}
	return nil
}

// DeleteFriendRequest удаляет заявку в любом направлении: отмена исходящей или удаление из друзей
func (s *FriendService) DeleteFriendRequest(ctx context.Context, userA, userB string) error {
	res := s.store.Write(ctx).Where(
		"(sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)",
		userA, userB, userB, userA,
	).Delete(&models.FriendRequest{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete friend request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(fmt.Sprintf("friend request between %s and %s", userA, userB))
	}
	log.Printf("Friend request between %s and %s deleted", userA, userB)
	return nil
}

// GetFriends возвращает друзей пользователя без повторов, по алфавиту
func (s *FriendService) GetFriends(ctx context.Context, username string) ([]string, error) {
	var rows []models.FriendRequest
	err := s.store.Read(ctx).
		Where("(sender = ? OR receiver = ?) AND status = ?", username, username, models.StatusAccepted).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	friends := make([]string, 0, len(rows))
	for _, r := range rows {
		friend := r.Receiver
		if r.Receiver == username {
			friend = r.Sender
		}
		if _, ok := seen[friend]; ok {
			continue
		}
		seen[friend] = struct{}{}
		friends = append(friends, friend)
	}
	sort.Strings(friends)
	return friends, nil
}

// GetIncomingRequests - входящие заявки в ожидании
func (s *FriendService) GetIncomingRequests(ctx context.Context, username string) ([]models.FriendRequest, error) {
	return s.findRequests(ctx, "receiver = ? AND status = ?", username, models.StatusPending)
}

// GetOutgoingRequests - исходящие заявки в ожидании
func (s *FriendService) GetOutgoingRequests(ctx context.Context, username string) ([]models.FriendRequest, error) {
	return s.findRequests(ctx, "sender = ? AND status = ?", username, models.StatusPending)
}

// GetRejectedRequests - отклонённые исходящие заявки и когда их можно переотправить
func (s *FriendService) GetRejectedRequests(ctx context.Context, username string) ([]models.RejectedRequest, error) {
	requests, err := s.findRequests(ctx, "sender = ? AND status = ?", username, models.StatusRejected)
	if err != nil {
		return nil, err
	}
	rejected := make([]models.RejectedRequest, 0, len(requests))
	for _, r := range requests {
		rejected = append(rejected, models.RejectedRequest{
			FriendRequest:     r,
			ResendAvailableAt: r.Timestamp.Add(s.cooldown),
		})
	}
	return rejected, nil
}

func (s *FriendService) findRequests(ctx context.Context, query string, args ...interface{}) ([]models.FriendRequest, error) {
	requests := []models.FriendRequest{}
	err := s.store.Read(ctx).Where(query, args...).Order("timestamp DESC").Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get friend requests: %w", err)
	}
	return requests, nil
}

func requireUser(tx *gorm.DB, username string) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("error checking user: %w", err)
	}
	if count == 0 {
		return notFound("user " + username)
	}
	return nil
}
