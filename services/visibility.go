package services

import (
	"context"
	"fmt"

	"stocksocial/db"
	"stocksocial/models"

	"gorm.io/gorm"
)

// VisibilityGate решает, кто видит список и его отзывы. Ничего не меняет.
// Доступом к приватному списку служит строка в reviews, независимо от текста и рейтинга.
type VisibilityGate struct {
	store *db.Store
}

func NewVisibilityGate(store *db.Store) *VisibilityGate {
	return &VisibilityGate{store: store}
}

// CanView - само решение. granted: есть ли review-строка на requester.
func CanView(owner string, listType models.ListType, requester string, granted bool) bool {
	switch listType {
	case models.ListPublic:
		return true
	case models.ListPrivate:
		return requester == owner || granted
	case models.ListPortfolio:
		return requester == owner
	}
	return false
}

// CanView проверяет доступ, обращаясь к хранилищу только когда нужен grant
func (g *VisibilityGate) CanView(ctx context.Context, owner, listName string, listType models.ListType, requester string) (bool, error) {
	if listType != models.ListPrivate || requester == owner {
		return CanView(owner, listType, requester, false), nil
	}
	granted, err := hasGrant(g.store.Read(ctx), owner, listName, requester)
	if err != nil {
		return false, err
	}
	return CanView(owner, listType, requester, granted), nil
}

// Authorize возвращает список, если requester может его видеть
func (g *VisibilityGate) Authorize(ctx context.Context, owner, listName, requester string) (*models.StockList, error) {
	list, err := findList(g.store.Read(ctx), owner, listName)
	if err != nil {
		return nil, err
	}
	ok, err := g.CanView(ctx, owner, listName, list.ListType, requester)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s cannot view %s/%s: %w", requester, owner, listName, ErrUnauthorized)
	}
	return list, nil
}

// GetReviews: владелец и любой зритель публичного списка видят все отзывы,
// остальные - только свой (пусто, если его нет). Чужие отзывы приватного списка не перечисляются.
func (g *VisibilityGate) GetReviews(ctx context.Context, owner, listName, requester string) ([]models.Review, error) {
	list, err := findList(g.store.Read(ctx), owner, listName)
	if err != nil {
		return nil, err
	}

	reviews := []models.Review{}
	if list.IsPortfolio() {
		return reviews, nil
	}

	query := g.store.Read(ctx).Where("owner_username = ? AND list_name = ?", owner, listName)
	if list.ListType != models.ListPublic && requester != owner {
		query = query.Where("reviewer_username = ?", requester)
	}
	if err := query.Order("reviewer_username").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	return reviews, nil
}

// GetSharedStockLists - приватные списки, которыми поделились с requester
func (g *VisibilityGate) GetSharedStockLists(ctx context.Context, requester string) ([]models.StockList, error) {
	lists := []models.StockList{}
	err := g.store.Read(ctx).
		Model(&models.StockList{}).
		Select("stock_lists.*").
		Joins("JOIN reviews ON reviews.owner_username = stock_lists.username AND reviews.list_name = stock_lists.list_name").
		Where("reviews.reviewer_username = ? AND stock_lists.list_type = ?", requester, models.ListPrivate).
		Order("stock_lists.username, stock_lists.list_name").
		Find(&lists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get shared stock lists: %w", err)
	}
	return lists, nil
}

func hasGrant(tx *gorm.DB, owner, listName, reviewer string) (bool, error) {
	var count int64
	err := tx.Model(&models.Review{}).
		Where("owner_username = ? AND list_name = ? AND reviewer_username = ?", owner, listName, reviewer).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check share grant: %w", err)
	}
	return count > 0, nil
}

func findList(tx *gorm.DB, owner, listName string) (*models.StockList, error) {
	var list models.StockList
	err := tx.Where("username = ? AND list_name = ?", owner, listName).Take(&list).Error
	if db.IsNotFound(err) {
		return nil, notFound(fmt.Sprintf("stock list %s/%s", owner, listName))
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}
