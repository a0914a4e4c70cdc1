package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"stocksocial/db"
	"stocksocial/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockListService - списки, позиции, шаринг и отзывы
type StockListService struct {
	store    *db.Store
	gate     *VisibilityGate
	events   EventPublisher
	matrices *CorrelationService
}

func NewStockListService(store *db.Store, gate *VisibilityGate, events EventPublisher, matrices *CorrelationService) *StockListService {
	if events == nil {
		events = NopPublisher{}
	}
	return &StockListService{
		store:    store,
		gate:     gate,
		events:   events,
		matrices: matrices,
	}
}

// CreateStockList создаёт публичный или приватный список без cash
func (s *StockListService) CreateStockList(ctx context.Context, owner, listName string, isPublic bool) (*models.StockList, error) {
	listType := models.ListPrivate
	if isPublic {
		listType = models.ListPublic
	}
	return s.createList(ctx, models.StockList{Username: owner, ListName: listName, ListType: listType})
}

// CreatePortfolio создаёт портфель с нулевым балансом
func (s *StockListService) CreatePortfolio(ctx context.Context, owner, listName string) (*models.StockList, error) {
	return s.createList(ctx, models.StockList{
		Username: owner,
		ListName: listName,
		ListType: models.ListPortfolio,
		Cash:     decimal.NewNullDecimal(decimal.Zero),
	})
}

func (s *StockListService) createList(ctx context.Context, list models.StockList) (*models.StockList, error) {
	list.ListName = strings.TrimSpace(list.ListName)
	if list.ListName == "" {
		return nil, fmt.Errorf("%w: list name is empty", ErrInvalidArgument)
	}

	if err := s.store.Write(ctx).Create(&list).Error; err != nil {
		if db.IsDuplicate(err) {
			return nil, fmt.Errorf("stock list %s/%s already exists: %w", list.Username, list.ListName, ErrConstraintViolation)
		}
		return nil, fmt.Errorf("failed to create stock list: %w", translateStoreError(err))
	}
	return &list, nil
}

// DeleteStockList удаляет список вместе с позициями, отзывами и корреляциями
func (s *StockListService) DeleteStockList(ctx context.Context, owner, listName string) error {
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		scope := "username = ? AND list_name = ?"
		if err := tx.Where("owner_username = ? AND list_name = ?", owner, listName).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where(scope, owner, listName).Delete(&models.StockListStock{}).Error; err != nil {
			return err
		}
		if err := tx.Where(scope, owner, listName).Delete(&models.CorrelationEntry{}).Error; err != nil {
			return err
		}
		res := tx.Where(scope, owner, listName).Delete(&models.StockList{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(fmt.Sprintf("stock list %s/%s", owner, listName))
		}
		return nil
	})
	if err != nil {
		return translateStoreError(err)
	}

	s.matrices.Invalidate(ctx, owner, listName)
	publish(ctx, s.events, StockListEvent{Type: EventListDeleted, Username: owner, ListName: listName})
	log.Printf("Stock list %s/%s deleted", owner, listName)
	return nil
}

// GetStockLists - непортфельные списки owner, которые видит requester
func (s *StockListService) GetStockLists(ctx context.Context, owner, requester string) ([]models.StockList, error) {
	query := s.store.Read(ctx).
		Where("username = ? AND list_type <> ?", owner, models.ListPortfolio)
	if requester != owner {
		query = query.Where(
			"(list_type = ? OR (list_type = ? AND EXISTS (SELECT 1 FROM reviews r WHERE r.owner_username = stock_lists.username AND r.list_name = stock_lists.list_name AND r.reviewer_username = ?)))",
			models.ListPublic, models.ListPrivate, requester,
		)
	}

	lists := []models.StockList{}
	if err := query.Order("list_name").Find(&lists).Error; err != nil {
		return nil, fmt.Errorf("failed to get stock lists: %w", err)
	}
	return lists, nil
}

// GetPortfolios - портфели владельца с балансом
func (s *StockListService) GetPortfolios(ctx context.Context, owner string) ([]models.Portfolio, error) {
	var lists []models.StockList
	err := s.store.Read(ctx).
		Where("username = ? AND list_type = ?", owner, models.ListPortfolio).
		Order("list_name").
		Find(&lists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolios: %w", err)
	}

	portfolios := make([]models.Portfolio, 0, len(lists))
	for _, l := range lists {
		portfolios = append(portfolios, models.Portfolio{
			Username: l.Username,
			ListName: l.ListName,
			Cash:     l.Cash.Decimal,
		})
	}
	return portfolios, nil
}

// GetPublicStockLists - все публичные списки
func (s *StockListService) GetPublicStockLists(ctx context.Context) ([]models.StockList, error) {
	lists := []models.StockList{}
	err := s.store.Read(ctx).
		Where("list_type = ?", models.ListPublic).
		Order("username, list_name").
		Find(&lists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get public stock lists: %w", err)
	}
	return lists, nil
}

// GetStockListStocks - позиции со статистикой, если requester видит список
func (s *StockListService) GetStockListStocks(ctx context.Context, owner, listName, requester string) ([]models.Holding, error) {
	if _, err := s.gate.Authorize(ctx, owner, listName, requester); err != nil {
		return nil, err
	}

	holdings := []models.Holding{}
	err := s.store.Read(ctx).
		Table("stock_list_stocks").
		Select("stock_list_stocks.symbol, stock_list_stocks.amount, stock_statistics.beta, stock_statistics.coefficient_of_variation").
		Joins("LEFT JOIN stock_statistics ON stock_statistics.symbol = stock_list_stocks.symbol").
		Where("stock_list_stocks.username = ? AND stock_list_stocks.list_name = ?", owner, listName).
		Order("stock_list_stocks.symbol").
		Scan(&holdings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get stocks: %w", err)
	}
	return holdings, nil
}

// AddStockToList добавляет позицию; если символ уже есть, количество складывается
func (s *StockListService) AddStockToList(ctx context.Context, owner, listName, symbol string, amount int64) (*models.StockListStock, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is empty", ErrInvalidArgument)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}

	var stock models.StockListStock
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := findList(tx, owner, listName); err != nil {
			return err
		}
		row := models.StockListStock{Username: owner, ListName: listName, Symbol: symbol, Amount: amount}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "username"}, {Name: "list_name"}, {Name: "symbol"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"amount": gorm.Expr("stock_list_stocks.amount + excluded.amount"),
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("username = ? AND list_name = ? AND symbol = ?", owner, listName, symbol).Take(&stock).Error
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	publish(ctx, s.events, StockListEvent{Type: EventHoldingsChanged, Username: owner, ListName: listName, Symbol: symbol})
	return &stock, nil
}

// RemoveStockFromList удаляет позицию целиком
func (s *StockListService) RemoveStockFromList(ctx context.Context, owner, listName, symbol string) error {
	symbol = normalizeSymbol(symbol)
	res := s.store.Write(ctx).
		Where("username = ? AND list_name = ? AND symbol = ?", owner, listName, symbol).
		Delete(&models.StockListStock{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(fmt.Sprintf("stock %s in %s/%s", symbol, owner, listName))
	}

	publish(ctx, s.events, StockListEvent{Type: EventHoldingsChanged, Username: owner, ListName: listName, Symbol: symbol})
	return nil
}

// ShareStockList выдаёт reviewer доступ: пустой отзыв с рейтингом по умолчанию.
// Если отзыв уже есть, он не трогается.
func (s *StockListService) ShareStockList(ctx context.Context, owner, listName, reviewer string) (*models.Review, error) {
	var review models.Review
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.requireReviewable(tx, owner, listName); err != nil {
			return err
		}
		if err := requireUser(tx, reviewer); err != nil {
			return err
		}
		grant := models.Review{
			OwnerUsername:    owner,
			ListName:         listName,
			ReviewerUsername: reviewer,
			Rating:           models.DefaultRating,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error; err != nil {
			return err
		}
		return takeReview(tx, owner, listName, reviewer, &review)
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return &review, nil
}

// CreateOrUpdateReview пишет отзыв reviewer. На приватный список можно писать
// только при наличии доступа, иначе отзыв сам стал бы доступом.
func (s *StockListService) CreateOrUpdateReview(ctx context.Context, owner, listName, reviewer, text string, rating int) (*models.Review, error) {
	var review models.Review
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		list, err := findList(tx, owner, listName)
		if err != nil {
			return err
		}
		if list.IsPortfolio() {
			return ErrNotShareable
		}
		if list.ListType == models.ListPrivate && reviewer != owner {
			granted, err := hasGrant(tx, owner, listName, reviewer)
			if err != nil {
				return err
			}
			if !granted {
				return fmt.Errorf("%s/%s is not shared with %s: %w", owner, listName, reviewer, ErrUnauthorized)
			}
		}

		row := models.Review{
			OwnerUsername:    owner,
			ListName:         listName,
			ReviewerUsername: reviewer,
			Text:             text,
			Rating:           rating,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_username"}, {Name: "list_name"}, {Name: "reviewer_username"}},
			DoUpdates: clause.AssignmentColumns([]string{"review", "rating"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return takeReview(tx, owner, listName, reviewer, &review)
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return &review, nil
}

// ClearReview - владелец стирает текст отзыва, доступ у reviewer остаётся
func (s *StockListService) ClearReview(ctx context.Context, owner, listName, reviewer string) error {
	res := s.store.Write(ctx).Model(&models.Review{}).
		Where("owner_username = ? AND list_name = ? AND reviewer_username = ?", owner, listName, reviewer).
		Updates(map[string]interface{}{"review": "", "rating": models.DefaultRating})
	if res.Error != nil {
		return fmt.Errorf("failed to clear review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(fmt.Sprintf("review of %s/%s by %s", owner, listName, reviewer))
	}
	return nil
}

// RemoveReview удаляет строку отзыва вместе с доступом. Может владелец или сам reviewer.
func (s *StockListService) RemoveReview(ctx context.Context, actor, owner, listName, reviewer string) error {
	if actor != owner && actor != reviewer {
		return fmt.Errorf("%s cannot remove review of %s/%s by %s: %w", actor, owner, listName, reviewer, ErrUnauthorized)
	}
	res := s.store.Write(ctx).
		Where("owner_username = ? AND list_name = ? AND reviewer_username = ?", owner, listName, reviewer).
		Delete(&models.Review{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(fmt.Sprintf("review of %s/%s by %s", owner, listName, reviewer))
	}
	return nil
}

func (s *StockListService) requireReviewable(tx *gorm.DB, owner, listName string) error {
	list, err := findList(tx, owner, listName)
	if err != nil {
		return err
	}
	if list.IsPortfolio() {
		return ErrNotShareable
	}
	return nil
}

func takeReview(tx *gorm.DB, owner, listName, reviewer string, review *models.Review) error {
	return tx.Where("owner_username = ? AND list_name = ? AND reviewer_username = ?", owner, listName, reviewer).
		Take(review).Error
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
