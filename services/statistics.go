package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"stocksocial/db"
	"stocksocial/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const correlationBatchSize = 500

// StatisticsService принимает результаты внешнего аналитического джоба
type StatisticsService struct {
	store    *db.Store
	matrices *CorrelationService
}

func NewStatisticsService(store *db.Store, matrices *CorrelationService) *StatisticsService {
	return &StatisticsService{store: store, matrices: matrices}
}

// UpsertStatistics записывает beta и CV по символам
func (s *StatisticsService) UpsertStatistics(ctx context.Context, stats []models.StockStatistic) error {
	if len(stats) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]models.StockStatistic, 0, len(stats))
	for _, st := range stats {
		st.Symbol = normalizeSymbol(st.Symbol)
		if st.Symbol == "" {
			return fmt.Errorf("%w: statistic without symbol", ErrInvalidArgument)
		}
		st.UpdatedAt = now
		rows = append(rows, st)
	}

	err := s.store.Write(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"beta", "coefficient_of_variation", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert statistics: %w", translateStoreError(err))
	}
	log.Printf("Upserted statistics for %d symbols", len(rows))
	return nil
}

// ListStocks - каталог известных символов со статистикой, по алфавиту
func (s *StatisticsService) ListStocks(ctx context.Context) ([]models.StockStatistic, error) {
	stocks := make([]models.StockStatistic, 0)
	if err := s.store.Read(ctx).Order("symbol").Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", translateStoreError(err))
	}
	return stocks, nil
}

// ReplaceCorrelations заменяет все пары списка одной транзакцией.
// Пары (X, X) отбрасываются, остальные пишутся как stock1 < stock2.
func (s *StatisticsService) ReplaceCorrelations(ctx context.Context, owner, listName string, entries []models.CorrelationEntry) (int, error) {
	rows, err := normalizeCorrelations(owner, listName, entries)
	if err != nil {
		return 0, err
	}

	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := findList(tx, owner, listName); err != nil {
			return err
		}
		if err := tx.Where("username = ? AND list_name = ?", owner, listName).Delete(&models.CorrelationEntry{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, correlationBatchSize).Error
	})
	if err != nil {
		return 0, translateStoreError(err)
	}

	s.matrices.Invalidate(ctx, owner, listName)
	return len(rows), nil
}

func normalizeCorrelations(owner, listName string, entries []models.CorrelationEntry) ([]models.CorrelationEntry, error) {
	seen := make(map[symbolPair]struct{}, len(entries))
	rows := make([]models.CorrelationEntry, 0, len(entries))
	for _, e := range entries {
		a, b := normalizeSymbol(e.Stock1), normalizeSymbol(e.Stock2)
		if a == "" || b == "" {
			return nil, fmt.Errorf("%w: correlation entry without symbol", ErrInvalidArgument)
		}
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		if e.Correlation < -1 || e.Correlation > 1 {
			return nil, fmt.Errorf("%w: correlation %s/%s = %v out of [-1, 1]", ErrInvalidArgument, a, b, e.Correlation)
		}
		key := symbolPair{a, b}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate correlation pair %s/%s", ErrInvalidArgument, a, b)
		}
		seen[key] = struct{}{}
		rows = append(rows, models.CorrelationEntry{
			Username:    owner,
			ListName:    listName,
			Stock1:      a,
			Stock2:      b,
			Correlation: e.Correlation,
		})
	}
	return rows, nil
}
