package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"stocksocial/config"
	"stocksocial/db"
	"stocksocial/models"
)

// CorrelationService собирает полную матрицу корреляций списка из разреженных пар.
// Доступ не проверяет: матрица привязана к списку, а не к тому, кто спрашивает.
type CorrelationService struct {
	store   *db.Store
	cache   MatrixCache
	missing float64
}

type CorrelationOption func(*CorrelationService)

// WithMatrixCache включает кеш матриц
func WithMatrixCache(cache MatrixCache) CorrelationOption {
	return func(s *CorrelationService) {
		s.cache = cache
	}
}

// WithMissingCorrelation задаёт значение для пар без записи
func WithMissingCorrelation(v float64) CorrelationOption {
	return func(s *CorrelationService) {
		s.missing = v
	}
}

func NewCorrelationService(store *db.Store, opts ...CorrelationOption) *CorrelationService {
	s := &CorrelationService{
		store:   store,
		missing: config.DefaultMissingValue,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCorrelationMatrix возвращает матрицу списка; для списка без записей - пустую
func (s *CorrelationService) GetCorrelationMatrix(ctx context.Context, owner, listName string) (*models.CorrelationMatrix, error) {
	if s.cache != nil {
		matrix, ok, err := s.cache.Get(ctx, owner, listName)
		if err != nil {
			log.Printf("WARN: correlation cache get %s/%s: %v", owner, listName, err)
		} else if ok {
			return matrix, nil
		}
	}

	var entries []models.CorrelationEntry
	err := s.store.Read(ctx).
		Where("username = ? AND list_name = ?", owner, listName).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get correlations: %w", err)
	}

	matrix := BuildCorrelationMatrix(entries, s.missing)

	if s.cache != nil {
		if err := s.cache.Set(ctx, owner, listName, &matrix); err != nil {
			log.Printf("WARN: correlation cache set %s/%s: %v", owner, listName, err)
		}
	}
	return &matrix, nil
}

// Invalidate сбрасывает кеш матрицы списка
func (s *CorrelationService) Invalidate(ctx context.Context, owner, listName string) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, owner, listName); err != nil {
		log.Printf("WARN: correlation cache invalidate %s/%s: %v", owner, listName, err)
	}
}

type symbolPair struct {
	a, b string
}

// BuildCorrelationMatrix строит симметричную матрицу. Символы - все, что встречаются
// в парах, по возрастанию. Диагональ 1.0, пара без записи получает missing.
// Если пара записана в обе стороны, побеждает запись с stock1 < stock2.
func BuildCorrelationMatrix(entries []models.CorrelationEntry, missing float64) models.CorrelationMatrix {
	symbolSet := make(map[string]struct{})
	values := make(map[symbolPair]float64, len(entries))

	for _, e := range entries {
		symbolSet[e.Stock1] = struct{}{}
		symbolSet[e.Stock2] = struct{}{}
		if e.Stock1 == e.Stock2 {
			continue
		}

		canonical := e.Stock1 < e.Stock2
		key := symbolPair{e.Stock1, e.Stock2}
		if !canonical {
			key = symbolPair{e.Stock2, e.Stock1}
		}
		if _, exists := values[key]; exists && !canonical {
			continue
		}
		values[key] = e.Correlation
	}

	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	correlations := make([][]float64, len(symbols))
	for i, si := range symbols {
		row := make([]float64, len(symbols))
		for j, sj := range symbols {
			switch {
			case i == j:
				row[j] = 1.0
			case si < sj:
				row[j] = lookup(values, symbolPair{si, sj}, missing)
			default:
				row[j] = lookup(values, symbolPair{sj, si}, missing)
			}
		}
		correlations[i] = row
	}

	return models.CorrelationMatrix{
		Symbols:      symbols,
		Correlations: correlations,
	}
}

func lookup(values map[symbolPair]float64, key symbolPair, missing float64) float64 {
	if v, ok := values[key]; ok {
		return v
	}
	return missing
}
