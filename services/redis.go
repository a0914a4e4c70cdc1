package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stocksocial/models"

	"github.com/go-redis/redis/v8"
)

const MATRIX_KEY_PREFIX = "corr_matrix:" // Префикс ключей матриц корреляций

// MatrixCache - прозрачный кеш матриц корреляций
type MatrixCache interface {
	Get(ctx context.Context, owner, listName string) (*models.CorrelationMatrix, bool, error)
	Set(ctx context.Context, owner, listName string, matrix *models.CorrelationMatrix) error
	Invalidate(ctx context.Context, owner, listName string) error
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Тест соединения
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

type RedisMatrixCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMatrixCache(client *redis.Client, ttl time.Duration) *RedisMatrixCache {
	return &RedisMatrixCache{client: client, ttl: ttl}
}

func matrixKey(owner, listName string) string {
	return fmt.Sprintf("%s%s:%s", MATRIX_KEY_PREFIX, owner, listName)
}

func (c *RedisMatrixCache) Get(ctx context.Context, owner, listName string) (*models.CorrelationMatrix, bool, error) {
	data, err := c.client.Get(ctx, matrixKey(owner, listName)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var matrix models.CorrelationMatrix
	if err := json.Unmarshal(data, &matrix); err != nil {
		return nil, false, err
	}
	return &matrix, true, nil
}

func (c *RedisMatrixCache) Set(ctx context.Context, owner, listName string, matrix *models.CorrelationMatrix) error {
	data, err := json.Marshal(matrix)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, matrixKey(owner, listName), data, c.ttl).Err()
}

func (c *RedisMatrixCache) Invalidate(ctx context.Context, owner, listName string) error {
	return c.client.Del(ctx, matrixKey(owner, listName)).Err()
}
