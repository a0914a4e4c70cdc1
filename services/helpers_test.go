package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"stocksocial/db"
	"stocksocial/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

// openTestStore - отдельная sqlite в памяти на каждый тест
func openTestStore(t *testing.T) *db.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	store, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(store.ORM))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createUsers(t *testing.T, store *db.Store, n int) []string {
	t.Helper()
	users := make([]string, 0, n)
	for i := 0; i < n; i++ {
		username := fmt.Sprintf("%s_%d", strings.ToLower(gofakeit.Username()), i)
		require.NoError(t, store.ORM.Create(&models.User{Username: username}).Error)
		users = append(users, username)
	}
	return users
}

func createList(t *testing.T, store *db.Store, owner, listName string, listType models.ListType) {
	t.Helper()
	list := models.StockList{Username: owner, ListName: listName, ListType: listType}
	require.NoError(t, store.ORM.Create(&list).Error)
}

// fakeClock - управляемые часы для cooldown
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingPublisher запоминает опубликованные события
type recordingPublisher struct {
	mu     sync.Mutex
	events []StockListEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event StockListEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// memoryMatrixCache - MatrixCache в памяти
type memoryMatrixCache struct {
	mu          sync.Mutex
	items       map[string]models.CorrelationMatrix
	gets        int
	invalidated []string
	err         error
}

func newMemoryMatrixCache() *memoryMatrixCache {
	return &memoryMatrixCache{items: make(map[string]models.CorrelationMatrix)}
}

func (c *memoryMatrixCache) Get(_ context.Context, owner, listName string) (*models.CorrelationMatrix, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.err != nil {
		return nil, false, c.err
	}
	m, ok := c.items[matrixKey(owner, listName)]
	if !ok {
		return nil, false, nil
	}
	return &m, true, nil
}

func (c *memoryMatrixCache) Set(_ context.Context, owner, listName string, matrix *models.CorrelationMatrix) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.items[matrixKey(owner, listName)] = *matrix
	return nil
}

func (c *memoryMatrixCache) Invalidate(_ context.Context, owner, listName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := matrixKey(owner, listName)
	c.invalidated = append(c.invalidated, key)
	delete(c.items, key)
	return c.err
}
