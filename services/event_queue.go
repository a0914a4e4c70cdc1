package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	EVENT_QUEUE_SIZE      = 1024
	EVENT_WORKER_COUNT    = 2
	EVENT_PUBLISH_TIMEOUT = 5 * time.Second
)

var ErrEventQueueFull = errors.New("event queue is full")

// EventQueue отправляет события в брокер фоновыми воркерами,
// чтобы запросы не ждали RabbitMQ. Сама является EventPublisher.
type EventQueue struct {
	next    EventPublisher
	tasks   chan StockListEvent
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	published int64
	failed    int64
	dropped   int64
}

func NewEventQueue(next EventPublisher, workers, size int) *EventQueue {
	if workers <= 0 {
		workers = EVENT_WORKER_COUNT
	}
	if size <= 0 {
		size = EVENT_QUEUE_SIZE
	}
	return &EventQueue{
		next:    next,
		tasks:   make(chan StockListEvent, size),
		workers: workers,
	}
}

// StartWorkers запускает воркеры; они работают до Close или отмены ctx
func (q *EventQueue) StartWorkers(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *EventQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()
	log.Printf("Event worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Event worker %d stopping", workerID)
			return
		case event, ok := <-q.tasks:
			if !ok {
				log.Printf("Event worker %d stopping, queue closed", workerID)
				return
			}
			q.process(ctx, event, workerID)
		}
	}
}

func (q *EventQueue) process(ctx context.Context, event StockListEvent, workerID int) {
	publishCtx, cancel := context.WithTimeout(ctx, EVENT_PUBLISH_TIMEOUT)
	defer cancel()

	if err := q.next.Publish(publishCtx, event); err != nil {
		atomic.AddInt64(&q.failed, 1)
		log.Printf("WARN: event worker %d failed to publish %s for %s/%s: %v", workerID, event.Type, event.Username, event.ListName, err)
		return
	}
	atomic.AddInt64(&q.published, 1)
}

// Publish ставит событие в очередь и не ждёт. Переполненная очередь событие отбрасывает.
func (q *EventQueue) Publish(_ context.Context, event StockListEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		atomic.AddInt64(&q.dropped, 1)
		return ErrEventQueueFull
	}

	select {
	case q.tasks <- event:
		return nil
	default:
		atomic.AddInt64(&q.dropped, 1)
		return ErrEventQueueFull
	}
}

// Close перестаёт принимать события и ждёт, пока воркеры разберут очередь
func (q *EventQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// GetStats возвращает статистику очереди
func (q *EventQueue) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"queue_length": len(q.tasks),
		"worker_count": q.workers,
		"published":    atomic.LoadInt64(&q.published),
		"failed":       atomic.LoadInt64(&q.failed),
		"dropped":      atomic.LoadInt64(&q.dropped),
	}
}
