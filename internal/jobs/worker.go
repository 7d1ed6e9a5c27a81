package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aspire-solutions/councilkb/internal/service"
)

// MemoryWriter applies one queued rolling-summary update.
type MemoryWriter interface {
	Update(ctx context.Context, tenantID, sessionID, previous, userMessage, answerSnippet string) error
}

// MemoryWorker drains queued conversation-memory writes off the request
// path. The queue is bounded; when it is full the write is dropped rather
// than blocking the answer that produced it.
type MemoryWorker struct {
	writer       MemoryWriter
	queue        chan service.MemoryUpdate
	writeTimeout time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
}

// NewMemoryWorker creates a new MemoryWorker instance
func NewMemoryWorker(writer MemoryWriter, queueSize int, writeTimeout time.Duration) *MemoryWorker {
	if queueSize <= 0 {
		queueSize = 128
	}
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}
	return &MemoryWorker{
		writer:       writer,
		queue:        make(chan service.MemoryUpdate, queueSize),
		writeTimeout: writeTimeout,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Enqueue queues a memory write. It never blocks; a full queue drops the
// update and returns false.
func (w *MemoryWorker) Enqueue(update service.MemoryUpdate) bool {
	select {
	case w.queue <- update:
		return true
	default:
		return false
	}
}

// Start begins draining the queue until the context is cancelled or Stop is
// called. Remaining queued writes are flushed on shutdown.
func (w *MemoryWorker) Start(ctx context.Context) {
	defer close(w.doneChan)

	log.Printf("memory worker started, queue capacity %d", cap(w.queue))

	for {
		select {
		case <-ctx.Done():
			log.Println("memory worker stopped: context cancelled")
			return
		case <-w.stopChan:
			w.drain()
			log.Println("memory worker stopped: stop signal received")
			return
		case update := <-w.queue:
			w.apply(update)
		}
	}
}

// Stop gracefully stops the worker, flushing queued writes first.
func (w *MemoryWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}

func (w *MemoryWorker) drain() {
	for {
		select {
		case update := <-w.queue:
			w.apply(update)
		default:
			return
		}
	}
}

func (w *MemoryWorker) apply(update service.MemoryUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if err := w.writer.Update(ctx, update.TenantID, update.SessionID, update.Previous, update.UserMessage, update.AnswerSnippet); err != nil {
		log.Printf("memory write failed tenant=%s session=%s: %v", update.TenantID, update.SessionID, err)
	}
}
