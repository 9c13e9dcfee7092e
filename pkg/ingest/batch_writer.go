package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// SaveFunc stores one analysis inside a batch transaction and returns its id.
type SaveFunc func(tx *sql.Tx) (int64, error)

type pendingSave struct {
	index int
	save  SaveFunc
}

// BatchWriter groups analysis saves into transactions. A batch is committed
// when it reaches its size, when the flush interval elapses and on Close.
// A failing save rolls back every analysis in its batch.
type BatchWriter struct {
	db   *sql.DB
	size int

	mu      sync.Mutex
	pending []pendingSave
	closed  bool

	batches chan []pendingSave
	stop    chan struct{}
	ticker  *time.Ticker
	wg      sync.WaitGroup

	// OnCommit receives the index and id of every save once its batch has
	// committed. It runs on the committer goroutine and must not call Submit.
	OnCommit func(index int, id int64)
	// OnError receives the error of every batch that was rolled back.
	OnError func(error)

	errMu    sync.Mutex
	firstErr error
}

// NewBatchWriter starts a writer that commits every size saves and, when
// flushInterval is positive, at least that often.
func NewBatchWriter(conn *sql.DB, size int, flushInterval time.Duration) *BatchWriter {
	if size <= 0 {
		size = 10
	}
	bw := &BatchWriter{
		db:      conn,
		size:    size,
		pending: make([]pendingSave, 0, size),
		batches: make(chan []pendingSave, 2),
		stop:    make(chan struct{}),
	}

	bw.wg.Add(1)
	go bw.commitLoop()

	if flushInterval > 0 {
		bw.ticker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.flushLoop()
	}
	return bw
}

// Submit queues the save of the document at index.
func (bw *BatchWriter) Submit(index int, save SaveFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.pending = append(bw.pending, pendingSave{index: index, save: save})
	if len(bw.pending) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

// flushLocked hands the pending saves to the committer. Callers hold bw.mu,
// so Submit blocks while the committer is two batches behind.
func (bw *BatchWriter) flushLocked() {
	if len(bw.pending) == 0 {
		return
	}
	bw.batches <- bw.pending
	bw.pending = make([]pendingSave, 0, bw.size)
}

func (bw *BatchWriter) flushLoop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.stop:
			return
		case <-bw.ticker.C:
			bw.mu.Lock()
			if !bw.closed {
				bw.flushLocked()
			}
			bw.mu.Unlock()
		}
	}
}

func (bw *BatchWriter) commitLoop() {
	defer bw.wg.Done()
	for batch := range bw.batches {
		ids, err := bw.commit(batch)
		if err != nil {
			bw.errMu.Lock()
			if bw.firstErr == nil {
				bw.firstErr = err
			}
			bw.errMu.Unlock()
			if bw.OnError != nil {
				bw.OnError(err)
			}
			continue
		}
		if bw.OnCommit != nil {
			for i, p := range batch {
				bw.OnCommit(p.index, ids[i])
			}
		}
	}
}

// commit runs one batch in a single transaction and returns the ids in batch order.
func (bw *BatchWriter) commit(batch []pendingSave) ([]int64, error) {
	// Close must not abort batches that are already queued.
	tx, err := bw.db.BeginTx(context.Background(), nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	ids := make([]int64, len(batch))
	for i, p := range batch {
		id, err := p.save(tx)
		if err != nil {
			return nil, fmt.Errorf("batch of %d analyses rolled back: %w", len(batch), err)
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch of %d analyses: %w", len(batch), err)
	}
	return ids, nil
}

// Close commits the saves still queued, waits for the committer and returns
// the first batch error, if any.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	close(bw.stop)
	close(bw.batches)
	bw.wg.Wait()

	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.firstErr
}

// ErrBatchWriterClosed is returned by Submit and Close after Close.
var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

// BatchWriterError is a typed error for BatchWriter operations.
type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
