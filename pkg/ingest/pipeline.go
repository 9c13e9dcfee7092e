// Package ingest analyzes batches of documents concurrently and stores the
// results through batched SQLite transactions.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/japaniel/morphan/pkg/analysis"
	"github.com/japaniel/morphan/pkg/db"
	"github.com/japaniel/morphan/pkg/source"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Analyzer is the part of analysis.Analyzer the pipeline needs.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (analysis.Result, error)
	Tags() analysis.POSTagSet
}

// DocResult is the analysis of one input document.
type DocResult struct {
	Index  int
	Doc    source.Document
	Result analysis.Result
	Err    error
}

// Summary describes a finished run.
type Summary struct {
	Documents int
	Words     int
	// AnalysisIDs holds the stored analysis id per document, in input order.
	// Documents whose batch was not committed have id 0. It is nil when
	// nothing was saved.
	AnalysisIDs []int64
}

// Pipeline analyzes documents with a pool of workers. Results reach the sink
// in input order regardless of which worker finishes first.
type Pipeline struct {
	Analyzer Analyzer
	// DB enables persistence; nil means results are only passed to the sink.
	DB        *sql.DB
	Workers   int
	BatchSize int
	// Logger receives progress messages. nil means no logging.
	Logger *slog.Logger
	// OnProgress is called with the number of delivered documents and the total.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewPipeline creates a Pipeline with default concurrency settings.
func NewPipeline(a Analyzer, conn *sql.DB) *Pipeline {
	return &Pipeline{
		Analyzer:  a,
		DB:        conn,
		Workers:   4,
		BatchSize: 20,
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// Run analyzes docs and calls sink once per document in input order. The first
// analysis, sink or storage error cancels the run and is returned.
func (p *Pipeline) Run(ctx context.Context, docs []source.Document, sink func(DocResult) error) (Summary, error) {
	summary := Summary{}
	total := len(docs)
	if total == 0 {
		return summary, nil
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	log := p.logger()

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wp WorkerPoolInterface
	if p.PoolFactory != nil {
		wp = p.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	wp.Start(ctx)

	resultCh := make(chan DocResult, workers*2)
	doneCh := make(chan error, 1)

	var (
		bw    *BatchWriter
		idsMu sync.Mutex
		ids   []int64
	)
	if p.DB != nil {
		ids = make([]int64, total)
		bw = NewBatchWriter(p.DB, p.BatchSize, 250*time.Millisecond)
		bw.OnCommit = func(index int, id int64) {
			idsMu.Lock()
			ids[index] = id
			idsMu.Unlock()
		}
	}
	posTags := p.Analyzer.Tags().String()

	// Consumer: reorder finished documents, hand them to the sink and queue
	// their writes.
	go func() {
		defer close(doneCh)
		fail := func(err error) {
			// Stop workers blocked on resultCh before reporting.
			cancel()
			doneCh <- err
		}
		buffer := make(map[int]DocResult)
		next := 0
		for next < total {
			var res DocResult
			select {
			case <-ctx.Done():
				doneCh <- ctx.Err()
				return
			case res = <-resultCh:
			}
			if res.Err != nil {
				fail(fmt.Errorf("%s: %w", res.Doc.Name, res.Err))
				return
			}
			buffer[res.Index] = res

			for {
				item, ok := buffer[next]
				if !ok {
					break
				}
				delete(buffer, next)

				if sink != nil {
					if err := sink(item); err != nil {
						fail(err)
						return
					}
				}
				summary.Words += item.Result.WordCount()

				if bw != nil {
					current := item
					err := bw.Submit(current.Index, func(tx *sql.Tx) (int64, error) {
						id, err := saveDocument(tx, current.Doc, posTags, current.Result)
						if err != nil {
							return 0, fmt.Errorf("save %s: %w", current.Doc.Name, err)
						}
						return id, nil
					})
					if err != nil {
						fail(err)
						return
					}
				}

				next++
				summary.Documents = next
				if p.OnProgress != nil {
					p.OnProgress(next, total)
				}
			}
		}
		doneCh <- nil
	}()

	// Producer: one job per document.
	var submitErr error
	for i := range docs {
		idx, doc := i, docs[i]
		job := func(ctx context.Context) error {
			res, err := p.Analyzer.Analyze(ctx, doc.Text)
			log.Debug("analyzed document", "name", doc.Name, "index", idx, "words", res.WordCount())
			select {
			case resultCh <- DocResult{Index: idx, Doc: doc, Result: res, Err: err}:
			case <-ctx.Done():
			}
			return err
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if err != ctx.Err() && err != ErrPoolClosed {
				submitErr = err
			}
			break
		}
	}
	if submitErr != nil {
		cancel()
	}

	consumerErr := <-doneCh
	// Unblock any worker still trying to deliver a result.
	cancel()
	wp.Close()

	if bw != nil {
		if err := bw.Close(); err != nil && consumerErr == nil {
			consumerErr = err
		}
		idsMu.Lock()
		summary.AnalysisIDs = ids
		idsMu.Unlock()
	}

	if submitErr != nil {
		return summary, submitErr
	}
	if consumerErr != nil {
		return summary, consumerErr
	}
	log.Info("analysis finished", "documents", summary.Documents, "words", summary.Words)
	return summary, nil
}

// saveDocument records the document's source, if any, and its analysis.
func saveDocument(tx db.DBExecutor, doc source.Document, posTags string, res analysis.Result) (int64, error) {
	var sourceID int64
	if doc.Type != source.TypeText {
		title := doc.Title
		if title == "" {
			title = doc.Name
		}
		var err error
		sourceID, err = db.CreateOrGetSource(tx, doc.Type, title, doc.Byline, doc.SiteName, doc.URL, doc.Path)
		if err != nil {
			return 0, err
		}
	}
	return db.SaveAnalysis(tx, sourceID, posTags, len([]rune(doc.Text)), res)
}
