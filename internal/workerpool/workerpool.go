// Package workerpool implements the bounded-concurrency analysis stage of
// spec.md §4.3: a fixed number of workers pull file paths from a bounded
// channel fed by a single producer (the scanner), call the extractor, and
// write results through a small cache interface. Concurrency and recovery
// follow the teacher's internal/worker: a semaphore-style fixed worker count,
// a WaitGroup for shutdown, timer-based retry backoff that ctx can
// interrupt, and a deferred
// recover() per job so one panic never takes down the pool.
package workerpool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/constants"
	"github.com/cesargomez89/navidrums/internal/domain"
	"github.com/cesargomez89/navidrums/internal/extractor"
	"github.com/cesargomez89/navidrums/internal/logger"
)

// CacheStore is the subset of internal/store's Store that the pool needs:
// a fast-reject lookup by path/size/mtime, and a write-back for fresh
// results. Kept narrow here so the pool can be tested without a real store.
type CacheStore interface {
	Lookup(path string, size int64, mtime time.Time) (domain.CacheEntry, bool)
	Put(entry domain.CacheEntry) error
}

// FileResult is the terminal outcome of processing one candidate path.
type FileResult struct {
	Path     string
	Entry    domain.CacheEntry
	CacheHit bool
	Attempts int
	Err      error
}

// Options configures a Pool.
type Options struct {
	MaxWorkers      int
	AnalysisTimeout time.Duration
	Logger          *logger.Logger
}

// Pool consumes a finite list of candidate paths and emits one FileResult
// per path over the returned channel, in no particular order, bounded by
// max_workers concurrently in-flight extractions.
type Pool struct {
	extractor extractor.Extractor
	store     CacheStore
	maxWorkers int
	timeout    time.Duration
	log        *logger.Logger
}

// New builds a Pool. maxWorkers is clamped to min(cpu_count, configured_cap)
// per spec.md §4.3, with a floor of 1.
func New(ex extractor.Extractor, store CacheStore, opts Options) *Pool {
	configuredCap := opts.MaxWorkers
	if configuredCap <= 0 {
		configuredCap = constants.DefaultMaxWorkers
	}
	workers := configuredCap
	if n := runtime.NumCPU(); n < workers {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	timeout := opts.AnalysisTimeout
	if timeout <= 0 {
		timeout = constants.DefaultAnalysisTimeoutSec * time.Second
	}

	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Pool{
		extractor:  ex,
		store:      store,
		maxWorkers: workers,
		timeout:    timeout,
		log:        log.WithComponent("workerpool"),
	}
}

// Run feeds paths into a bounded input channel of capacity 2*max_workers and
// fans them out across max_workers workers. The returned channel is closed
// once every path has reached a terminal state or ctx is done. Progress is
// reported via onProgress(processed, total), called exactly once per
// terminal path, after the fact (never before pulling/extracting/writing).
func (p *Pool) Run(ctx context.Context, paths []string, onProgress func(processed, total int)) <-chan FileResult {
	input := make(chan string, 2*p.maxWorkers)
	output := make(chan FileResult, len(paths))

	go func() {
		defer close(input)
		for _, path := range paths {
			select {
			case <-ctx.Done():
				return
			case input <- path:
			}
		}
	}()

	var processed int64
	total := len(paths)

	var wg sync.WaitGroup
	wg.Add(p.maxWorkers)
	for i := 0; i < p.maxWorkers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case path, ok := <-input:
					if !ok {
						return
					}
					res := p.runOne(ctx, path)
					output <- res
					n := atomic.AddInt64(&processed, 1)
					if onProgress != nil {
						onProgress(int(n), total)
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(output)
	}()

	return output
}

// runOne processes a single path to completion, recovering from any panic
// raised by the extractor and converting it into an internal error result,
// matching the teacher's per-job recover() in worker.go.
func (p *Pool) runOne(ctx context.Context, path string) (res FileResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithTrack(path).Error("panic while processing track", "recovered", r)
			res = FileResult{Path: path, Err: apierr.Internal(fmt.Sprintf("panic: %v", r), nil)}
		}
	}()

	select {
	case <-ctx.Done():
		return FileResult{Path: path, Err: ctx.Err()}
	default:
	}

	stat, err := os.Stat(path)
	if err != nil {
		return FileResult{Path: path, Err: apierr.IOError("stat failed for "+path, err)}
	}

	if p.store != nil {
		if entry, ok := p.store.Lookup(path, stat.Size(), stat.ModTime()); ok {
			return FileResult{Path: path, Entry: entry, CacheHit: true}
		}
	}

	var features domain.Features
	attempts := 0
	backoff := constants.DefaultRetryBase

	for {
		attempts++

		select {
		case <-ctx.Done():
			return FileResult{Path: path, Attempts: attempts, Err: ctx.Err()}
		default:
		}

		features, err = p.extractor.Extract(ctx, path, extractor.Options{Timeout: p.timeout})
		if err == nil {
			break
		}

		if !isTransient(err) || attempts >= constants.DefaultRetryCount {
			return FileResult{Path: path, Attempts: attempts, Err: err}
		}

		p.log.WithTrack(path).Warn("transient extraction error, retrying",
			"attempt", attempts, "backoff", backoff, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return FileResult{Path: path, Attempts: attempts, Err: ctx.Err()}
		case <-timer.C:
		}

		backoff *= 2
		if backoff > constants.RetryBackoffCap {
			backoff = constants.RetryBackoffCap
		}
	}

	select {
	case <-ctx.Done():
		return FileResult{Path: path, Attempts: attempts, Err: ctx.Err()}
	default:
	}

	contentID, err := contentIDOf(path)
	if err != nil {
		return FileResult{Path: path, Attempts: attempts, Err: apierr.IOError("hashing failed for "+path, err)}
	}

	entry := domain.CacheEntry{
		ContentID:        contentID,
		PathAtWrite:      path,
		FileSize:         stat.Size(),
		MTime:            stat.ModTime(),
		AnalysisVersion:  extractor.AnalysisVersion,
		AnalysedAt:       time.Now(),
		Features:         features,
		ExtractorVersion: fmt.Sprintf("tagprobe-v%d", extractor.AnalysisVersion),
	}

	if p.store != nil {
		if err := p.store.Put(entry); err != nil {
			return FileResult{Path: path, Attempts: attempts, Err: apierr.IOError("cache write failed for "+path, err)}
		}
	}

	return FileResult{Path: path, Entry: entry, Attempts: attempts}
}

// isTransient reports whether err is retryable per spec.md §4.3: I/O
// timeouts and non-fatal filesystem errors are retried, everything else
// (unsupported format, corrupt file, contract violations) fails immediately.
func isTransient(err error) bool {
	e, ok := apierr.As(err)
	if !ok {
		return false
	}
	switch e.Code {
	case apierr.CodeTimeout, apierr.CodeIOError:
		return true
	default:
		return false
	}
}

func contentIDOf(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
