// Package analysis wires the Scanner, WorkerPool, and Store into the single
// background task spec.md §4.1/§4.2/§4.3 describe as the "analysis
// pipeline": scan candidates, dispatch extraction, and report a bounded
// AnalysisSummary. It owns no state of its own; it is the glue the teacher
// would have put in job_service.go, re-targeted at this domain.
package analysis

import (
	"time"

	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/domain"
	"github.com/cesargomez89/navidrums/internal/extractor"
	"github.com/cesargomez89/navidrums/internal/logger"
	"github.com/cesargomez89/navidrums/internal/scanner"
	"github.com/cesargomez89/navidrums/internal/store"
	"github.com/cesargomez89/navidrums/internal/taskmanager"
	"github.com/cesargomez89/navidrums/internal/workerpool"
)

// Request mirrors the POST /api/analysis/start body of spec.md §6.
type Request struct {
	Directories     []string
	FilePaths       []string
	Recursive       bool
	OverwriteCache  bool
	IncludePatterns []string
	ExcludePatterns []string
}

// Pipeline is the constructed dependency set a task needs to perform one
// analysis run. All fields come from already-built packages; nothing here
// is a singleton.
type Pipeline struct {
	MaxWorkers      int
	MinFileSizeKB   int
	MaxFileSizeMB   int
	AnalysisTimeout time.Duration
	Store           *store.Store
	Extractor       extractor.Extractor
	Logger          *logger.Logger
}

// RunFunc builds a taskmanager.RunFunc closure that performs one analysis
// task against req, for TaskManager.Submit(domain.TaskKindAnalysis, ...).
func (p *Pipeline) RunFunc(req Request) taskmanager.RunFunc {
	return func(h *taskmanager.Handle) (interface{}, error) {
		scanReq := scanner.Request{
			Directories:     req.Directories,
			FilePaths:       req.FilePaths,
			Recursive:       req.Recursive,
			IncludePatterns: req.IncludePatterns,
			ExcludePatterns: req.ExcludePatterns,
			MinFileSizeKB:   p.MinFileSizeKB,
			MaxFileSizeMB:   p.MaxFileSizeMB,
		}

		scanResult, err := scanner.Scan(scanReq)
		if err != nil {
			return nil, err
		}

		h.SetTotal(len(scanResult.Files))
		for _, w := range scanResult.Warnings {
			h.AddError(w.Path, string(domain.ErrClassIOError), w.Message)
		}

		// OverwriteCache skips the fast-reject lookup so every file is
		// re-extracted, but results still land back in the real store.
		var lookupStore workerpool.CacheStore = p.Store
		if req.OverwriteCache {
			lookupStore = bypassLookupStore{p.Store}
		}

		pool := workerpool.New(p.Extractor, lookupStore, workerpool.Options{
			MaxWorkers:      p.MaxWorkers,
			AnalysisTimeout: p.AnalysisTimeout,
			Logger:          p.Logger,
		})

		summary := domain.AnalysisSummary{TotalFiles: len(scanResult.Files)}
		processed := 0

		for result := range pool.Run(h.Context(), scanResult.Files, nil) {
			processed++
			h.Progress(processed, result.Path)

			switch {
			case result.Err != nil:
				summary.FailedFiles++
				code := string(domain.ErrClassInternal)
				if ae, ok := apierr.As(result.Err); ok {
					code = string(ae.Code)
				}
				h.AddError(result.Path, code, result.Err.Error())
			case result.CacheHit:
				summary.CacheHits++
				summary.AnalysedFiles++
			default:
				summary.AnalysedFiles++
			}
		}

		if summary.TotalFiles > 0 && summary.FailedFiles == summary.TotalFiles {
			return summary, apierr.Internal("every candidate file failed analysis", nil)
		}
		return summary, nil
	}
}

// bypassLookupStore wraps a CacheStore so Lookup always misses (forcing
// re-extraction) while Put still writes through to the wrapped store.
type bypassLookupStore struct {
	inner workerpool.CacheStore
}

func (b bypassLookupStore) Lookup(path string, size int64, mtime time.Time) (domain.CacheEntry, bool) {
	return domain.CacheEntry{}, false
}

func (b bypassLookupStore) Put(entry domain.CacheEntry) error {
	return b.inner.Put(entry)
}
