package extractor

import (
	"context"
	"fmt"
	"sync"

	"github.com/cesargomez89/navidrums/internal/domain"
)

// FakeExtractor is a map-configured test double, mirroring the teacher's
// catalog/mock.go and providers/mock.go fake-provider pattern. It is used
// by the seed scenarios in spec.md §8 and by internal/analysis's tests.
type FakeExtractor struct {
	mu       sync.Mutex
	Results  map[string]domain.Features
	Errors   map[string]error
	Calls    []string
	DelayFn  func(path string)
}

func NewFakeExtractor() *FakeExtractor {
	return &FakeExtractor{
		Results: make(map[string]domain.Features),
		Errors:  make(map[string]error),
	}
}

func (f *FakeExtractor) Extract(ctx context.Context, path string, opts Options) (domain.Features, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, path)
	f.mu.Unlock()

	if f.DelayFn != nil {
		f.DelayFn(path)
	}

	select {
	case <-ctx.Done():
		return domain.Features{}, ctx.Err()
	default:
	}

	if err, ok := f.Errors[path]; ok {
		return domain.Features{}, err
	}
	if features, ok := f.Results[path]; ok {
		return features, nil
	}
	return domain.Features{}, fmt.Errorf("fake extractor: no result configured for %s", path)
}

// CallCount returns the number of times Extract was invoked for path.
func (f *FakeExtractor) CallCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.Calls {
		if p == path {
			n++
		}
	}
	return n
}
