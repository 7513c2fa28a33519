package pipeline

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ParseResumes parses several documents concurrently, at most limit at a time
// (no limit when limit <= 0). Every document gets its own Result keyed by name;
// one failure does not stop the others.
func (s *Service) ParseResumes(ctx context.Context, docs map[string][]byte, limit int) map[string]Result {
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]Result, len(docs))
	var mu sync.Mutex

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, name := range names {
		data := docs[name]
		g.Go(func() error {
			record, err := s.ParseResume(ctx, data)
			mu.Lock()
			results[name] = NewResult(record, err)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}
