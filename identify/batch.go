package identify

import (
	"context"
	"sync"
)

// BatchItem pairs one batch input with its outcome. Exactly one of Report
// and Err is set; Err carries a classified error.
type BatchItem struct {
	Report *Report
	Err    error
}

// IdentifyBatch runs requests in chunks of the configured size. All items
// in a chunk run concurrently and the chunk settles completely before the
// next chunk starts. Results line up with the input by index, one entry per
// request, and one item's failure never cancels its siblings or a later
// chunk.
func (s *Service) IdentifyBatch(ctx context.Context, reqs []*Request) []BatchItem {
	results := make([]BatchItem, len(reqs))
	chunkSize := s.cfg.BatchChunkSize

	for offset := 0; offset < len(reqs); offset += chunkSize {
		end := offset + chunkSize
		if end > len(reqs) {
			end = len(reqs)
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				report, err := s.Identify(ctx, reqs[i])
				results[i] = BatchItem{Report: report, Err: err}
			}()
		}
		wg.Wait()
	}

	return results
}
