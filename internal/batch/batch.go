// Package batch runs bulk writes as bounded concurrent chunks.
//
// Bulk import and tag normalization never write in one giant transaction.
// Items are split into fixed-size chunks and a small worker pool drains
// them, so peak memory and connection use stay bounded. A failed chunk
// leaves earlier chunks applied; callers rely on conflict-skipping writes
// so that rerunning the whole job only fills in what is missing.
package batch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds how many chunks are written at once.
const DefaultWorkers = 4

// Func writes one chunk and reports how many items it actually changed.
type Func[T any] func(ctx context.Context, chunk []T) (int, error)

// Chunk splits items into consecutive slices of at most size elements.
// The chunks share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Run applies fn to every chunk of items using at most workers goroutines
// and returns the summed counts.
//
// The first error cancels the context handed to the remaining chunks and
// stops new chunks from starting. The count still includes every chunk
// that succeeded, so callers can report partial progress.
func Run[T any](parent context.Context, items []T, size, workers int, fn Func[T]) (int, error) {
	chunks := Chunk(items, size)
	if len(chunks) == 0 {
		return 0, nil
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var total atomic.Int64
	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(min(workers, len(chunks)))

	for _, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Go may have blocked on the limit while a sibling failed.
			if ctx.Err() != nil {
				return nil
			}
			n, err := fn(ctx, chunk)
			total.Add(int64(n))
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return int(total.Load()), err
	}
	if err := parent.Err(); err != nil {
		return int(total.Load()), err
	}
	return int(total.Load()), nil
}
