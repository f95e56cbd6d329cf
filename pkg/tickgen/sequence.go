package tickgen

import (
	"context"
	"sync"

	"github.com/shubham-shewale/tickstream/pkg/models"
)

// Sequence is a cold, re-openable stream of ticks. Stream starts the
// producers behind it; they stop and the channel closes when the sequence
// ends or ctx is cancelled.
type Sequence interface {
	Stream(ctx context.Context) <-chan models.Stock
}

type emptySequence struct{}

func (emptySequence) Stream(context.Context) <-chan models.Stock {
	out := make(chan models.Stock)
	close(out)
	return out
}

// Empty returns a sequence that ends immediately.
func Empty() Sequence { return emptySequence{} }

type mergedSequence []Sequence

// Merge interleaves seqs in arrival order. Each source keeps its own order;
// no order is imposed across sources. Nested merges are flattened so a long
// chain of Merge calls costs one forwarding goroutine per source.
func Merge(seqs ...Sequence) Sequence {
	var parts mergedSequence
	for _, s := range seqs {
		switch v := s.(type) {
		case nil, emptySequence:
		case mergedSequence:
			parts = append(parts, v...)
		default:
			parts = append(parts, v)
		}
	}

	switch len(parts) {
	case 0:
		return Empty()
	case 1:
		return parts[0]
	}
	return parts
}

func (m mergedSequence) Stream(ctx context.Context) <-chan models.Stock {
	out := make(chan models.Stock)
	var wg sync.WaitGroup

	for _, part := range m {
		in := part.Stream(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tick := range in {
				select {
				case out <- tick:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
