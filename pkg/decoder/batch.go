package decoder

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

type BatchOptions struct {
	CollectErrors bool
	MaxErrors     int
}

type BatchResult struct {
	Events []*Event
	Errors []error
}

// DecodeError records which payload of a batch failed.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error at index %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// BatchDecoder decodes many payloads against one registry snapshot.
type BatchDecoder struct {
	registry *Registry
}

func NewBatchDecoder(registry *Registry) *BatchDecoder {
	return &BatchDecoder{
		registry: registry,
	}
}

func (b *BatchDecoder) snapshot(programID *solana.PublicKey) []Decoder {
	b.registry.mu.RLock()
	defer b.registry.mu.RUnlock()
	return b.registry.candidates(programID)
}

// DecodeAllWithOptions decodes payloads in order. With CollectErrors set, a
// failure per payload is recorded, stopping after MaxErrors when positive.
func (b *BatchDecoder) DecodeAllWithOptions(dataList [][]byte, programID *solana.PublicKey, opts *BatchOptions) *BatchResult {
	result := &BatchResult{
		Events: make([]*Event, 0, len(dataList)),
	}
	decoders := b.snapshot(programID)
	collectErrors := opts != nil && opts.CollectErrors

	for i, data := range dataList {
		event, err := decodeWith(decoders, data)
		if err == nil {
			result.Events = append(result.Events, event)
			continue
		}
		if !collectErrors {
			continue
		}
		result.Errors = append(result.Errors, &DecodeError{Index: i, Err: err})
		if opts.MaxErrors > 0 && len(result.Errors) >= opts.MaxErrors {
			break
		}
	}
	return result
}

// DecodeAllParallel splits dataList across workers and returns the decoded
// events in input order. Payloads no decoder accepts are skipped.
func (b *BatchDecoder) DecodeAllParallel(ctx context.Context, dataList [][]byte, programID *solana.PublicKey, workers int) ([]*Event, error) {
	if len(dataList) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = 4
	}

	decoders := b.snapshot(programID)
	decoded := make([]*Event, len(dataList))
	chunkSize := (len(dataList) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(dataList); start += chunkSize {
		end := min(start+chunkSize, len(dataList))

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					return
				}
				if event, err := decodeWith(decoders, dataList[i]); err == nil {
					decoded[i] = event
				}
			}
		}(start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := make([]*Event, 0, len(dataList))
	for _, event := range decoded {
		if event != nil {
			events = append(events, event)
		}
	}
	return events, nil
}
