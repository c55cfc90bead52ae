package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/port"
)

// rawBatch is one listener's records, tagged with the listener that
// produced them.
type rawBatch struct {
	listener string
	records  []port.RawRecord
}

// fetchOutput is what the fetch runner hands the reconciler: completed
// batches from single-shot listeners, lazy producers still to be drained,
// and one error per failed listener.
type fetchOutput struct {
	batches   []rawBatch
	producers []listener
	errors    []error
}

// fetchKind invokes every single-shot listener of the kind concurrently and
// returns their batches in listener order. Lazy producers are passed through
// untouched; draining them is the reconciler's job. One failing listener
// never cancels its siblings: each slot keeps its own records or error.
func fetchKind(ctx context.Context, listeners []listener, kind string) fetchOutput {
	var out fetchOutput

	type slot struct {
		records []port.RawRecord
		err     error
	}

	var single []listener
	for _, l := range listeners {
		if l.stream != nil {
			out.producers = append(out.producers, l)
			continue
		}
		single = append(single, l)
	}

	slots := make([]slot, len(single))
	var wg sync.WaitGroup
	for i, l := range single {
		wg.Add(1)
		go func(i int, l listener) {
			defer wg.Done()
			records, err := safeResync(ctx, l, kind)
			slots[i] = slot{records: records, err: err}
		}(i, l)
	}
	wg.Wait()

	for i, l := range single {
		if err := slots[i].err; err != nil {
			out.errors = append(out.errors, &ListenerError{Kind: kind, Listener: l.name, Err: err})
			continue
		}
		out.batches = append(out.batches, rawBatch{listener: l.name, records: slots[i].records})
	}
	return out
}

// safeResync shields the engine from a panicking listener: the panic is
// logged with its stack and surfaces as that listener's error.
func safeResync(ctx context.Context, l listener, kind string) (records []port.RawRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return l.resync(ctx, kind)
}

// safeStream is the producer counterpart of safeResync.
func safeStream(ctx context.Context, l listener, kind string, emit EmitFn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			err = fmt.Errorf("producer panicked: %v", r)
		}
	}()
	return l.stream(ctx, kind, emit)
}
