package fototid

import (
	"context"
	"sync"

	"k8s.io/klog/v2"
)

// EventKind distinguishes batch events.
type EventKind int

const (
	EventProgress EventKind = iota
	EventResult
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventResult:
		return "result"
	case EventCompleted:
		return "completed"
	}
	return "unknown"
}

// Event is emitted by a running batch.
type Event struct {
	Kind EventKind
	// Index is 1-based and set for progress and result events.
	Index  int
	Total  int
	Record PhotoRecord
}

// Batch is one run of the resolver over a list of files.
type Batch struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	// abandon is closed by Wait: nobody will read events after that.
	abandon chan struct{}
	once    sync.Once
}

// Events returns the event stream. It is closed once the batch stops.
func (b *Batch) Events() <-chan Event {
	return b.events
}

// Cancel asks the batch to stop before its next file.
func (b *Batch) Cancel() {
	b.cancel()
}

// Wait blocks until the batch worker has exited. Events that have not been
// received by then are discarded.
func (b *Batch) Wait() {
	b.once.Do(func() { close(b.abandon) })
	<-b.done
}

// Extractor runs at most one batch at a time.
type Extractor struct {
	r *Resolver

	mu  sync.Mutex
	cur *Batch
}

// NewExtractor returns an extractor that resolves with r.
func NewExtractor(r *Resolver) *Extractor {
	return &Extractor{r: r}
}

// Start cancels any batch in flight, waits for it to stop, then begins
// resolving paths in order on a background goroutine.
func (x *Extractor) Start(ctx context.Context, paths []string) *Batch {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.cur != nil {
		klog.V(1).Infof("cancelling previous batch")
		x.cur.Cancel()
		x.cur.Wait()
	}

	ctx, cancel := context.WithCancel(ctx)
	b := &Batch{
		events:  make(chan Event),
		cancel:  cancel,
		done:    make(chan struct{}),
		abandon: make(chan struct{}),
	}
	x.cur = b

	in := make([]string, len(paths))
	copy(in, paths)

	go x.run(ctx, b, in)
	return b
}

// Stop cancels the current batch, if any, and waits for it to exit.
func (x *Extractor) Stop() {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.cur != nil {
		x.cur.Cancel()
		x.cur.Wait()
		x.cur = nil
	}
}

func (x *Extractor) run(ctx context.Context, b *Batch, paths []string) {
	defer close(b.done)
	defer close(b.events)
	defer b.cancel()

	emit := func(e Event) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case b.events <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	// A file whose progress went out always gets its result, unless the
	// consumer has stopped listening.
	deliver := func(e Event) bool {
		select {
		case b.events <- e:
			return true
		case <-b.abandon:
			return false
		}
	}

	total := len(paths)
	for i, p := range paths {
		if ctx.Err() != nil {
			klog.V(1).Infof("batch cancelled after %d/%d files", i, total)
			return
		}

		if !emit(Event{Kind: EventProgress, Index: i + 1, Total: total}) {
			return
		}

		rec := PhotoRecord{Path: p, Taken: x.r.Resolve(p)}
		if !deliver(Event{Kind: EventResult, Index: i + 1, Total: total, Record: rec}) {
			klog.V(1).Infof("batch abandoned during %s", p)
			return
		}
	}

	emit(Event{Kind: EventCompleted, Total: total})
}

// Selection is the ordered set of resolved photos. It is only mutated by
// the goroutine consuming batch events.
type Selection struct {
	records []PhotoRecord
	byPath  map[string]int
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{byPath: map[string]int{}}
}

// Apply records the result carried by e. Other event kinds are ignored.
func (s *Selection) Apply(e Event) {
	if e.Kind != EventResult {
		return
	}
	if i, ok := s.byPath[e.Record.Path]; ok {
		s.records[i] = e.Record
		return
	}
	s.byPath[e.Record.Path] = len(s.records)
	s.records = append(s.records, e.Record)
}

// Clear drops all records.
func (s *Selection) Clear() {
	s.records = nil
	s.byPath = map[string]int{}
}

// Len returns the number of records.
func (s *Selection) Len() int {
	return len(s.records)
}

// Lookup returns the timestamp recorded for path, or Unknown.
func (s *Selection) Lookup(path string) Timestamp {
	if i, ok := s.byPath[path]; ok {
		return s.records[i].Taken
	}
	return Unknown
}

// Records returns the records in the order they were resolved.
func (s *Selection) Records() []PhotoRecord {
	out := make([]PhotoRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Collect drains b into a new selection, calling progress for each
// progress event if non-nil. It reports whether the batch completed.
func Collect(b *Batch, progress func(index, total int)) (*Selection, bool) {
	s := NewSelection()
	completed := false
	for e := range b.Events() {
		switch e.Kind {
		case EventProgress:
			if progress != nil {
				progress(e.Index, e.Total)
			}
		case EventResult:
			s.Apply(e)
		case EventCompleted:
			completed = true
		}
	}
	return s, completed
}
