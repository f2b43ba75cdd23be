// Package stream buffers encoder diagnostic output so it can be relayed
// across the daemon boundary. A Hub keeps a bounded, sequenced window of
// chunks and lets readers long-poll for anything newer than the last
// sequence they saw.
package stream

import (
	"context"
	"sync"
	"time"
)

// DefaultCapacity bounds the number of chunks retained per hub.
const DefaultCapacity = 4096

// Chunk is one raw read from the encoder's diagnostic stream.
type Chunk struct {
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Text      string    `json:"text"`
}

// Batch is the result of one Fetch.
type Batch struct {
	Chunks []Chunk
	// Next is the sequence to pass as since on the following fetch.
	Next uint64
	// Missed counts chunks after since that were evicted before this fetch.
	Missed uint64
	// Done is set once the hub is closed and every chunk has been returned.
	Done bool
}

// Hub stores recent chunks and wakes waiters when new chunks arrive or the
// stream is closed.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Chunk
	nextSeq  uint64
	closed   bool
}

// NewHub constructs a hub retaining at most capacity chunks.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends text as the next chunk. Publishing to a closed hub is a no-op.
func (h *Hub) Publish(text string) {
	if h == nil || text == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.nextSeq++
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, Chunk{Sequence: h.nextSeq, Timestamp: time.Now().UTC(), Text: text})
	h.cond.Broadcast()
}

// Close marks the stream finished and releases blocked readers.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.closed = true
	h.cond.Broadcast()
	h.mu.Unlock()
}

// Fetch returns chunks with sequence greater than since, in order. When wait
// is true it blocks until at least one chunk is available, the hub is closed,
// or ctx ends. A reader that fell behind the retention window gets the chunks
// still held and the evicted count in Missed.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) (Batch, error) {
	if h == nil {
		return Batch{Next: since, Done: true}, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	stopWake := make(chan struct{})
	defer close(stopWake)
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-stopWake:
			}
		}()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		batch := h.snapshotLocked(since, limit)
		batch.Done = h.closed && batch.Next == h.nextSeq
		if len(batch.Chunks) > 0 || h.closed || !wait {
			return batch, nil
		}
		if err := contextError(ctx); err != nil {
			return Batch{Next: since}, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return Batch{Next: since}, err
		}
	}
}

// snapshotLocked copies up to limit chunks after since.
func (h *Hub) snapshotLocked(since uint64, limit int) Batch {
	if since >= h.nextSeq || len(h.buffer) == 0 {
		return Batch{Next: h.nextSeq}
	}
	start := len(h.buffer)
	for i, chunk := range h.buffer {
		if chunk.Sequence > since {
			start = i
			break
		}
	}
	if start == len(h.buffer) {
		return Batch{Next: h.nextSeq}
	}
	var missed uint64
	if oldest := h.buffer[start].Sequence; oldest > since+1 {
		missed = oldest - since - 1
	}
	end := min(start+limit, len(h.buffer))
	out := make([]Chunk, end-start)
	copy(out, h.buffer[start:end])
	return Batch{Chunks: out, Next: out[len(out)-1].Sequence, Missed: missed}
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// Relay publishes every value received from src until it closes, then
// closes the hub.
func (h *Hub) Relay(src <-chan string) {
	defer h.Close()
	for text := range src {
		h.Publish(text)
	}
}
