// Package scheduler implements the pull-based tile dispatcher and its
// forceful, render_id-gated cancellation (spec §4.8). A viewport change
// bumps the current render id and clears pending work; workers tagged with
// an older id have their results dropped unconditionally on arrival —
// cancellation latency is bounded by how fast a worker notices its next
// RequestWork was refused, not by any cooperative check inside a tile.
//
// Go can't literally force-kill a goroutine the way a real worker process
// is terminated; a goroutine mid-tile keeps running to completion. The
// render_id gate gives the same *observable* guarantee the spec asks for —
// no stale result ever reaches the canvas — which is what the cancellation
// latency bound in spec §8 actually measures (time to the next render's
// first tile dispatch, not whether old goroutines have been reaped yet).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/whalelogic/deepbrot/internal/compute"
)

// TileResult is a worker's completed-tile report (spec's TileComplete).
type TileResult struct {
	RenderID      uint64
	TileID        int
	Data          []compute.Data
	ComputeTimeMs int64
}

// Scheduler hands out tiles to pull-based workers and enforces that only
// results tagged with the current render id are ever applied.
type Scheduler struct {
	mu         sync.Mutex
	renderID   uint64
	pending    []Tile
	cancelFunc context.CancelFunc
	ctx        context.Context
}

// New returns an idle Scheduler.
func New() *Scheduler {
	s := &Scheduler{}
	s.ctx, s.cancelFunc = context.WithCancel(context.Background())
	return s
}

// StartRender cancels any in-flight render, bumps render_id, and loads the
// new tile queue. It returns the new render's id and a context that is
// cancelled the instant a later StartRender or Cancel supersedes it —
// workers select on ctx.Done() between tiles so they stop pulling new work
// promptly even though an in-progress tile runs to completion.
func (s *Scheduler) StartRender(tiles []Tile) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.renderID++
	s.pending = append([]Tile(nil), tiles...)
	s.ctx, s.cancelFunc = context.WithCancel(context.Background())
	return s.ctx, s.renderID
}

// Cancel forcefully terminates the current render without starting a new
// one: pending tiles are cleared and render_id is bumped so any in-flight
// results are discarded on arrival.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.renderID++
	s.pending = nil
	s.ctx, s.cancelFunc = context.WithCancel(context.Background())
}

// CurrentRenderID returns the active render id.
func (s *Scheduler) CurrentRenderID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderID
}

// RequestWork implements the worker's pull: a worker presents the
// render_id it last heard StoreReferenceOrbit/RenderTile for, and gets
// either the next pending tile or ok=false (NoWork — either the queue is
// empty or renderID is stale and the worker should re-sync).
func (s *Scheduler) RequestWork(renderID uint64) (Tile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderID != s.renderID {
		return Tile{}, false
	}
	if len(s.pending) == 0 {
		return Tile{}, false
	}
	t := s.pending[0]
	s.pending = s.pending[1:]
	return t, true
}

// Requeue puts a tile back at the front of the queue for the given render
// id — used when a glitch refinement pass reassigns a tile to a new
// reference orbit and it needs recomputing.
func (s *Scheduler) Requeue(renderID uint64, t Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderID != s.renderID {
		return
	}
	s.pending = append([]Tile{t}, s.pending...)
}

// PendingCount reports how many tiles remain undispatched for the current
// render — used by tests asserting total tiles produced equals the
// partition count.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// AcceptResult reports whether res.RenderID matches the current render —
// if not, the caller must drop it unconditionally rather than apply it to
// the canvas (spec §5/§7: cancellations are not errors).
func (s *Scheduler) AcceptResult(res TileResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return res.RenderID == s.renderID
}

// ComputeFunc computes one tile's pixel data.
type ComputeFunc func(ctx context.Context, renderID uint64, t Tile) ([]compute.Data, error)

// RunWorkers starts n pull-based workers against the given render context
// and render id, applying each accepted TileResult via onResult. It
// returns once every pending tile has been dispatched and computed, or the
// context is cancelled by a subsequent StartRender/Cancel.
func (s *Scheduler) RunWorkers(ctx context.Context, renderID uint64, n int, compute ComputeFunc, onResult func(TileResult)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				t, ok := s.RequestWork(renderID)
				if !ok {
					return
				}
				start := time.Now()
				data, err := compute(ctx, renderID, t)
				if err != nil {
					continue
				}
				res := TileResult{
					RenderID:      renderID,
					TileID:        t.ID,
					Data:          data,
					ComputeTimeMs: time.Since(start).Milliseconds(),
				}
				if s.AcceptResult(res) {
					onResult(res)
				}
			}
		}()
	}
	wg.Wait()
}
