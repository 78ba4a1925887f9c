package scheduler

import (
	"context"
	"testing"

	"github.com/whalelogic/deepbrot/internal/compute"
)

func TestGenerateTilesExactlyPartitionsCanvas(t *testing.T) {
	tiles := GenerateTiles(100, 80, 32)
	total := 0
	for _, tl := range tiles {
		total += tl.Rect.Area()
	}
	if total != 100*80 {
		t.Errorf("tile areas sum to %d, want %d", total, 100*80)
	}
}

func TestGenerateTilesCenterOutOrder(t *testing.T) {
	tiles := GenerateTiles(320, 320, 32)
	if len(tiles) < 2 {
		t.Fatal("expected multiple tiles")
	}
	cx, cy := 160.0, 160.0
	prevDist := distToCenter(tiles[0].Rect, cx, cy)
	for _, tl := range tiles[1:] {
		d := distToCenter(tl.Rect, cx, cy)
		if d < prevDist-1e-9 {
			t.Errorf("tile order is not non-decreasing in distance from center: %v then %v", prevDist, d)
		}
		prevDist = d
	}
}

func TestRequestWorkDrainsQueueThenNoWork(t *testing.T) {
	s := New()
	_, renderID := s.StartRender(GenerateTiles(64, 64, 32))
	count := 0
	for {
		_, ok := s.RequestWork(renderID)
		if !ok {
			break
		}
		count++
	}
	if count != 4 {
		t.Errorf("expected 4 tiles dispatched, got %d", count)
	}
	if s.PendingCount() != 0 {
		t.Errorf("expected empty queue, got %d pending", s.PendingCount())
	}
}

func TestRequestWorkRejectsStaleRenderID(t *testing.T) {
	s := New()
	_, renderID := s.StartRender(GenerateTiles(64, 64, 32))
	if _, ok := s.RequestWork(renderID + 1); ok {
		t.Error("expected RequestWork to refuse a stale render id")
	}
}

func TestStartRenderCancelsPriorContext(t *testing.T) {
	s := New()
	ctx1, _ := s.StartRender(GenerateTiles(64, 64, 32))
	_, id2 := s.StartRender(GenerateTiles(64, 64, 32))

	select {
	case <-ctx1.Done():
	default:
		t.Error("starting a new render should cancel the previous render's context")
	}
	if id2 != 2 {
		t.Errorf("render id = %d, want 2", id2)
	}
}

func TestAcceptResultRejectsStaleRenderID(t *testing.T) {
	s := New()
	_, renderID := s.StartRender(GenerateTiles(32, 32, 32))
	if !s.AcceptResult(TileResult{RenderID: renderID}) {
		t.Error("expected current render id to be accepted")
	}
	s.Cancel()
	if s.AcceptResult(TileResult{RenderID: renderID}) {
		t.Error("expected stale render id to be rejected after Cancel")
	}
}

func TestRunWorkersAppliesEveryTileExactlyOnce(t *testing.T) {
	s := New()
	tiles := GenerateTiles(64, 64, 16)
	ctx, renderID := s.StartRender(tiles)

	seen := make(map[int]bool)
	s.RunWorkers(ctx, renderID, 4,
		func(ctx context.Context, renderID uint64, t Tile) ([]compute.Data, error) {
			return []compute.Data{{Kind: compute.KindMandelbrot}}, nil
		},
		func(res TileResult) {
			if seen[res.TileID] {
				t.Errorf("tile %d applied more than once", res.TileID)
			}
			seen[res.TileID] = true
		})

	if len(seen) != len(tiles) {
		t.Errorf("applied %d tiles, want %d", len(seen), len(tiles))
	}
}

func TestRunWorkersDropsResultsAfterCancel(t *testing.T) {
	s := New()
	tiles := GenerateTiles(256, 256, 8)
	ctx, renderID := s.StartRender(tiles)

	applied := 0
	done := make(chan struct{})
	go func() {
		s.RunWorkers(ctx, renderID, 8,
			func(ctx context.Context, renderID uint64, t Tile) ([]compute.Data, error) {
				return []compute.Data{{Kind: compute.KindMandelbrot}}, nil
			},
			func(res TileResult) { applied++ })
		close(done)
	}()
	s.Cancel()
	<-done
	// No assertion on the exact count: the point is that nothing panics and
	// every applied result's render id matches what AcceptResult already
	// guarantees — the race itself is the thing under test.
	_ = applied
}
