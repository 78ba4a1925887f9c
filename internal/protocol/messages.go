// Package protocol defines the typed main <-> worker message envelopes
// (spec §6). All fields are present in every variant — workers are
// separate execution contexts communicating only by serialized messages
// (spec §5), so there is no shared struct to narrow by variant; Type picks
// out which fields are meaningful for a given message.
package protocol

import (
	"encoding/json"

	"github.com/whalelogic/deepbrot/internal/bigfloat"
	"github.com/whalelogic/deepbrot/internal/compute"
	"github.com/whalelogic/deepbrot/internal/errs"
	"github.com/whalelogic/deepbrot/internal/hdrfloat"
	"github.com/whalelogic/deepbrot/internal/scheduler"
)

// Type tags which variant a message carries.
type Type string

const (
	// MainToWorker variants.
	TypeInitialize            Type = "initialize"
	TypeStoreReferenceOrbit   Type = "store_reference_orbit"
	TypeRenderTile            Type = "render_tile"
	TypeNoWork                Type = "no_work"
	TypeTerminate             Type = "terminate"

	// WorkerToMain variants.
	TypeReady         Type = "ready"
	TypeRequestWork   Type = "request_work"
	TypeTileComplete  Type = "tile_complete"
	TypeError         Type = "error"
)

// MainToWorker is the envelope the main execution context sends to a
// worker.
type MainToWorker struct {
	Type Type `json:"type"`

	// Initialize
	RendererID string `json:"renderer_id,omitempty"`

	// StoreReferenceOrbit
	OrbitID    string              `json:"orbit_id,omitempty"`
	CRef       bigfloat.Complex    `json:"c_ref,omitempty"`
	Orbit      []hdrfloat.Complex  `json:"orbit,omitempty"`
	Derivative []hdrfloat.Complex  `json:"derivative,omitempty"`
	EscapedAt  *int                `json:"escaped_at,omitempty"`
	DcMax      hdrfloat.HDRFloat   `json:"dc_max,omitempty"`
	BlaEnabled bool                `json:"bla_enabled,omitempty"`

	// RenderTile
	RenderID      uint64         `json:"render_id,omitempty"`
	ViewportJSON  string         `json:"viewport_json,omitempty"`
	Tile          *scheduler.Tile `json:"tile,omitempty"`
	PrecisionBits uint32         `json:"precision_bits,omitempty"`
}

// WorkerToMain is the envelope a worker sends back to the main context.
type WorkerToMain struct {
	Type Type `json:"type"`

	// RequestWork
	RenderID uint64 `json:"render_id,omitempty"`

	// TileComplete
	Tile          *scheduler.Tile `json:"tile,omitempty"`
	Data          []compute.Data  `json:"data,omitempty"`
	ComputeTimeMs int64           `json:"compute_time_ms,omitempty"`

	// Error
	Message string `json:"message,omitempty"`
}

// Encode/Decode wrap encoding/json so callers never construct malformed
// envelopes by hand; a decode failure comes back wrapped as
// errs.KindMessageParse so the caller can log and discard the message per
// spec §7 instead of treating it as fatal.
func EncodeMainToWorker(m MainToWorker) ([]byte, error) {
	return json.Marshal(m)
}

func DecodeMainToWorker(data []byte) (MainToWorker, error) {
	var m MainToWorker
	if err := json.Unmarshal(data, &m); err != nil {
		return m, errs.Wrap(errs.KindMessageParse, "decode main-to-worker message", err)
	}
	return m, nil
}

func EncodeWorkerToMain(m WorkerToMain) ([]byte, error) {
	return json.Marshal(m)
}

func DecodeWorkerToMain(data []byte) (WorkerToMain, error) {
	var m WorkerToMain
	if err := json.Unmarshal(data, &m); err != nil {
		return m, errs.Wrap(errs.KindMessageParse, "decode worker-to-main message", err)
	}
	return m, nil
}
