package monitor

import (
	"encoding/json"
	"io"

	"github.com/kubegov/manifestgate/internal/store"
)

// CheckOutput is the JSON envelope for `manifestgate check --output json`.
// Wraps the snapshot with exit-code metadata without polluting the
// Snapshot type used by the serve-mode /api/v1/decisions endpoint.
type CheckOutput struct {
	Snapshot store.Snapshot `json:"snapshot"`
	ExitCode int            `json:"exitCode"`
}

// WriteJSON serializes a CheckOutput envelope to w.
func WriteJSON(w io.Writer, snap store.Snapshot, exitCode int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(CheckOutput{
		ExitCode: exitCode,
		Snapshot: snap,
	})
}
