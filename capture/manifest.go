package capture

import (
	"time"
)

// ExportManifest is descriptive metadata bundled with an exported event
// collection.
//
// FilterApplied records the criteria used to produce the export, for
// provenance only; it is not re-applied on import. EventCount must equal
// the number of serialized records, a mismatch is a corruption error
// detected on import.
type ExportManifest struct {
	Description   string       `json:"description,omitempty"`
	FilterApplied *QueryFilter `json:"filter_applied,omitempty"`
	ExportedAt    time.Time    `json:"exported_at"`
	EventCount    int          `json:"event_count"`
}

// BuildExportManifest creates a manifest for an export of count events.
// A zero filter is recorded as "no filter applied".
func BuildExportManifest(description string, filter QueryFilter, count int) ExportManifest {
	manifest := ExportManifest{
		Description: description,
		ExportedAt:  time.Now(),
		EventCount:  count,
	}

	if !filter.IsEmpty() {
		manifest.FilterApplied = &filter
	}

	return manifest
}
