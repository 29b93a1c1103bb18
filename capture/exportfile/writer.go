package exportfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tascord/spanner/capture"
)

// ExportToWriter serializes the events, with an optional manifest, to the
// sink. When a manifest is given its EventCount must equal the number of
// events; the mismatch would otherwise surface as a corruption error on
// import.
func ExportToWriter(w io.Writer, events capture.Events, manifest *capture.ExportManifest) error {
	if manifest != nil && manifest.EventCount != len(events) {
		return fmt.Errorf("%w: manifest declares %d, exporting %d",
			ErrEventCountMismatch, manifest.EventCount, len(events))
	}

	buffered := bufio.NewWriter(w)
	count := len(events)

	if err := writeRecord(buffered, header{
		Format:     FormatName,
		Version:    FormatVersion,
		ExportedAt: time.Now(),
		EventCount: &count,
		Manifest:   manifest,
	}); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}

	for _, event := range events {
		if err := writeRecord(buffered, event); err != nil {
			return fmt.Errorf("writing event record: %w", err)
		}
	}

	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("flushing export: %w", err)
	}

	return nil
}

// ExportEventsToFile serializes the given events to a file, creating or
// truncating it.
func ExportEventsToFile(path string, events capture.Events, manifest *capture.ExportManifest) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}

	if err = ExportToWriter(file, events, manifest); err != nil {
		_ = file.Close()
		return err
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}

	return nil
}

// ExportToFile serializes a snapshot of the global store to a file and
// returns the number of events written. A never-started capture exports an
// empty, still importable, file.
func ExportToFile(path string) (int, error) {
	events, _ := capture.GlobalEvents()

	if err := ExportEventsToFile(path, events, nil); err != nil {
		return 0, err
	}

	return len(events), nil
}

// ExportFilteredToFile applies the filter to a snapshot of the global
// store, records the criteria and description in a manifest, and
// serializes the matching events to a file. Returns the number of events
// written.
func ExportFilteredToFile(path string, filter capture.QueryFilter, description string) (int, error) {
	events, _ := capture.GlobalEvents()
	matched := capture.NewManager(events, nil).Search(filter)

	manifest := capture.BuildExportManifest(description, filter, len(matched))

	if err := ExportEventsToFile(path, matched, &manifest); err != nil {
		return 0, err
	}

	return len(matched), nil
}

func writeRecord(w *bufio.Writer, record any) error {
	line, err := jsonAPI.Marshal(record)
	if err != nil {
		return err
	}

	if _, err = w.Write(line); err != nil {
		return err
	}

	return w.WriteByte('\n')
}
