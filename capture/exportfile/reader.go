package exportfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tascord/spanner/capture"
)

// ImportFromReader deserializes an export stream into a Manager.
//
// Import is all-or-nothing: it fails, returning no manager, when the
// header is malformed, the declared format version is above what this
// reader supports, any record lacks a required field, or the declared
// event count does not match the records actually present.
func ImportFromReader(r io.Reader) (*capture.Manager, error) {
	lines := bufio.NewReader(r)

	head, err := readHeader(lines)
	if err != nil {
		return nil, err
	}

	declared := *head.EventCount

	events := make(capture.Events, 0, declared)
	for i := 0; i < declared; i++ {
		line, readErr := readLine(lines)
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil, fmt.Errorf("%w: declared %d, found %d",
					ErrEventCountMismatch, declared, i)
			}

			return nil, fmt.Errorf("reading event record: %w", readErr)
		}

		var record eventRecord
		if err = jsonAPI.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedRecord, i, err)
		}

		if !record.validate() {
			return nil, fmt.Errorf("%w: record %d lacks a required field", ErrMalformedRecord, i)
		}

		events = append(events, record.toEvent())
	}

	if extra, _ := readLine(lines); len(extra) > 0 {
		return nil, fmt.Errorf("%w: declared %d, found more",
			ErrEventCountMismatch, declared)
	}

	return capture.NewManager(events, head.Manifest), nil
}

// ImportFromFile deserializes an export file into a Manager.
func ImportFromFile(path string) (*capture.Manager, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export file: %w", err)
	}
	defer file.Close()

	return ImportFromReader(file)
}

// ImportAndMergeFromFile imports an export file and appends its events to
// the global store, preserving their original timestamps but assigning
// fresh sequence numbers. Returns the number of events merged. On any
// import error the global store is left untouched.
func ImportAndMergeFromFile(path string) (int, error) {
	manager, err := ImportFromFile(path)
	if err != nil {
		return 0, err
	}

	return capture.GlobalStore().Merge(manager.Events()), nil
}

func readHeader(lines *bufio.Reader) (header, error) {
	line, err := readLine(lines)
	if err != nil {
		return header{}, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	var head header
	if err = jsonAPI.Unmarshal(line, &head); err != nil {
		return header{}, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	if head.Format != FormatName {
		return header{}, fmt.Errorf("%w: unexpected format %q", ErrMalformedHeader, head.Format)
	}

	if head.Version < 1 || head.Version > FormatVersion {
		return header{}, fmt.Errorf("%w: version %d, reader supports up to %d",
			ErrUnsupportedVersion, head.Version, FormatVersion)
	}

	if head.EventCount == nil || *head.EventCount < 0 {
		return header{}, fmt.Errorf("%w: missing or negative event count", ErrMalformedHeader)
	}

	if head.Manifest != nil && head.Manifest.EventCount != *head.EventCount {
		return header{}, fmt.Errorf("%w: manifest declares %d, header declares %d",
			ErrEventCountMismatch, head.Manifest.EventCount, *head.EventCount)
	}

	return head, nil
}

// readLine returns the next non-empty line without its newline, or io.EOF
// when only whitespace remains.
func readLine(lines *bufio.Reader) ([]byte, error) {
	for {
		line, err := lines.ReadBytes('\n')
		line = bytes.TrimSpace(line)

		if len(line) > 0 {
			return line, nil
		}

		if err != nil {
			return nil, err
		}
	}
}
