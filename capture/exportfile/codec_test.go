package exportfile_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tascord/spanner/capture"
	"github.com/tascord/spanner/capture/exportfile"
)

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func sampleEvents() capture.Events {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	first := capture.NewEvent(capture.LevelInfo, "app::startup", "listening", capture.Fields{
		{Key: "port", Value: capture.IntValue(8080)},
		{Key: "tls", Value: capture.BoolValue(false)},
	})
	first.SequenceNumber = 1
	first.Timestamp = base

	second := capture.NewEvent(capture.LevelError, "app::db", "connection refused", nil).
		WithSpans([]capture.SpanRef{
			{ID: "aaaa", TraceID: "tttt", Name: "connect"},
		}).
		WithLocation("db.go", 42).
		WithProcessID(1234).
		WithCorrelationID("req-1").
		WithMetadata("region", "eu-west-1")
	second.SequenceNumber = 2
	second.Timestamp = base.Add(time.Second)

	return capture.Events{first, second}
}

func Test_ExportImport_RoundTripPreservesEvents(t *testing.T) {
	events := sampleEvents()

	var buf bytes.Buffer
	require.NoError(t, exportfile.ExportToWriter(&buf, events, nil))

	manager, err := exportfile.ImportFromReader(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, manager.Len())
	assert.Nil(t, manager.Manifest())

	imported := manager.Events()
	for i := range events {
		assert.Equal(t, events[i].SequenceNumber, imported[i].SequenceNumber)
		assert.Equal(t, events[i].Level, imported[i].Level)
		assert.Equal(t, events[i].Target, imported[i].Target)
		assert.Equal(t, events[i].Message, imported[i].Message)
		assert.True(t, events[i].Timestamp.Equal(imported[i].Timestamp))
	}

	port, ok := imported[0].Fields.Get("port")
	require.True(t, ok)
	assert.Equal(t, int64(8080), port.Int())

	require.NotNil(t, imported[1].CurrentSpan)
	assert.Equal(t, "connect", imported[1].CurrentSpan.Name)
	assert.Equal(t, "db.go", imported[1].File)
	assert.Equal(t, 42, imported[1].Line)
	assert.Equal(t, "req-1", imported[1].CorrelationID)
	assert.Equal(t, "eu-west-1", imported[1].Metadata["region"])
}

func Test_ExportImport_RoundTripProperty(t *testing.T) {
	levels := []capture.Level{
		capture.LevelError, capture.LevelWarn, capture.LevelInfo,
		capture.LevelDebug, capture.LevelTrace,
	}

	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 20).Draw(t, "count")

		events := make(capture.Events, 0, count)
		for i := 0; i < count; i++ {
			label := fmt.Sprintf("event %d", i)

			e := capture.NewEvent(
				rapid.SampledFrom(levels).Draw(t, label+" level"),
				rapid.StringN(-1, 40, -1).Draw(t, label+" target"),
				rapid.String().Draw(t, label+" message"),
				nil,
			)
			e.SequenceNumber = uint64(i + 1)
			e.Timestamp = time.Unix(
				rapid.Int64Range(0, 4_000_000_000).Draw(t, label+" sec"),
				rapid.Int64Range(0, 999_999_999).Draw(t, label+" nsec"),
			).UTC()

			if rapid.Bool().Draw(t, label+" has field") {
				e.Fields = capture.Fields{{
					Key:   rapid.StringN(1, 20, -1).Draw(t, label+" field key"),
					Value: capture.FloatValue(rapid.Float64Range(-1e12, 1e12).Draw(t, label+" field value")),
				}}
			}

			events = append(events, e)
		}

		var buf bytes.Buffer
		if err := exportfile.ExportToWriter(&buf, events, nil); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		manager, err := exportfile.ImportFromReader(&buf)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		imported := manager.Events()
		if len(imported) != len(events) {
			t.Fatalf("expected %d events, got %d", len(events), len(imported))
		}

		for i := range events {
			if events[i].SequenceNumber != imported[i].SequenceNumber ||
				events[i].Level != imported[i].Level ||
				events[i].Target != imported[i].Target ||
				events[i].Message != imported[i].Message ||
				!events[i].Timestamp.Equal(imported[i].Timestamp) ||
				!events[i].Fields.Equal(imported[i].Fields) {
				t.Fatalf("event %d changed across the round trip", i)
			}
		}
	})
}

func Test_ExportToWriter_RejectsManifestCountMismatch(t *testing.T) {
	events := sampleEvents()
	manifest := capture.BuildExportManifest("bad count", capture.MatchingAnyEvent(), len(events)+1)

	var buf bytes.Buffer
	err := exportfile.ExportToWriter(&buf, events, &manifest)

	assert.ErrorIs(t, err, exportfile.ErrEventCountMismatch)
}

func Test_ImportFromReader_CountMismatchFailsWithoutPartialResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, exportfile.ExportToWriter(&buf, sampleEvents(), nil))

	// Drop the final record so the stream declares 2 but carries 1.
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	truncated := strings.Join(lines[:2], "\n") + "\n"

	manager, err := exportfile.ImportFromReader(strings.NewReader(truncated))

	require.ErrorIs(t, err, exportfile.ErrEventCountMismatch)
	assert.Contains(t, err.Error(), "declared 2, found 1")
	assert.Nil(t, manager)
}

func Test_ImportFromReader_ExtraRecordsAreAMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, exportfile.ExportToWriter(&buf, sampleEvents(), nil))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	withExtra := strings.Join(append(lines, lines[len(lines)-1]), "\n") + "\n"

	manager, err := exportfile.ImportFromReader(strings.NewReader(withExtra))

	assert.ErrorIs(t, err, exportfile.ErrEventCountMismatch)
	assert.Nil(t, manager)
}

func Test_ImportFromReader_RejectsUnsupportedVersion(t *testing.T) {
	stream := `{"format":"spanner-events","version":2,"exported_at":"2026-03-01T12:00:00Z","event_count":0}` + "\n"

	manager, err := exportfile.ImportFromReader(strings.NewReader(stream))

	assert.ErrorIs(t, err, exportfile.ErrUnsupportedVersion)
	assert.Nil(t, manager)
}

func Test_ImportFromReader_RejectsMalformedHeaders(t *testing.T) {
	testCases := []struct {
		name   string
		stream string
	}{
		{name: "empty stream", stream: ""},
		{name: "not json", stream: "not json at all\n"},
		{name: "wrong format name", stream: `{"format":"other","version":1,"event_count":0}` + "\n"},
		{name: "missing event count", stream: `{"format":"spanner-events","version":1}` + "\n"},
		{name: "negative event count", stream: `{"format":"spanner-events","version":1,"event_count":-1}` + "\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			manager, err := exportfile.ImportFromReader(strings.NewReader(tc.stream))

			assert.ErrorIs(t, err, exportfile.ErrMalformedHeader)
			assert.Nil(t, manager)
		})
	}
}

func Test_ImportFromReader_RejectsRecordsLackingRequiredFields(t *testing.T) {
	stream := `{"format":"spanner-events","version":1,"event_count":1}` + "\n" +
		`{"sequence_number":1,"timestamp":"2026-03-01T12:00:00Z","level":"INFO","target":"app"}` + "\n"

	manager, err := exportfile.ImportFromReader(strings.NewReader(stream))

	assert.ErrorIs(t, err, exportfile.ErrMalformedRecord)
	assert.Nil(t, manager)
}

func Test_ImportFromReader_UnknownHeaderFieldsAreIgnored(t *testing.T) {
	stream := `{"format":"spanner-events","version":1,"event_count":0,"compression":"zstd"}` + "\n"

	manager, err := exportfile.ImportFromReader(strings.NewReader(stream))

	require.NoError(t, err)
	assert.True(t, manager.IsEmpty())
}

func Test_ExportFiltered_ManifestRecordsCriteriaAcrossTheRoundTrip(t *testing.T) {
	store, err := capture.InitGlobalStore()
	require.NoError(t, err)

	store.Append(capture.NewEvent(capture.LevelInfo, "app", "kept out", nil))
	store.Append(capture.NewEvent(capture.LevelError, "app", "kept in", nil))

	path := filepath.Join(t.TempDir(), "errors.events")
	filter := capture.BuildQueryFilter().WithLevelAtLeast(capture.LevelError).Finalize()

	written, err := exportfile.ExportFilteredToFile(path, filter, "error triage")
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	manager, err := exportfile.ImportFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, manager.Len())
	assert.Equal(t, "kept in", manager.Events()[0].Message)

	manifest := manager.Manifest()
	require.NotNil(t, manifest)
	assert.Equal(t, "error triage", manifest.Description)
	assert.Equal(t, 1, manifest.EventCount)
	require.NotNil(t, manifest.FilterApplied)

	floor, ok := manifest.FilterApplied.LevelFloor()
	require.True(t, ok)
	assert.Equal(t, capture.LevelError, floor)
}

func Test_ImportAndMergeFromFile_AppendsWithFreshSequenceNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merge.events")
	require.NoError(t, exportfile.ExportEventsToFile(path, sampleEvents(), nil))

	store, err := capture.InitGlobalStore()
	require.NoError(t, err)
	store.Append(capture.NewEvent(capture.LevelInfo, "app", "existing", nil))

	merged, err := exportfile.ImportAndMergeFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, merged)

	events, ok := capture.GlobalEvents()
	require.True(t, ok)
	require.Len(t, events, 3)

	assert.Equal(t, uint64(2), events[1].SequenceNumber)
	assert.Equal(t, uint64(3), events[2].SequenceNumber)
	assert.True(t, events[1].Timestamp.Equal(sampleEvents()[0].Timestamp),
		"merged events keep their original timestamps")
}

func Test_ImportAndMergeFromFile_LeavesTheStoreUntouchedOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.events")
	stream := `{"format":"spanner-events","version":1,"event_count":3}` + "\n"
	requireWriteFile(t, path, stream)

	store, err := capture.InitGlobalStore()
	require.NoError(t, err)

	merged, err := exportfile.ImportAndMergeFromFile(path)
	assert.ErrorIs(t, err, exportfile.ErrEventCountMismatch)
	assert.Equal(t, 0, merged)
	assert.Equal(t, 0, store.Len())
}

func Test_ExportToFile_NeverStartedCaptureWritesAnEmptyFile(t *testing.T) {
	_, err := capture.InitGlobalStore()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "empty.events")

	written, err := exportfile.ExportToFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, written)

	manager, err := exportfile.ImportFromFile(path)
	require.NoError(t, err)
	assert.True(t, manager.IsEmpty())
}
