// Package exportfile persists captured event collections and reads them
// back as queryable managers.
//
// The file format is a self-describing stream of JSON lines: a header
// record naming the format, its version, the declared event count, and an
// optional export manifest, followed by exactly that many event records.
// Unknown fields in a record are ignored on read, so files written by a
// newer revision stay readable as long as the version matches; a version
// above what the reader supports is a hard import error.
//
// Import is all-or-nothing: a count mismatch, an unsupported version, or a
// malformed record fails the whole import and no manager is returned.
//
//	count, err := exportfile.ExportFilteredToFile("errors.events",
//		capture.BuildQueryFilter().WithLevelAtLeast(capture.LevelError).Finalize(),
//		"error triage bundle")
//
//	manager, err := exportfile.ImportFromFile("errors.events")
package exportfile
