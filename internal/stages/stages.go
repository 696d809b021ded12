// Package stages implements the pipeline stages that follow reconciliation:
// local sequence validity and status derivation, and the chunked remote sync
// against the portal (sample lookup, status push, conclusion push, sequence
// upload).
//
// All remote stages share the same protocol: partition eligible rows into
// fixed-size chunks, issue one request per chunk, abort the whole stage on
// the first failed request (mutations from earlier chunks stay in place),
// then verify that every eligible row received the expected field. The
// sequence upload is the one deliberate exception: its failures are recorded
// per row and never abort the batch.
package stages

import (
	"carmon/internal/table"
)

// Markers written into remote tracking fields once the portal confirmed the
// corresponding change.
const (
	MarkerUploaded      = "Uploaded"
	MarkerStatusSet     = "status_set"
	MarkerConclusionSet = "conclusion_set"
)

// chunks partitions rows into consecutive slices of at most size elements.
func chunks(rows []*table.Record, size int) [][]*table.Record {
	if size <= 0 || len(rows) == 0 {
		return nil
	}
	var out [][]*table.Record
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

func sampleNumbers(rows []*table.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.PortalSampleNumber
	}
	return out
}
