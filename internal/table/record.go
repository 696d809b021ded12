// Package table implements the working sample table the pipeline stages
// share: insertion-ordered records keyed by barcode, with TSV snapshots at
// stage boundaries.
package table

// MatchStatus is the confidence verdict of registry reconciliation for one
// record. The zero value means the record has not been reconciled yet.
type MatchStatus string

const (
	MatchUnset MatchStatus = ""

	// MatchOK: single candidate, region matches, value equals the
	// normalized sample name exactly.
	MatchOK MatchStatus = "OK"

	// MatchAlmostOK: single candidate, region matches, value differs
	// from the sample name only in formatting.
	MatchAlmostOK MatchStatus = "ALMOST_OK"

	// MatchRegionMismatch: single candidate but its region disagrees.
	MatchRegionMismatch MatchStatus = "REGION_MISMATCH"

	// MatchNameRegionMismatch: several name candidates, none in the
	// record's region.
	MatchNameRegionMismatch MatchStatus = "NAME_MATCHES_REGION_MISMATCH"

	// MatchDuplicate: several candidates even after region filtering.
	// Requires manual resolution, never auto-resolved.
	MatchDuplicate MatchStatus = "NAME_AND_REGION_DUPLICATE"

	// MatchNone: no candidate contains the sample name.
	MatchNone MatchStatus = "NO_MATCH"
)

// Resolved reports whether the status carries matched registry fields.
func (s MatchStatus) Resolved() bool {
	return s == MatchOK || s == MatchAlmostOK
}

// TriState is an optional boolean with an explicit unset state, used for
// per-record flags that are computed mid-pipeline.
type TriState int

const (
	Unset TriState = iota
	True
	False
)

func (ts TriState) String() string {
	switch ts {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return ""
	}
}

// ParseTriState is the inverse of String. Unknown text maps to Unset.
func ParseTriState(s string) TriState {
	switch s {
	case "true":
		return True
	case "false":
		return False
	default:
		return Unset
	}
}

// Record is one row of the working table. Assembly-time fields are immutable
// after Append; the remaining fields are populated by later stages and may
// be recomputed on reruns.
type Record struct {
	// Assembly
	Barcode          string
	LabBarcode       string
	LabSampleName    string
	LabRegistryGuess string
	RegionName       string
	RegionCode       string

	// Reconciliation
	RegistryID         string
	DepartmentName     string
	PortalSampleNumber string
	MatchedValue       string
	MatchStatus        MatchStatus

	// Analysis merge
	Lineage string
	Clade   string

	// Local conclusion
	LocalConclusion string

	// Sample status and remote sync
	SequenceValid          TriState
	LocalStatus            string
	RemoteSampleID         string
	RemoteUploadStatus     string
	RemoteStatus           string
	RemoteConclusionStatus string
}
