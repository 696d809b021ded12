// Package registry implements the registry reconciliation engine: for every
// sample record it searches the canonical registry table for entries whose
// free-text value contains the normalized sample name, disambiguates by
// region code, and assigns a per-record match status. Ambiguity is recorded,
// never auto-resolved.
package registry

import (
	"strings"

	"carmon/internal/table"
)

// Entry is one canonical registry row fetched from the portal. SampleNumber
// starts with the region short code; Value is the free-text sample name the
// substring search runs against.
type Entry struct {
	RegistryID     string `json:"registry_id"`
	DepartmentName string `json:"department_name"`
	SampleNumber   string `json:"sample_number"`
	Value          string `json:"value"`
}

// Engine matches working-table records against a registry table.
type Engine struct {
	entries []Entry
	byID    map[string][]Entry
}

// NewEngine builds an engine over the given registry table.
func NewEngine(entries []Entry) *Engine {
	byID := make(map[string][]Entry)
	for _, e := range entries {
		byID[e.RegistryID] = append(byID[e.RegistryID], e)
	}
	return &Engine{entries: entries, byID: byID}
}

// Reconcile assigns a match status and matched registry fields to every
// record of the table. Rerunning over an unchanged table and registry yields
// identical results; previously matched fields are recomputed, not reused.
func (e *Engine) Reconcile(tbl *table.Table) {
	for _, rec := range tbl.Rows() {
		e.reconcileRecord(rec)
	}
}

func (e *Engine) reconcileRecord(rec *table.Record) {
	// Recompute from scratch so reruns cannot leak stale fields.
	rec.RegistryID = ""
	rec.DepartmentName = ""
	rec.PortalSampleNumber = ""
	rec.MatchedValue = ""

	name := NormalizeName(rec.LabSampleName)

	// The operator-supplied registry hint is usually right, so try a
	// pre-filtered pool first and only then fall back to the full table.
	if ids := CleanGuess(rec.LabRegistryGuess); len(ids) > 0 {
		if pool := e.poolForIDs(ids); len(pool) > 0 {
			if res := matchPool(pool, name, rec.RegionCode); res.status.Resolved() {
				res.apply(rec)
				return
			}
		}
	}

	matchPool(e.entries, name, rec.RegionCode).apply(rec)
}

type matchResult struct {
	status table.MatchStatus
	entry  Entry
}

func (m matchResult) apply(rec *table.Record) {
	rec.MatchStatus = m.status
	if !m.status.Resolved() {
		return
	}
	rec.RegistryID = m.entry.RegistryID
	rec.DepartmentName = m.entry.DepartmentName
	rec.PortalSampleNumber = m.entry.SampleNumber
	rec.MatchedValue = m.entry.Value
}

// matchPool is the core match procedure over one candidate pool.
func matchPool(pool []Entry, name, regionCode string) matchResult {
	if name == "" {
		return matchResult{status: table.MatchNone}
	}

	var candidates []Entry
	for _, e := range pool {
		if strings.Contains(strings.ToLower(e.Value), name) {
			candidates = append(candidates, e)
		}
	}

	switch len(candidates) {
	case 0:
		return matchResult{status: table.MatchNone}
	case 1:
		if !regionMatches(candidates[0].SampleNumber, regionCode) {
			return matchResult{status: table.MatchRegionMismatch}
		}
		return resolve(candidates[0], name)
	}

	// Several name candidates: the region code is the tie breaker.
	var inRegion []Entry
	for _, e := range candidates {
		if regionMatches(e.SampleNumber, regionCode) {
			inRegion = append(inRegion, e)
		}
	}
	switch len(inRegion) {
	case 0:
		return matchResult{status: table.MatchNameRegionMismatch}
	case 1:
		return resolve(inRegion[0], name)
	default:
		return matchResult{status: table.MatchDuplicate}
	}
}

func resolve(e Entry, name string) matchResult {
	status := table.MatchAlmostOK
	if strings.ToLower(e.Value) == name {
		status = table.MatchOK
	}
	return matchResult{status: status, entry: e}
}

// regionMatches checks the record's region code against the region prefix
// encoded in the first four characters of a portal sample number.
func regionMatches(sampleNumber, regionCode string) bool {
	if regionCode == "" || len(sampleNumber) < 4 {
		return false
	}
	prefix := sampleNumber[:4]
	if len(regionCode) >= 4 {
		return prefix == regionCode[:4]
	}
	return strings.HasPrefix(prefix, regionCode)
}

func (e *Engine) poolForIDs(ids []string) []Entry {
	var pool []Entry
	for _, id := range ids {
		pool = append(pool, e.byID[id]...)
	}
	return pool
}

// CleanGuess extracts candidate registry ids from the free-text hint field:
// commas become semicolons, everything but digits and separators is
// stripped, and the rest is split into ids.
func CleanGuess(guess string) []string {
	if guess == "" {
		return nil
	}
	var b strings.Builder
	for _, r := range guess {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == ';':
			b.WriteByte(';')
		}
	}
	var ids []string
	for _, part := range strings.Split(b.String(), ";") {
		if part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
