package config

import "fmt"

// VocabEntry is one text/code pair of a portal dictionary.
type VocabEntry struct {
	Text string `yaml:"text"`
	Code string `yaml:"code"`
}

// Vocabulary is a bidirectional text<->code dictionary mirroring a portal
// dictionary endpoint. Order matters only for display.
type Vocabulary []VocabEntry

// CodeByText resolves a dictionary text to its code.
func (v Vocabulary) CodeByText(text string) (string, bool) {
	for _, e := range v {
		if e.Text == text {
			return e.Code, true
		}
	}
	return "", false
}

// TextByCode resolves a dictionary code to its text.
func (v Vocabulary) TextByCode(code string) (string, bool) {
	for _, e := range v {
		if e.Code == code {
			return e.Text, true
		}
	}
	return "", false
}

// Texts lists all dictionary texts in order.
func (v Vocabulary) Texts() []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = e.Text
	}
	return out
}

// Equal reports whether two vocabularies carry the same text/code pairs,
// regardless of order. Used to detect drift against the portal dictionaries.
func (v Vocabulary) Equal(other Vocabulary) bool {
	if len(v) != len(other) {
		return false
	}
	mine := v.AsMap()
	for _, e := range other {
		if mine[e.Text] != e.Code {
			return false
		}
	}
	return true
}

// AsMap returns the text->code view used for portal drift comparison.
func (v Vocabulary) AsMap() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		out[e.Text] = e.Code
	}
	return out
}

// VocabConfig bundles the locally pinned portal dictionaries plus the
// lineage/clade -> conclusion mapping.
type VocabConfig struct {
	// Status mirrors the portal status-types dictionary.
	Status Vocabulary `yaml:"status"`

	// Conclusions mirrors the portal conclusion-types dictionary.
	Conclusions Vocabulary `yaml:"conclusions"`

	// Named statuses the pipeline assigns locally. All three must be
	// texts of the Status vocabulary.
	StatusReady   string `yaml:"status_ready"`
	StatusConfirm string `yaml:"status_confirm"`
	StatusDefect  string `yaml:"status_defect"`

	// ConclusionMap maps "lineage|clade" to a conclusion code.
	ConclusionMap map[string]string `yaml:"conclusion_map"`

	// ConclusionUnknown is the sentinel code for pairs with no mapping.
	ConclusionUnknown string `yaml:"conclusion_unknown"`
}

// DefaultVocab returns the built-in vocabularies.
func DefaultVocab() VocabConfig {
	return VocabConfig{
		Status: Vocabulary{
			{Text: "Ready", Code: "1"},
			{Text: "Confirmation required", Code: "2"},
			{Text: "Sequence defect", Code: "3"},
		},
		Conclusions: Vocabulary{
			{Text: "Variant of concern", Code: "10"},
			{Text: "Variant of interest", Code: "11"},
			{Text: "No significant variant", Code: "12"},
		},
		StatusReady:   "Ready",
		StatusConfirm: "Confirmation required",
		StatusDefect:  "Sequence defect",
		ConclusionMap: map[string]string{
			"BA.2|21L (Omicron)":   "10",
			"BA.5|22B (Omicron)":   "10",
			"XBB.1.5|23A (Omicron)": "11",
			"B.1.1.529|21K (Omicron)": "10",
		},
		ConclusionUnknown: "not_stated",
	}
}

// Validate checks the vocabulary settings.
func (v VocabConfig) Validate() error {
	for section, vocab := range map[string]Vocabulary{"status": v.Status, "conclusions": v.Conclusions} {
		if len(vocab) == 0 {
			return fmt.Errorf("vocab.%s must not be empty", section)
		}
		texts := make(map[string]bool, len(vocab))
		codes := make(map[string]bool, len(vocab))
		for _, e := range vocab {
			if e.Text == "" || e.Code == "" {
				return fmt.Errorf("vocab.%s contains an empty text or code", section)
			}
			if texts[e.Text] {
				return fmt.Errorf("vocab.%s contains duplicate text %q", section, e.Text)
			}
			if codes[e.Code] {
				return fmt.Errorf("vocab.%s contains duplicate code %q", section, e.Code)
			}
			texts[e.Text] = true
			codes[e.Code] = true
		}
	}
	for _, text := range []string{v.StatusReady, v.StatusConfirm, v.StatusDefect} {
		if _, ok := v.Status.CodeByText(text); !ok {
			return fmt.Errorf("vocab status %q is not in the status vocabulary", text)
		}
	}
	if v.ConclusionUnknown == "" {
		return fmt.Errorf("vocab.conclusion_unknown must not be empty")
	}
	for pair, code := range v.ConclusionMap {
		if _, ok := v.Conclusions.TextByCode(code); !ok {
			return fmt.Errorf("vocab.conclusion_map[%q] uses unknown conclusion code %q", pair, code)
		}
	}
	return nil
}
