package registry

import (
	"strings"
	"unicode"
)

// translitTable is the Cyrillic to Latin romanization used to compare lab
// sample names against registry values. Keys are lowercase; NormalizeName
// lowercases before mapping.
var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "e", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

// HasCyrillic reports whether s contains at least one Cyrillic rune.
func HasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// Transliterate maps Cyrillic runes of s to their Latin romanization,
// leaving everything else untouched. Input is expected lowercased.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if latin, ok := translitTable[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeName produces the canonical comparison key for a lab-submitted
// sample name: lowercase, with Cyrillic transliterated to Latin. Names
// already in Latin are only lowercased, so the key is stable no matter which
// script or capitalization the caller tools emitted.
func NormalizeName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if !HasCyrillic(lower) {
		return lower
	}
	return Transliterate(lower)
}
