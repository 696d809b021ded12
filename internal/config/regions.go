package config

import (
	"carmon/internal/perrors"
)

// RegionTable maps full region names from the lab table to the short codes
// the portal encodes into the leading characters of its sample numbers.
type RegionTable map[string]string

// DefaultRegions returns the built-in region rename table. Codes follow the
// ISO 3166-2:RU subdivision scheme.
func DefaultRegions() RegionTable {
	return RegionTable{
		"Москва":                "MOW",
		"Московская область":    "MOS",
		"Санкт-Петербург":       "SPE",
		"Ленинградская область": "LEN",
		"Нижегородская область": "NIZ",
		"Новосибирская область": "NVS",
	}
}

// Short resolves a full region name to its short code. A missing entry is a
// configuration error for the whole run: the reference table is incomplete
// and must be extended before any output is trustworthy.
func (r RegionTable) Short(fullName string) (string, error) {
	code, ok := r[fullName]
	if !ok {
		return "", perrors.New(perrors.KindConfig, "config.RegionTable.Short",
			"region %q missing from the rename table, add it before rerunning", fullName)
	}
	return code, nil
}
