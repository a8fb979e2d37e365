// Package region classifies free-text country values against the closed
// set of 54 African countries (AFRINIC ISO3 codes) and renders the
// canonical display form.
//
// Matching is intentionally permissive: after exact code and alias
// lookups fail, any alias or code appearing as a substring of a longer
// candidate counts as a match. That trades precision for recall on
// free-text country fields and is a known source of false positives;
// recall is the stated priority, so do not tighten it here.
package region

import (
	"regexp"
	"sort"
	"strings"
)

// countries maps the canonical country name to its ISO3 code.
var countries = map[string]string{
	// North Africa
	"ALGERIA": "DZA",
	"EGYPT":   "EGY",
	"LIBYA":   "LBY",
	"MOROCCO": "MAR",
	"SUDAN":   "SDN",
	"TUNISIA": "TUN",

	// West Africa
	"BENIN":         "BEN",
	"BURKINA FASO":  "BFA",
	"CAPE VERDE":    "CPV",
	"CÔTE D'IVOIRE": "CIV",
	"GAMBIA":        "GMB",
	"GHANA":         "GHA",
	"GUINEA":        "GIN",
	"GUINEA-BISSAU": "GNB",
	"LIBERIA":       "LBR",
	"MALI":          "MLI",
	"MAURITANIA":    "MRT",
	"NIGER":         "NER",
	"NIGERIA":       "NGA",
	"SENEGAL":       "SEN",
	"SIERRA LEONE":  "SLE",
	"TOGO":          "TGO",

	// Central Africa
	"ANGOLA":                           "AGO",
	"CAMEROON":                         "CMR",
	"CENTRAL AFRICAN REPUBLIC":         "CAF",
	"CHAD":                             "TCD",
	"CONGO":                            "COG",
	"DEMOCRATIC REPUBLIC OF THE CONGO": "COD",
	"EQUATORIAL GUINEA":                "GNQ",
	"GABON":                            "GAB",
	"SÃO TOMÉ AND PRÍNCIPE":            "STP",

	// East Africa
	"BURUNDI":     "BDI",
	"COMOROS":     "COM",
	"DJIBOUTI":    "DJI",
	"ERITREA":     "ERI",
	"ETHIOPIA":    "ETH",
	"KENYA":       "KEN",
	"MADAGASCAR":  "MDG",
	"MALAWI":      "MWI",
	"MAURITIUS":   "MUS",
	"MOZAMBIQUE":  "MOZ",
	"RWANDA":      "RWA",
	"SEYCHELLES":  "SYC",
	"SOMALIA":     "SOM",
	"SOUTH SUDAN": "SSD",
	"TANZANIA":    "TZA",
	"UGANDA":      "UGA",
	"ZAMBIA":      "ZMB",
	"ZIMBABWE":    "ZWE",

	// Southern Africa
	"BOTSWANA":     "BWA",
	"ESWATINI":     "SWZ",
	"LESOTHO":      "LSO",
	"NAMIBIA":      "NAM",
	"SOUTH AFRICA": "ZAF",
}

// aliases maps alternative spellings, legacy names and French forms to a code.
var aliases = map[string]string{
	"CABO VERDE":                   "CPV",
	"CAPE VERDE ISLANDS":           "CPV",
	"IVORY COAST":                  "CIV",
	"COTE D'IVOIRE":                "CIV",
	"COTE DIVOIRE":                 "CIV",
	"DRC":                          "COD",
	"DR CONGO":                     "COD",
	"DEMOCRATIC REP OF CONGO":      "COD",
	"DEMOCRATIC REPUBLIC OF CONGO": "COD",
	"CONGO, DEMOCRATIC REPUBLIC":   "COD",
	"CONGO-KINSHASA":               "COD",
	"CONGO KINSHASA":               "COD",
	"ZAIRE":                        "COD",
	"CONGO-BRAZZAVILLE":            "COG",
	"CONGO BRAZZAVILLE":            "COG",
	"REPUBLIC OF THE CONGO":        "COG",
	"CONGO, REPUBLIC OF":           "COG",
	"SAO TOME AND PRINCIPE":        "STP",
	"SAO TOME & PRINCIPE":          "STP",
	"SAO TOME":                     "STP",
	"SWAZILAND":                    "SWZ",
	"KINGDOM OF ESWATINI":          "SWZ",
	"THE GAMBIA":                   "GMB",
	"GAMBIA, THE":                  "GMB",
	"GUINEE":                       "GIN",
	"GUINEA BISSAU":                "GNB",
	"GUINEE-BISSAU":                "GNB",
	"GUINEE BISSAU":                "GNB",
	"TANZANIE":                     "TZA",
	"TANGANYIKA":                   "TZA",
	"UNITED REPUBLIC OF TANZANIA":  "TZA",
	"CAR":                          "CAF",
	"CENTRAFRIQUE":                 "CAF",
	"REPUBLIQUE CENTRAFRICAINE":    "CAF",
	"CENTRAL AFRICAN REP":          "CAF",
	"RSA":                          "ZAF",
	"REPUBLIC OF SOUTH AFRICA":     "ZAF",
	"SOUTH SUDAN, REPUBLIC OF":     "SSD",
	"REPUBLIC OF SOUTH SUDAN":      "SSD",

	// Legacy and French spellings seen in the oldest archives.
	"MISR":       "EGY",
	"ALGÉRIE":    "DZA",
	"ALGERIE":    "DZA",
	"MAROC":      "MAR",
	"TUNISIE":    "TUN",
	"SÉNÉGAL":    "SEN",
	"CAMEROUN":   "CMR",
	"MAURITANIE": "MRT",
	"MOÇAMBIQUE": "MOZ",
	"TCHAD":      "TCD",
	"ÉTHIOPIE":   "ETH",
	"ETHIOPIE":   "ETH",
	"SOMALIE":    "SOM",
	"OUGANDA":    "UGA",
	"ZAMBIE":     "ZMB",
	"NAMIBIE":    "NAM",
	"ÉGYPTE":     "EGY",
	"EGYPTE":     "EGY",
	"LIBYE":      "LBY",
	"SOUDAN":     "SDN",
}

// Derived lookup structures, built once at startup and never mutated.
// Names and aliases share one substring scan ordered longest key first,
// so "EQUATORIAL GUINEA" wins over "GUINEA" and "DR CONGO" wins over
// "CONGO" regardless of which table each came from.
var (
	codes       = buildCodeSet()
	codeToName  = buildCodeToName()
	keyToCode   = buildKeyToCode()
	keysByLen   = sortKeysByLen(keyToCode)
	codesSorted = sortCodes()
)

var (
	parenCode  = regexp.MustCompile(`\(([A-Z]{3})\)`)
	tokenSplit = regexp.MustCompile(`[,;/|]`)
)

// missing values that never classify
var nonValues = map[string]bool{
	"": true, "NONE": true, "NULL": true, "N/A": true, "NAN": true, "UNKNOWN": true,
}

func buildCodeSet() map[string]bool {
	set := make(map[string]bool, len(countries))
	for _, code := range countries {
		set[code] = true
	}
	return set
}

func buildCodeToName() map[string]string {
	m := make(map[string]string, len(countries))
	for name, code := range countries {
		m[code] = name
	}
	return m
}

func buildKeyToCode() map[string]string {
	m := make(map[string]string, len(countries)+len(aliases))
	for name, code := range countries {
		m[name] = code
	}
	for alias, code := range aliases {
		m[alias] = code
	}
	return m
}

// sortKeysByLen orders substring-scan keys longest first. Keys of three
// characters or fewer (DRC, CAR, RSA) are excluded: those only match as
// exact bare tokens, never inside longer text like "CARIBBEAN".
func sortKeysByLen(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if len(k) <= 3 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func sortCodes() []string {
	out := make([]string, 0, len(codes))
	for code := range codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Classify returns the ISO3 code for the first candidate value that
// resolves to an African country, trying candidates in order. It returns
// ok=false when no candidate matches; such records are dropped upstream.
func Classify(candidates ...string) (string, bool) {
	for _, candidate := range candidates {
		for _, token := range tokenSplit.Split(candidate, -1) {
			if code, ok := classifyOne(token); ok {
				return code, true
			}
		}
	}
	return "", false
}

// Standardize renders the canonical "NAME (CODE)" display form for a code.
// It is a pure function of the code and returns "" for unknown codes.
func Standardize(code string) string {
	name, ok := codeToName[code]
	if !ok {
		return ""
	}
	return name + " (" + code + ")"
}

// Valid reports whether code is a member of the African country set.
func Valid(code string) bool {
	return codes[code]
}

// Codes returns the closed set of recognized region codes in sorted order.
func Codes() []string {
	out := make([]string, len(codesSorted))
	copy(out, codesSorted)
	return out
}

func classifyOne(value string) (string, bool) {
	clean := strings.ToUpper(strings.TrimSpace(value))
	if nonValues[clean] {
		return "", false
	}

	// Bare ISO3 code, or a 3-letter alias like DRC. Non-African codes
	// (ITA, SAU, CAN) stop here rather than reaching the substring path.
	if len(clean) == 3 && isAlpha(clean) {
		if codes[clean] {
			return clean, true
		}
		if code, ok := aliases[clean]; ok {
			return code, true
		}
		return "", false
	}

	// Already-standardized "NAME (CODE)" form.
	if m := parenCode.FindStringSubmatch(clean); m != nil {
		if codes[m[1]] {
			return m[1], true
		}
	}

	// Exact name or alias.
	if code, ok := countries[clean]; ok {
		return code, true
	}
	if code, ok := aliases[clean]; ok {
		return code, true
	}

	// Substring containment, both directions. Short candidates are
	// excluded so stray 2-3 letter fragments don't match everything.
	if len(clean) <= 3 {
		return "", false
	}
	for _, key := range keysByLen {
		if strings.Contains(clean, key) || strings.Contains(key, clean) {
			return keyToCode[key], true
		}
	}
	// Embedded code anywhere in the text, e.g. "NAIROBI KEN OFFICE".
	for _, code := range codesSorted {
		if strings.Contains(clean, code) {
			return code, true
		}
	}
	return "", false
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
