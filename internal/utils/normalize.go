package utils

import (
	"regexp"
	"strings"
)

var (
	districtPattern    = regexp.MustCompile(`(?i)^(?:praha|prague)\s*-?\s*(\d{1,2})$`)
	dispositionPattern = regexp.MustCompile(`(?i)^(\d)\s*\+?\s*(kk|1)$`)
)

// dispositionAliases maps colloquial flat types to the listing disposition notation
var dispositionAliases = map[string]string{
	"studio":     "1+kk",
	"garsonka":   "1+kk",
	"garsoniera": "1+kk",
	"garsonyera": "1+kk",
	"atelier":    "1+kk",
}

// NormalizeDistrict maps the spellings a model or user may produce ("Prague 8",
// "praha8", "Praha-8") to the stored form "Praha 8". Anything else is only trimmed.
func NormalizeDistrict(district string) string {
	d := strings.Join(strings.Fields(district), " ")
	if m := districtPattern.FindStringSubmatch(d); m != nil {
		if n := strings.TrimLeft(m[1], "0"); n != "" {
			return "Praha " + n
		}
	}
	return d
}

// NormalizeDisposition maps "2 + kk", "2kk" or "studio" to the "2+kk" notation
func NormalizeDisposition(disposition string) string {
	d := strings.ToLower(strings.TrimSpace(disposition))
	if alias, ok := dispositionAliases[d]; ok {
		return alias
	}
	if m := dispositionPattern.FindStringSubmatch(d); m != nil {
		return m[1] + "+" + m[2]
	}
	return d
}
