// Package query expands a tracked entity name into the ordered search
// strings the retrieval cascade feeds to the providers.
package query

import "strings"

// Role and party keywords for the political monitoring domain. A mention
// qualified by one of these is far more likely to be about the tracked
// actor than a bare name match.
var roleKeywords = []string{
	"alcalde",
	"alcaldesa",
	"presidente municipal",
	"edil",
	"diputado",
	"diputada",
	"senador",
	"senadora",
	"candidato",
	"candidata",
}

var partyKeywords = []string{"morena", "pan", "pri", "prd", "mc", "verde", "pt"}

// Variant is one built search string. HasLocality tells the cascade which
// tier the variant belongs to; Qualified marks role/party/keyword variants,
// which compete for tier slots, unlike the broad name forms that always run.
type Variant struct {
	Text        string
	HasLocality bool
	Qualified   bool
}

// BuildVariants builds the cross product of the entity name (quoted and
// unquoted) with role/party keywords, locality hints and extra hints.
// The result is deduplicated and ordered most specific first:
// qualifier+locality, then qualifier-only, then locality-only, then the
// bare name. Pure and deterministic.
func BuildVariants(entity string, localityHints, extraHints []string) []Variant {
	name := strings.TrimSpace(entity)
	if name == "" {
		return nil
	}

	forms := []string{`"` + name + `"`, name}
	qualifiers := make([]string, 0, len(roleKeywords)+len(partyKeywords)+len(extraHints))
	qualifiers = append(qualifiers, roleKeywords...)
	qualifiers = append(qualifiers, partyKeywords...)
	qualifiers = append(qualifiers, normList(extraHints)...)
	localities := normList(localityHints)

	seen := make(map[string]bool)
	var qualifiedLocal, qualified, local, bare []Variant

	add := func(bucket *[]Variant, text string, hasLocality, isQualified bool) {
		if seen[text] {
			return
		}
		seen[text] = true
		*bucket = append(*bucket, Variant{Text: text, HasLocality: hasLocality, Qualified: isQualified})
	}

	for _, f := range forms {
		for _, q := range qualifiers {
			for _, l := range localities {
				add(&qualifiedLocal, f+" "+q+" "+l, true, true)
			}
			add(&qualified, f+" "+q, false, true)
		}
		for _, l := range localities {
			add(&local, f+" "+l, true, false)
		}
		add(&bare, f, false, false)
	}

	out := make([]Variant, 0, len(qualifiedLocal)+len(qualified)+len(local)+len(bare))
	out = append(out, qualifiedLocal...)
	out = append(out, qualified...)
	out = append(out, local...)
	out = append(out, bare...)
	return out
}

// Tokens returns the distinct lowercased texts of the variants, used by the
// ranker for mention matching.
func Tokens(variants []Variant) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		t := strings.ToLower(strings.Trim(v.Text, `"`))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func normList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		s := strings.TrimSpace(v)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
