package match

import (
	"strings"
	"unicode"
)

// suffix nouns stripped from a normalized place name when the remaining
// base keeps at least two characters ("강릉 커피박물관" → "강릉커피").
var placeSuffixes = []string{
	"해수욕장", "게스트하우스", "커피숍", "레스토랑", "박물관", "미술관", "전망대",
	"카페", "식당", "공원", "해변", "시장", "맛집", "거리",
}

// NormalizeName reduces a place name to its comparable core: everything but
// Hangul, Latin letters and digits is dropped (whitespace included), then
// one matching suffix noun is stripped.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.Is(unicode.Hangul, r) || (unicode.IsLetter(r) && r < 0x2000) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	normalized := b.String()

	for _, suffix := range placeSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			base := strings.TrimSuffix(normalized, suffix)
			if len([]rune(base)) >= 2 {
				return base
			}
			break
		}
	}
	return normalized
}

// tokenize splits a raw name on whitespace and normalizes each token,
// for Jaccard overlap in the partial tier.
func tokenize(name string) []string {
	fields := strings.Fields(name)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := NormalizeName(f); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// jaccard computes token-set overlap in [0,1].
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for _, t := range a {
		union[t] = struct{}{}
	}
	inter := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			inter++
		}
		union[t] = struct{}{}
	}
	return float64(inter) / float64(len(union))
}
