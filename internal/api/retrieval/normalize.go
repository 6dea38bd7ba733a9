package retrieval

import "strings"

// administrative suffixes stripped from region/city tokens before matching.
// Ordered longest-first so 특별자치도 wins over 도.
var adminSuffixes = []string{
	"특별자치도", "특별자치시", "광역시", "특별시", "도", "시", "군", "구",
}

// NormalizeAreaToken strips one trailing administrative suffix from a
// region/city token to widen recall ("서울특별시" → "서울"). The base must
// keep at least two characters, otherwise the token is returned as-is.
func NormalizeAreaToken(token string) string {
	token = strings.TrimSpace(token)
	for _, suffix := range adminSuffixes {
		if strings.HasSuffix(token, suffix) {
			base := strings.TrimSuffix(token, suffix)
			if len([]rune(base)) >= 2 {
				return base
			}
			return token
		}
	}
	return token
}

// NormalizeAreaTokens maps NormalizeAreaToken over a list, dropping empties.
func NormalizeAreaTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if n := NormalizeAreaToken(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
