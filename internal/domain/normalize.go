package domain

import (
	"regexp"
	"strings"
)

var (
	// permitSuffixRe matches trailing inspection/permit ID codes appended to
	// establishment names by the source systems, e.g. "WENDYS-PT01603" or
	// "SUBWAY ID20441".
	permitSuffixRe = regexp.MustCompile(`(?i)[-\s]?(?:pt|id)?\d{4,}$`)

	// storeNumberRe matches a bare trailing store number, e.g. "SONIC  4417".
	storeNumberRe = regexp.MustCompile(`\s+\d{4,}$`)

	// dbaMarkerRe matches the "/DBA" marker some NMED records use to join a
	// legal name with a trade name.
	dbaMarkerRe = regexp.MustCompile(`/(?i:dba)`)
)

// romanNumerals i through xv; enough for any branch number seen in the data.
var romanNumerals = map[string]bool{
	"i": true, "ii": true, "iii": true, "iv": true, "v": true,
	"vi": true, "vii": true, "viii": true, "ix": true, "x": true,
	"xi": true, "xii": true, "xiii": true, "xiv": true, "xv": true,
}

// abbreviations are always rendered fully upper-cased.
var abbreviations = map[string]bool{
	"llc": true, "inc": true, "dba": true,
	"nw": true, "ne": true, "sw": true, "se": true,
	"abq": true, "kfc": true,
}

// stopWords stay lower-case unless they lead the name.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "by": true,
	"for": true, "in": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "with": true,
}

// possessiveRoots are brand names whose trailing "s" lost its apostrophe in
// the source data: "WENDYS" renders as "Wendy's".
var possessiveRoots = map[string]string{
	"applebees": "Applebee's",
	"arbys":     "Arby's",
	"chilis":    "Chili's",
	"churchs":   "Church's",
	"dennys":    "Denny's",
	"dions":     "Dion's",
	"dominos":   "Domino's",
	"hardees":   "Hardee's",
	"mcdonalds": "McDonald's",
	"popeyes":   "Popeye's",
	"wendys":    "Wendy's",
}

// literalCorrections are whole-phrase fixes applied after title-casing.
var literalCorrections = [][2]string{
	{"Jimmy Johns", "Jimmy John's"},
	{"Moka Joes", "Moka Joe's"},
	{"Dutch Bros", "Dutch Bros."},
}

// IdentityKey produces the grouping key for an establishment name: the
// lower-cased, trimmed raw name. Address is deliberately not part of the key;
// see Aggregate.
func IdentityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DisplayName converts a raw establishment name from the government feeds
// into a human-friendly form: permit/store-number suffixes stripped, words
// title-cased with known abbreviations and roman numerals upper-cased, and
// possessive apostrophes restored for known brands.
//
// The transform is a best-effort heuristic over noisy source data. It is
// deterministic: identical input always yields identical output.
func DisplayName(raw string) string {
	s := strings.TrimSpace(raw)

	s = permitSuffixRe.ReplaceAllString(s, "")
	s = strings.TrimRight(s, " #-")
	s = dbaMarkerRe.ReplaceAllString(s, " DBA ")
	s = storeNumberRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	words := strings.Split(strings.ToLower(s), " ")
	for i, w := range words {
		words[i] = titleWord(w, i, words)
	}
	for i, w := range words {
		if rep, ok := possessiveRoots[strings.ToLower(w)]; ok {
			words[i] = rep
		}
	}
	s = strings.Join(words, " ")

	for _, c := range literalCorrections {
		s = strings.ReplaceAll(s, c[0], c[1])
	}
	return s
}

// titleWord title-cases a single space-separated token according to the
// display-name rules. i is the token's position; words is the full token
// slice, needed for the "A & V" adjacency exception.
func titleWord(w string, i int, words []string) string {
	if w == "" {
		return w
	}
	if abbreviations[w] {
		return strings.ToUpper(w)
	}
	if romanNumerals[w] {
		return strings.ToUpper(w)
	}
	if stopWords[w] && i > 0 {
		// "a" adjacent to "&" is an initial, not an article: "A & V Market".
		if w == "a" && (adjacentIs(words, i, "&")) {
			return "A"
		}
		return w
	}
	for _, sep := range []string{"-", "/"} {
		if strings.Contains(w, sep) {
			parts := strings.Split(w, sep)
			for j, p := range parts {
				if abbreviations[p] {
					parts[j] = strings.ToUpper(p)
				} else {
					parts[j] = capitalize(p)
				}
			}
			return strings.Join(parts, sep)
		}
	}
	return capitalize(w)
}

func adjacentIs(words []string, i int, tok string) bool {
	if i > 0 && words[i-1] == tok {
		return true
	}
	return i+1 < len(words) && words[i+1] == tok
}

// capitalize upper-cases the first letter of w, tolerating a single leading
// punctuation character such as an opening parenthesis or quote.
func capitalize(w string) string {
	runes := []rune(w)
	for i, r := range runes {
		if i > 1 {
			break
		}
		if 'a' <= r && r <= 'z' {
			runes[i] = r - 'a' + 'A'
			break
		}
		if 'A' <= r && r <= 'Z' {
			break
		}
	}
	return string(runes)
}
