package recipe

import (
	"math/big"
	"regexp"
	"strings"
)

// unitVocab holds canonical singular unit forms. Matching is
// case-insensitive and tolerates plural "s"/"es" suffixes; the unit is
// reported as written in the line.
var unitVocab = map[string]bool{
	"cup": true, "tbsp": true, "tsp": true, "oz": true, "lb": true,
	"g": true, "kg": true, "ml": true, "l": true,
	"pint": true, "quart": true, "gallon": true, "inch": true,
	"clove": true, "piece": true, "slice": true,
	"whole": true, "medium": true, "large": true, "small": true,
}

// prepVocab holds preparation descriptors split off from ingredient names.
var prepVocab = map[string]bool{
	"chopped": true, "diced": true, "sliced": true, "minced": true,
	"grated": true, "peeled": true, "cooked": true, "fresh": true,
	"dried": true, "ground": true, "whole": true, "crushed": true,
	"beaten": true, "melted": true,
}

var (
	mixedQtyPattern    = regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)\b`)
	fractionQtyPattern = regexp.MustCompile(`^(\d+)/(\d+)\b`)
	rangeQtyPattern    = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:-|–|to)\s*\d+(?:\.\d+)?\b`)
	plainQtyPattern    = regexp.MustCompile(`^\d+(?:\.\d+)?\b`)

	vulgarFractions = strings.NewReplacer(
		"¼", "1/4", "½", "1/2", "¾", "3/4",
		"⅓", "1/3", "⅔", "2/3", "⅛", "1/8",
	)

	optionalParenPattern = regexp.MustCompile(`(?i)\(\s*optional\s*\)`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

// ParseIngredient decomposes a single ingredient line into quantity, unit,
// name, preparation, and an optional flag. It is pure and never fails: any
// unrecognized structure degrades to putting the text in the name.
func ParseIngredient(line string) ParsedIngredient {
	parsed := ParsedIngredient{
		Optional: strings.Contains(strings.ToLower(line), "optional"),
	}

	working := vulgarFractions.Replace(line)
	working = optionalParenPattern.ReplaceAllString(working, " ")
	working = normalizeSpace(working)
	if working == "" {
		return parsed
	}

	quantity, rest := parseQuantity(working)
	parsed.Quantity = quantity

	if quantity != nil {
		if unit, after, ok := matchUnit(rest); ok {
			parsed.Unit = unit
			rest = after
		}
		rest = strings.TrimPrefix(rest, "of ")
	}

	name, prep := splitPreparation(rest)
	parsed.Name = cleanName(name)
	parsed.Preparation = prep
	return parsed
}

// parseQuantity recognizes a leading integer, decimal, simple fraction,
// mixed number, or range. Arithmetic is exact rational math converted to
// float at the end; a range collapses to its start value.
func parseQuantity(s string) (*float64, string) {
	if m := mixedQtyPattern.FindStringSubmatch(s); m != nil {
		if r, ok := new(big.Rat).SetString(m[2] + "/" + m[3]); ok {
			whole, wholeOK := new(big.Rat).SetString(m[1])
			if wholeOK {
				f, _ := new(big.Rat).Add(whole, r).Float64()
				return &f, strings.TrimSpace(s[len(m[0]):])
			}
		}
		return nil, s
	}
	if m := fractionQtyPattern.FindStringSubmatch(s); m != nil {
		if r, ok := new(big.Rat).SetString(m[1] + "/" + m[2]); ok {
			f, _ := r.Float64()
			return &f, strings.TrimSpace(s[len(m[0]):])
		}
		return nil, s
	}
	if m := rangeQtyPattern.FindStringSubmatch(s); m != nil {
		if r, ok := new(big.Rat).SetString(m[1]); ok {
			f, _ := r.Float64()
			return &f, strings.TrimSpace(s[len(m[0]):])
		}
		return nil, s
	}
	if m := plainQtyPattern.FindString(s); m != "" {
		if r, ok := new(big.Rat).SetString(m); ok {
			f, _ := r.Float64()
			return &f, strings.TrimSpace(s[len(m):])
		}
	}
	return nil, s
}

// matchUnit checks whether the first token of s is a vocabulary unit and
// returns it as written.
func matchUnit(s string) (unit, rest string, ok bool) {
	token, after, _ := strings.Cut(s, " ")
	token = strings.TrimSuffix(token, ".")
	if token == "" {
		return "", s, false
	}

	lower := strings.ToLower(token)
	for _, candidate := range []string{lower, strings.TrimSuffix(lower, "es"), strings.TrimSuffix(lower, "s")} {
		if unitVocab[candidate] {
			return token, strings.TrimSpace(after), true
		}
	}
	return "", s, false
}

// splitPreparation separates preparation text from the name: everything
// after the first comma, plus any leading vocabulary participles.
func splitPreparation(s string) (name, prep string) {
	name, afterComma, hasComma := strings.Cut(s, ",")
	name = strings.TrimSpace(name)

	var leading []string
	words := strings.Fields(name)
	for len(words) > 1 && prepVocab[strings.ToLower(words[0])] {
		leading = append(leading, words[0])
		words = words[1:]
	}
	name = strings.Join(words, " ")

	var parts []string
	if len(leading) > 0 {
		parts = append(parts, strings.Join(leading, " "))
	}
	if hasComma {
		if trimmed := strings.TrimSpace(afterComma); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return name, strings.Join(parts, ", ")
}

// cleanName strips leftover optional markers, normalizes whitespace, and
// drops a trailing comma.
func cleanName(s string) string {
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if strings.EqualFold(strings.Trim(w, ",()"), "optional") {
			continue
		}
		kept = append(kept, w)
	}
	s = strings.Join(kept, " ")
	return strings.TrimSuffix(strings.TrimSpace(s), ",")
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
