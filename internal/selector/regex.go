package selector

import "regexp"

// Regex builds a selector matching pattern against each input string. group
// selects which capture group(s) to emit per match; group defaults to 0
// (whole match) when none is given. Multiple groups are concatenated, in
// the order given, for each match.
func Regex(pattern string, group []int, opts ...Option) *Selector {
	re := regexp.MustCompile(pattern)
	groups := group
	if len(groups) == 0 {
		groups = []int{0}
	}

	produce := func(input string, ctx Context) ([]string, error) {
		matches := re.FindAllStringSubmatch(input, -1)
		var values []string
		for _, m := range matches {
			joined := ""
			for _, g := range groups {
				if g < len(m) {
					joined += m[g]
				}
			}
			values = append(values, joined)
		}
		return values, nil
	}

	return newSelector("regex("+pattern+")", produce, opts...)
}
