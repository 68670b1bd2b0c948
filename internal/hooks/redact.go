package hooks

import "regexp"

// privateBlockPattern matches <private>...</private> blocks, non-greedy
// and spanning newlines, per §4.6/§8's redaction properties.
var privateBlockPattern = regexp.MustCompile(`(?s)<private>.*?</private>`)

// Redact applies each compiled sensitive pattern to text, replacing
// matches with [REDACTED], then strips <private>...</private> blocks
// with [PRIVATE]. Patterns are applied in the order given.
func Redact(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		text = p.ReplaceAllString(text, "[REDACTED]")
	}
	return privateBlockPattern.ReplaceAllString(text, "[PRIVATE]")
}

// CompilePatterns compiles configured sensitive-pattern strings,
// silently skipping any that fail to compile rather than refusing to
// start over a typo in one regex (logged by the caller).
func CompilePatterns(patterns []string) ([]*regexp.Regexp, []error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	var errs []error
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled, errs
}
