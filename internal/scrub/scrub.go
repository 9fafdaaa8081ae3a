// Package scrub masks credentials in source text before it leaves the machine.
package scrub

import "regexp"

type rule struct {
	re   *regexp.Regexp
	repl string
}

var rules = []rule{
	// .env style VAR=value lines keep the VAR= part
	{regexp.MustCompile(`(?m)^([A-Z][A-Z0-9_]*)=\S+$`), "${1}=[REDACTED]"},
	// OpenAI and generic sk- keys, including sk-ant-
	{regexp.MustCompile(`sk-[a-zA-Z0-9\-_]{20,}`), "[REDACTED_KEY]"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},
	{regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`), "[REDACTED_KEY]"},
	{regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36}`), "[REDACTED_KEY]"},
	// Replicate API tokens
	{regexp.MustCompile(`r8_[a-zA-Z0-9]{30,}`), "[REDACTED_KEY]"},
	// AWS access key ids
	{regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`), "[REDACTED_KEY]"},
}

// Clean scrubs secrets from text before it is sent to a model provider.
func Clean(input string) string {
	out, _ := Redact(input)
	return out
}

// Redact is Clean that also reports how many secrets were masked.
func Redact(input string) (string, int) {
	count := 0
	for _, r := range rules {
		input = r.re.ReplaceAllStringFunc(input, func(match string) string {
			count++
			return r.re.ReplaceAllString(match, r.repl)
		})
	}
	return input, count
}
