package watch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// PatternError reports an ignore pattern that is not a valid regular
// expression.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("ignore pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Filter decides which paths are worth sending for feedback. It is safe for
// concurrent use and never changes after NewFilter.
type Filter struct {
	extensions map[string]struct{}
	ignore     []*regexp.Regexp
}

// NewFilter compiles every ignore pattern as an unanchored regular
// expression matched against the full path.
func NewFilter(extensions, ignorePatterns []string) (*Filter, error) {
	f := &Filter{extensions: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		f.extensions[ext] = struct{}{}
	}
	for _, pattern := range ignorePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &PatternError{Pattern: pattern, Err: err}
		}
		f.ignore = append(f.ignore, re)
	}
	return f, nil
}

// Ignored reports whether path is a dotfile or matches an ignore pattern.
// The extension list is not consulted, so it also applies to directories.
func (f *Filter) Ignored(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	for _, re := range f.ignore {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func (f *Filter) Qualifies(path string) bool {
	if f.Ignored(path) {
		return false
	}
	_, ok := f.extensions[filepath.Ext(path)]
	return ok
}
