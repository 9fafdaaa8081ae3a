package watch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterQualifies(t *testing.T) {
	t.Parallel()

	f, err := NewFilter([]string{".js", ".go"}, []string{"node_modules", "dist"})
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "watched extension", path: "/proj/src/a.js", want: true},
		{name: "second extension", path: "/proj/main.go", want: true},
		{name: "extension not watched", path: "/proj/README.md", want: false},
		{name: "no extension", path: "/proj/Makefile", want: false},
		{name: "extension is case sensitive", path: "/proj/A.JS", want: false},
		{name: "ignored directory", path: "/proj/node_modules/x.js", want: false},
		{name: "pattern matches anywhere in path", path: "/proj/dist-old/app.js", want: false},
		{name: "dotfile", path: "/proj/.eslintrc.js", want: false},
		{name: "dotfile without extension", path: "/proj/.env", want: false},
		{name: "dot directory does not hide children", path: "/proj/.github/ci.js", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Qualifies(tt.path))
		})
	}
}

func TestFilterUnwatchedExtensionNeverQualifies(t *testing.T) {
	t.Parallel()

	paths := []string{"/a/b.txt", "/a/b.jsx", "/a/b.js.bak", "/a/b", "/node_modules/b.py"}
	for _, ignore := range [][]string{nil, {"zzz"}, {"node_modules"}} {
		f, err := NewFilter([]string{".js"}, ignore)
		require.NoError(t, err)
		for _, p := range paths {
			assert.False(t, f.Qualifies(p), "path %s with ignore %v", p, ignore)
		}
	}
}

func TestFilterIgnorePatternBeatsExtension(t *testing.T) {
	t.Parallel()

	f, err := NewFilter([]string{".js"}, []string{`generated`, `\.min\.js$`})
	require.NoError(t, err)

	assert.False(t, f.Qualifies("/proj/generated/api.js"))
	assert.False(t, f.Qualifies("/proj/vendor/jquery.min.js"))
	assert.True(t, f.Qualifies("/proj/vendor/jquery.js"))
}

func TestFilterIgnored(t *testing.T) {
	t.Parallel()

	f, err := NewFilter([]string{".js"}, []string{"node_modules"})
	require.NoError(t, err)

	assert.True(t, f.Ignored("/proj/.git"))
	assert.True(t, f.Ignored("/proj/node_modules"))
	assert.False(t, f.Ignored("/proj/src"))
	assert.False(t, f.Ignored("/proj/notes.txt"))
}

func TestNewFilterRejectsInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFilter([]string{".js"}, []string{"ok", "(unclosed"})
	var patErr *PatternError
	require.True(t, errors.As(err, &patErr))
	assert.Equal(t, "(unclosed", patErr.Pattern)
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "changed", KindChanged.String())
	assert.Equal(t, "added", KindAdded.String())
	assert.Equal(t, "error", KindError.String())
	assert.Equal(t, "ready", KindReady.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
