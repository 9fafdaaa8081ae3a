package feedback

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Request is everything sent to the model for one dispatch.
type Request struct {
	Path         string
	RelativePath string
	Language     string
	Content      string
	Prompt       string
}

// NewRequest derives the relative path and language for path under root and
// renders the prompt around content.
func NewRequest(root, path, content string) Request {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	lang := strings.TrimPrefix(filepath.Ext(path), ".")
	return Request{
		Path:         path,
		RelativePath: rel,
		Language:     lang,
		Content:      content,
		Prompt:       renderPrompt(rel, lang, content),
	}
}

const promptTemplate = `
File: %s
Content:
%s%s
%s
%s

Please provide feedback on this code, including:
1. Potential bugs or issues
2. Optimization suggestions
3. Best practices recommendations
4. Any other helpful insights
`

func renderPrompt(rel, lang, content string) string {
	f := fence(content)
	return fmt.Sprintf(promptTemplate, rel, f, lang, content, f)
}

// fence returns a backtick fence longer than any backtick run in content,
// never shorter than three.
func fence(content string) string {
	longest, run := 0, 0
	for i := 0; i < len(content); i++ {
		if content[i] == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	n := 3
	if longest >= n {
		n = longest + 1
	}
	return strings.Repeat("`", n)
}
