// Package output renders hedgehog's user-facing console stream.
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("51")).
			Foreground(lipgloss.Color("51")).
			Padding(0, 1)
)

const banner = `
   _   ___     _  _          _          _
  /_\ |_ _|___| || |___ __| |__ _ ___| |_  ___  __ _
 / _ \ | ||___| __ / -_) _' / _' / -_) ' \/ _ \/ _' |
/_/ \_\___|   |_||_\___\__,_\__, \___|_||_\___/\__, |
                            |___/              |___/`

// Console writes status lines and streamed feedback to w. Writes from
// concurrent dispatches are serialized line by line but may interleave
// between lines.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, s)
}

func (c *Console) Banner() {
	c.write(bannerStyle.Render(strings.TrimPrefix(banner, "\n")) + "\n\n")
}

func (c *Console) Info(msg string) {
	c.write(infoStyle.Render(msg) + "\n")
}

func (c *Console) Detail(label, value string) {
	c.write(dimStyle.Render(label+":") + " " + value + "\n")
}

func (c *Console) Status(msg string) {
	c.write("\n" + statusStyle.Render(msg) + "\n")
}

func (c *Console) Success(msg string) {
	c.write(successStyle.Render(msg) + "\n")
}

// Error prints a red line prefixed with ✖. err may be nil.
func (c *Console) Error(msg string, err error) {
	line := "✖ " + msg
	if err != nil {
		line = fmt.Sprintf("✖ %s: %v", msg, err)
	}
	c.write(errorStyle.Render(line) + "\n")
}

// Begin opens a feedback block for path.
func (c *Console) Begin(path string) {
	header := boxStyle.Render("AI Feedback for " + filepath.Base(path))
	c.write("\n" + header + "\n" + dimStyle.Render("AI Feedback (streaming)...") + "\n\n")
}

// Chunk writes model output verbatim.
func (c *Console) Chunk(text string) {
	c.write(text)
}

func (c *Console) Done() {
	c.write("\n\n")
}
