// Package ui renders orchestrator progress on a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/hupe1980/rlmesh/agent"
	"github.com/hupe1980/rlmesh/core"
)

// Compile-time check that Renderer satisfies agent.Observer.
var _ agent.Observer = (*Renderer)(nil)

// Options configures a Renderer.
type Options struct {
	// ShowCode prints every generated snippet.
	ShowCode bool
	// MaxOutput bounds the rendered output preview in runes. Zero hides
	// output.
	MaxOutput int
	// Width of code and output boxes.
	Width int
}

type styles struct {
	run     lipgloss.Style
	step    lipgloss.Style
	query   lipgloss.Style
	final   lipgloss.Style
	failed  lipgloss.Style
	detail  lipgloss.Style
	codeBox lipgloss.Style
	errBox  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, width int) styles {
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(width)

	return styles{
		run:     r.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true),
		step:    r.NewStyle().Foreground(lipgloss.Color("#CCCCCC")),
		query:   r.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		final:   r.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		failed:  r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		detail:  r.NewStyle().Foreground(lipgloss.Color("#A0AEC0")),
		codeBox: box.BorderForeground(lipgloss.Color("#5B8DEF")),
		errBox:  box.BorderForeground(lipgloss.Color("#FF6B6B")),
	}
}

// Renderer prints steps, child queries and results, indented by depth.
// Notifications from concurrent branches are serialized, so the blocks of one
// event never interleave.
type Renderer struct {
	mu     sync.Mutex
	w      io.Writer
	opts   Options
	styles styles
}

// NewRenderer creates a renderer writing to w. Colors follow w's terminal
// capabilities.
func NewRenderer(w io.Writer, optFns ...func(o *Options)) *Renderer {
	opts := Options{
		MaxOutput: 400,
		Width:     80,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Renderer{
		w:      w,
		opts:   opts,
		styles: newStyles(lipgloss.NewRenderer(w), opts.Width),
	}
}

// OnStart implements agent.Observer.
func (r *Renderer) OnStart(inv core.Invocation) {
	label := "root"
	if !inv.IsRoot() {
		label = "child of " + core.ShortRunID(inv.ParentRunID)
	}
	if inv.Leaf {
		label += ", leaf"
	}

	r.print(inv.Depth, r.styles.run.Render(fmt.Sprintf("▶ %s  depth %d  %s", core.ShortRunID(inv.RunID), inv.Depth, inv.Model))+
		" "+r.styles.detail.Render("("+label+")"))
}

// OnStep implements agent.Observer.
func (r *Renderer) OnStep(ev agent.StepEvent) {
	s := ev.Step

	var b strings.Builder
	header := fmt.Sprintf("step %d", s.Index)
	if s.Index == 0 {
		header += " (probe)"
	}
	b.WriteString(r.styles.step.Render(header))
	b.WriteString(" " + r.styles.detail.Render(Usage(ev.Total)))

	if r.opts.ShowCode && s.Index > 0 && s.Code != "" {
		b.WriteString("\n" + r.styles.codeBox.Render(s.Code))
	}

	switch {
	case !s.Executed():
		b.WriteString("\n" + r.styles.failed.Render("no code block in reply"))
	case r.opts.MaxOutput > 0:
		box := r.styles.codeBox
		if s.HasError {
			box = r.styles.errBox
		}
		b.WriteString("\n" + box.Render(preview(*s.Output, r.opts.MaxOutput)))
	}

	r.print(ev.Invocation.Depth, b.String())
}

// OnQuery implements agent.Observer.
func (r *Renderer) OnQuery(parent core.Invocation, prompt string) {
	r.print(parent.Depth, r.styles.query.Render("↳ rlm.Query: ")+preview(prompt, 80))
}

// OnFinal implements agent.Observer.
func (r *Renderer) OnFinal(inv core.Invocation, value any, total core.Usage) {
	r.print(inv.Depth, r.styles.final.Render(fmt.Sprintf("✔ final %s: ", core.ShortRunID(inv.RunID)))+
		preview(fmt.Sprint(value), 200)+" "+r.styles.detail.Render(Usage(total)))
}

// OnEnd implements agent.Observer.
func (r *Renderer) OnEnd(inv core.Invocation, err error) {
	if err == nil {
		return
	}
	r.print(inv.Depth, r.styles.failed.Render(fmt.Sprintf("✖ %s failed: ", core.ShortRunID(inv.RunID)))+err.Error())
}

func (r *Renderer) print(depth int, block string) {
	indent := strings.Repeat("  ", depth)

	lines := strings.Split(block, "\n")
	for i, l := range lines {
		lines[i] = indent + l
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.w, strings.Join(lines, "\n"))
}

// Usage formats a usage snapshot on one line.
func Usage(u core.Usage) string {
	s := fmt.Sprintf("[%d tok: %d in / %d out", u.TotalTokens, u.PromptTokens, u.CompletionTokens)
	if u.CachedTokens > 0 {
		s += fmt.Sprintf(", %d cached", u.CachedTokens)
	}
	if u.ReasoningTokens > 0 {
		s += fmt.Sprintf(", %d reasoning", u.ReasoningTokens)
	}
	if u.Cost != nil {
		s += fmt.Sprintf(", $%.4f", *u.Cost)
	}
	return s + "]"
}

// preview shortens text to limit runes, marking the cut.
func preview(text string, limit int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return agent.EmptyOutputMarker
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	r := []rune(text)
	return string(r[:limit]) + fmt.Sprintf(" … (+%d chars)", len(r)-limit)
}
