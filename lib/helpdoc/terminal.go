// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helpdoc

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/term"
)

// Palette holds the ANSI 256 colors of rendered help.
type Palette struct {
	Heading lipgloss.Color
	Text    lipgloss.Color
	Term    lipgloss.Color
	Faint   lipgloss.Color
	Code    lipgloss.Color
}

// DefaultPalette is used when TerminalOptions.Palette is zero.
var DefaultPalette = Palette{
	Heading: lipgloss.Color("39"),
	Text:    lipgloss.Color("252"),
	Term:    lipgloss.Color("255"),
	Faint:   lipgloss.Color("245"),
	Code:    lipgloss.Color("180"),
}

// TerminalOptions configures RenderTerminal.
type TerminalOptions struct {
	// Width is the column to wrap at. Zero means 80.
	Width int

	// Profile is the color profile. termenv.Ascii produces unstyled
	// text; the zero value is termenv.TrueColor, so callers wanting
	// plain output must ask for it.
	Profile termenv.Profile

	Palette Palette
}

// TerminalWidth returns the width of the terminal on w, or 80 when w is
// not a terminal.
func TerminalWidth(w io.Writer) int {
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

// ProfileFor returns the color profile to render help for w with:
// ANSI 256 on terminals, no styling otherwise.
func ProfileFor(w io.Writer) termenv.Profile {
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return termenv.ANSI256
	}
	return termenv.Ascii
}

var (
	parserInstance goldmark.Markdown
	parserOnce     sync.Once
)

func markdownParser() goldmark.Markdown {
	parserOnce.Do(func() {
		parserInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.DefinitionList,
			),
		)
	})
	return parserInstance
}

// RenderTerminal renders markdown for display in a terminal. Soft line
// breaks become spaces so paragraphs reflow to the width.
func RenderTerminal(markdown string, options TerminalOptions) string {
	if markdown == "" {
		return ""
	}
	if options.Width <= 0 {
		options.Width = 80
	}
	if options.Palette == (Palette{}) {
		options.Palette = DefaultPalette
	}
	source := []byte(markdown)
	document := markdownParser().Parser().Parse(text.NewReader(source))

	// SetColorProfile is needed as well: the renderer otherwise
	// re-detects the profile from the environment.
	lipRenderer := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(options.Profile))
	lipRenderer.SetColorProfile(options.Profile)

	renderer := &terminalRenderer{
		source:      source,
		palette:     options.Palette,
		width:       options.Width,
		plain:       options.Profile == termenv.Ascii,
		lipRenderer: lipRenderer,
	}
	ast.Walk(document, renderer.walk)
	return strings.TrimRight(renderer.output.String(), "\n") + "\n"
}

// terminalRenderer walks the AST directly: inline content collects in
// a buffer and is wrapped as a unit when its block closes.
type terminalRenderer struct {
	source  []byte
	palette Palette
	width   int
	plain   bool

	output strings.Builder
	inline strings.Builder

	// Prefixes of the enclosing block containers.
	prefixStack     []prefix
	linePrefix      string
	linePrefixWidth int

	// pendingBullet replaces linePrefix for the next emitted line.
	pendingBullet string

	boldCount   int
	italicCount int

	listStack []listState

	lipRenderer *lipgloss.Renderer

	trailingNewlines int
}

type prefix struct {
	text  string
	width int
}

type listState struct {
	ordered bool
	counter int
	tight   bool
}

func (r *terminalRenderer) newStyle() lipgloss.Style {
	return r.lipRenderer.NewStyle()
}

// currentWidth is the content width inside the current prefixes, at
// least 10.
func (r *terminalRenderer) currentWidth() int {
	return max(r.width-r.linePrefixWidth, 10)
}

func (r *terminalRenderer) pushPrefix(text string, width int) {
	r.prefixStack = append(r.prefixStack, prefix{text: text, width: width})
	r.linePrefix += text
	r.linePrefixWidth += width
}

func (r *terminalRenderer) popPrefix() {
	if len(r.prefixStack) == 0 {
		return
	}
	top := r.prefixStack[len(r.prefixStack)-1]
	r.prefixStack = r.prefixStack[:len(r.prefixStack)-1]
	r.linePrefix = r.linePrefix[:len(r.linePrefix)-len(top.text)]
	r.linePrefixWidth -= top.width
}

func (r *terminalRenderer) inTightList() bool {
	return len(r.listStack) > 0 && r.listStack[len(r.listStack)-1].tight
}

func (r *terminalRenderer) writeOutput(s string) {
	if s == "" {
		return
	}
	r.output.WriteString(s)
	trailing := len(s) - len(strings.TrimRight(s, "\n"))
	if trailing == len(s) {
		r.trailingNewlines += trailing
	} else {
		r.trailingNewlines = trailing
	}
}

func (r *terminalRenderer) ensureNewline() {
	if r.output.Len() > 0 && r.trailingNewlines < 1 {
		r.writeOutput("\n")
	}
}

func (r *terminalRenderer) ensureBlankLine() {
	if r.output.Len() == 0 {
		return
	}
	for r.trailingNewlines < 2 {
		r.writeOutput("\n")
	}
}

func (r *terminalRenderer) consumeLinePrefix() string {
	if r.pendingBullet != "" {
		bullet := r.pendingBullet
		r.pendingBullet = ""
		return bullet
	}
	return r.linePrefix
}

func (r *terminalRenderer) applyPrefixes(content string) string {
	lines := strings.Split(content, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = r.consumeLinePrefix() + lines[i]
		} else {
			lines[i] = r.linePrefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func (r *terminalRenderer) flushInline() string {
	content := r.inline.String()
	r.inline.Reset()
	if content == "" {
		return ""
	}
	return r.applyPrefixes(ansi.Wrap(content, r.currentWidth(), " ,.;-+|"))
}

func (r *terminalRenderer) styledText(content string) string {
	style := r.newStyle().Foreground(r.palette.Text)
	if r.boldCount > 0 {
		style = style.Bold(true)
	}
	if r.italicCount > 0 {
		style = style.Italic(true)
	}
	return style.Render(content)
}

// highlight colors example code with chroma. Plain output and unknown
// languages get the code unchanged.
func (r *terminalRenderer) highlight(code, language string) string {
	if r.plain || language == "" {
		return r.newStyle().Foreground(r.palette.Code).Render(code)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err != nil {
		return r.newStyle().Foreground(r.palette.Code).Render(code)
	}
	return buffer.String()
}

func (r *terminalRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			r.inline.Reset()
			return ast.WalkContinue, nil
		}
		if flushed := r.flushInline(); flushed != "" {
			r.writeOutput(flushed)
			r.ensureNewline()
			if !r.inTightList() {
				r.ensureBlankLine()
			}
		}

	case ast.KindHeading:
		if entering {
			r.inline.Reset()
		} else {
			r.leaveHeading(node.(*ast.Heading))
		}

	case ast.KindFencedCodeBlock:
		if entering {
			block := node.(*ast.FencedCodeBlock)
			r.renderCode(r.lines(block), string(block.Language(r.source)))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock:
		if entering {
			r.renderCode(r.lines(node), "")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			r.pushPrefix("│ ", 2)
		} else {
			r.popPrefix()
			r.ensureBlankLine()
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			r.listStack = append(r.listStack, listState{ordered: list.IsOrdered(), counter: list.Start, tight: list.IsTight})
		} else {
			r.listStack = r.listStack[:len(r.listStack)-1]
			if !r.inTightList() {
				r.ensureBlankLine()
			}
		}

	case ast.KindListItem:
		if entering {
			r.enterListItem()
		} else {
			r.popPrefix()
			if r.inTightList() {
				r.ensureNewline()
			} else {
				r.ensureBlankLine()
			}
		}

	case ast.KindThematicBreak:
		if entering {
			rule := r.newStyle().Foreground(r.palette.Faint).Render(strings.Repeat("─", r.currentWidth()))
			r.ensureBlankLine()
			r.writeOutput(r.applyPrefixes(rule))
			r.ensureBlankLine()
		}

	case ast.KindHTMLBlock:
		if entering {
			return ast.WalkSkipChildren, nil
		}

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			r.inline.WriteString(r.styledText(string(textNode.Segment.Value(r.source))))
			if textNode.SoftLineBreak() {
				r.inline.WriteString(" ")
			}
			if textNode.HardLineBreak() {
				r.inline.WriteString("\n")
			}
		}

	case ast.KindString:
		if entering {
			r.inline.WriteString(r.styledText(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		counter := &r.italicCount
		if node.(*ast.Emphasis).Level >= 2 {
			counter = &r.boldCount
		}
		if entering {
			*counter++
		} else {
			*counter--
		}

	case ast.KindCodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if textNode, ok := child.(*ast.Text); ok {
					code.Write(textNode.Segment.Value(r.source))
				}
			}
			r.inline.WriteString(r.newStyle().Foreground(r.palette.Code).Render(code.String()))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if !entering {
			link := node.(*ast.Link)
			if destination := string(link.Destination); destination != "" {
				r.inline.WriteString(" " + r.newStyle().Foreground(r.palette.Faint).Render("("+destination+")"))
			}
		}

	case ast.KindAutoLink:
		if entering {
			url := string(node.(*ast.AutoLink).URL(r.source))
			r.inline.WriteString(r.newStyle().Foreground(r.palette.Faint).Render(url))
		}

	case ast.KindRawHTML:
		return ast.WalkSkipChildren, nil

	case extast.KindDefinitionTerm:
		if entering {
			r.inline.Reset()
			return ast.WalkContinue, nil
		}
		// The term has its own style; drop the inline styling.
		content := ansi.Strip(r.inline.String())
		r.inline.Reset()
		if content != "" {
			style := r.newStyle().Foreground(r.palette.Term).Bold(true)
			r.ensureNewline()
			r.writeOutput(r.applyPrefixes(style.Render(content)))
			r.ensureNewline()
		}

	case extast.KindDefinitionDescription:
		if entering {
			r.pushPrefix("    ", 4)
		} else {
			r.popPrefix()
			r.ensureBlankLine()
		}
	}
	return ast.WalkContinue, nil
}

func (r *terminalRenderer) lines(node ast.Node) string {
	var code strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		code.Write(segment.Value(r.source))
	}
	return code.String()
}

// leaveHeading renders section headings flush left, deeper levels
// indented by two.
func (r *terminalRenderer) leaveHeading(heading *ast.Heading) {
	content := ansi.Strip(r.inline.String())
	r.inline.Reset()
	if content == "" {
		return
	}
	style := r.newStyle().Bold(true).Foreground(r.palette.Heading)
	if heading.Level > 1 {
		content = "  " + content
		style = style.Foreground(r.palette.Text)
	}
	r.ensureBlankLine()
	r.writeOutput(style.Render(content))
	r.ensureNewline()
	r.pushPrefixForSection()
}

// pushPrefixForSection indents everything after a top-level heading
// until the next one.
func (r *terminalRenderer) pushPrefixForSection() {
	if len(r.prefixStack) > 0 && r.prefixStack[0].text == sectionIndent {
		return
	}
	r.prefixStack = append([]prefix{{text: sectionIndent, width: len(sectionIndent)}}, r.prefixStack...)
	r.linePrefix = sectionIndent + r.linePrefix
	r.linePrefixWidth += len(sectionIndent)
}

const sectionIndent = "    "

func (r *terminalRenderer) renderCode(code, language string) {
	highlighted := r.highlight(strings.TrimRight(code, "\n"), language)
	r.ensureBlankLine()
	for _, line := range strings.Split(strings.TrimRight(highlighted, "\n"), "\n") {
		r.writeOutput(r.consumeLinePrefix() + "  " + line)
		r.writeOutput("\n")
	}
	r.ensureBlankLine()
}

func (r *terminalRenderer) enterListItem() {
	if len(r.listStack) == 0 {
		return
	}
	top := &r.listStack[len(r.listStack)-1]
	bullet := "- "
	if top.ordered {
		bullet = fmt.Sprintf("%d. ", top.counter)
		top.counter++
	}
	r.pendingBullet = r.linePrefix + bullet
	r.pushPrefix(strings.Repeat(" ", len(bullet)), len(bullet))
}
