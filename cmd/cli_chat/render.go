package main

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"al-kul/internal/domain"
)

// transcriptRenderer dibuja la proyeccion de display como burbujas:
// usuario a la derecha, asistente a la izquierda.
type transcriptRenderer struct {
	width       int
	bubbleWidth int
	markdown    *glamour.TermRenderer
	userStyle   lipgloss.Style
	botStyle    lipgloss.Style
	noticeStyle lipgloss.Style
	headerStyle lipgloss.Style
}

func newTranscriptRenderer(width int, withMarkdown bool) *transcriptRenderer {
	if width < 40 {
		width = 80
	}
	bubbleWidth := width * 3 / 4

	r := &transcriptRenderer{
		width:       width,
		bubbleWidth: bubbleWidth,
		userStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		botStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("36")).
			Padding(0, 1),
		noticeStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Italic(true),
		headerStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36")),
	}
	if withMarkdown {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(bubbleWidth-4),
		)
		if err == nil {
			r.markdown = md
		}
	}
	return r
}

func (r *transcriptRenderer) Render(records []domain.DisplayRecord) string {
	blocks := make([]string, 0, len(records))
	for _, rec := range records {
		blocks = append(blocks, r.bubble(rec))
	}
	return strings.Join(blocks, "\n")
}

func (r *transcriptRenderer) bubble(rec domain.DisplayRecord) string {
	if rec.Side == domain.SideRight {
		return lipgloss.PlaceHorizontal(r.width, lipgloss.Right, r.fit(r.userStyle, rec.Text))
	}
	return lipgloss.PlaceHorizontal(r.width, lipgloss.Left, r.fit(r.botStyle, r.assistantText(rec.Text)))
}

// fit ajusta el ancho de la burbuja al texto, con tope en bubbleWidth (lipgloss hace el wrap).
func (r *transcriptRenderer) fit(style lipgloss.Style, text string) string {
	w := lipgloss.Width(text) + style.GetHorizontalPadding()
	if w > r.bubbleWidth {
		w = r.bubbleWidth
	}
	return style.Width(w).Render(text)
}

// assistantText pasa el texto por glamour; si falla se muestra tal cual.
func (r *transcriptRenderer) assistantText(text string) string {
	if r.markdown == nil {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (r *transcriptRenderer) Notice(text string) string {
	return r.noticeStyle.Render(text)
}

func (r *transcriptRenderer) Header(text string) string {
	return r.headerStyle.Render(text)
}
