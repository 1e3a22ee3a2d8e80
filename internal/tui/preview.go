package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/feedview"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/sites"
)

// preview is what the preview pane knows about the selected result.
type preview struct {
	body    string
	link    string
	signals string
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown falls back to wrapped text when no renderer is available.
func renderMarkdown(r *glamour.TermRenderer, src string, width int) string {
	if r != nil {
		if out, err := r.Render(src); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return wrapText(src, width)
}

func renderPreview(r *feedview.Result, p preview, width, height, scroll int) string {
	if r == nil {
		return lipglossCenter("Select an item", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(r.PlainTitle())
	author := r.Author.Title
	if author == "" {
		author = "Anonymous"
	}
	source := previewSourceStyle.Render(
		fmt.Sprintf("%s · %s · %s", author, classify.Title(r.Type()), r.Ctime.Format("Jan 2, 2006")),
	)
	parts := []string{title, source}
	if r.HrefDescription != "" {
		parts = append(parts, previewLinkStyle.Render("on "+r.HrefDescription))
	}
	if p.signals != "" {
		parts = append(parts, signalStyle.Render(p.signals))
	}

	body := p.body
	if body == "" {
		desc := r.Description
		if desc == "" {
			desc = r.Excerpt
		}
		body = wrapText(highlighted(desc), contentWidth)
		if body == "" {
			body = "(No content available)"
		}
	}
	parts = append(parts, "", previewBodyStyle.Width(contentWidth).Render(body))

	link := p.link
	if link == "" {
		link = r.Href
	}
	parts = append(parts, "", previewLinkStyle.Width(contentWidth).Render("Open: "+link))

	return fit(lipgloss.JoinVertical(lipgloss.Left, parts...), height, scroll)
}

func renderSitePreview(s *hyper.Site, profileURL string, width, height, scroll int) string {
	if s == nil {
		return lipglossCenter("Select a site", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := s.Title
	if title == "" {
		title = "Untitled"
	}
	parts := []string{
		previewTitleStyle.Width(contentWidth).Render(title),
		previewSourceStyle.Render(hyper.ToNiceURL(s.URL)),
	}
	if s.Description != "" {
		parts = append(parts, previewBodyStyle.Width(contentWidth).Render(wrapText(s.Description, contentWidth)))
	}
	if n := s.SubscriberCount(); n > 0 {
		parts = append(parts, "", signalStyle.Render(fmt.Sprintf("%d %s", n, hyper.Pluralize(n, "subscriber"))))
		parts = append(parts, previewBodyStyle.Width(contentWidth).Render(wrapText(sites.SubscriberTitles(*s), contentWidth)))
	}

	parts = append(parts, "")
	for _, item := range sites.Menu(*s, profileURL) {
		switch {
		case item.Separator:
			parts = append(parts, helpDimStyle.Render(strings.Repeat("─", min(contentWidth, 20))))
		case item.Disabled:
			parts = append(parts, menuDisabledStyle.Render(item.Label))
		default:
			parts = append(parts, item.Label)
		}
	}
	parts = append(parts, "", previewSourceStyle.Render("files: "+sites.ExplorerURL(*s)))

	return fit(lipgloss.JoinVertical(lipgloss.Left, parts...), height, scroll)
}

// fit applies the scroll offset and pads or cuts content to height lines.
func fit(content string, height, scroll int) string {
	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if lipgloss.Width(line)+1+lipgloss.Width(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
