package tui

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/matheuskafuri/hyperdesk/internal/feedview"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/sites"
)

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// highlighted turns an escaped title with <strong> filter matches into
// styled terminal text.
func highlighted(s string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, "<strong>")
		if i < 0 {
			break
		}
		j := strings.Index(s[i:], "</strong>")
		if j < 0 {
			break
		}
		b.WriteString(html.UnescapeString(s[:i]))
		b.WriteString(matchStyle.Render(html.UnescapeString(s[i+len("<strong>") : i+j])))
		s = s[i+j+len("</strong>"):]
	}
	b.WriteString(html.UnescapeString(s))
	return b.String()
}

func resultTitle(r feedview.Result, width int) string {
	plain := r.PlainTitle()
	if r.Title == "" || len([]rune(plain)) > width {
		return truncateStr(plain, width)
	}
	return highlighted(r.Title)
}

func renderListItem(r feedview.Result, selected bool, width int) string {
	if width < 10 {
		width = 30
	}

	var title string
	if selected {
		title = itemSelectedStyle.Render("> ") + itemSelectedStyle.Render(resultTitle(r, width-4))
	} else {
		title = itemTitleStyle.Render("  ") + itemTitleStyle.Render(resultTitle(r, width-4))
	}

	author := r.Author.Title
	if author == "" {
		author = hyper.ToNiceURL(r.Author.URL)
	}
	meta := "  " + itemSourceStyle.Render(truncateStr(author, width/2)) + " " +
		itemTimeStyle.Render("· "+relativeTime(r.Ctime))

	return title + "\n" + meta
}

func renderSiteItem(s hyper.Site, profileURL string, selected bool, width int) string {
	if width < 10 {
		width = 30
	}
	title := s.Title
	if title == "" {
		title = "Untitled"
	}
	if selected {
		title = itemSelectedStyle.Render("> " + truncateStr(title, width-4))
	} else {
		title = itemTitleStyle.Render("  " + truncateStr(title, width-4))
	}

	var tags []string
	if id := sites.Ident(s, profileURL); id != "" {
		tags = append(tags, id)
	} else if s.Writable {
		tags = append(tags, "hosting")
	}
	if sites.IsSubscribed(s, profileURL) {
		tags = append(tags, "subscribed")
	}
	if n := s.SubscriberCount(); n > 0 {
		tags = append(tags, fmt.Sprintf("%d %s", n, hyper.Pluralize(n, "subscriber")))
	}
	meta := "  " + itemSourceStyle.Render(truncateStr(hyper.ToNiceURL(s.URL), width/2))
	if len(tags) > 0 {
		meta += " " + itemTimeStyle.Render("· "+strings.Join(tags, " · "))
	}
	return title + "\n" + meta
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// window returns the range of items visible around cursor.
func window(n, cursor, height int) (int, int) {
	// Each item is 2 lines + 1 blank line = 3 lines
	itemHeight := 3
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > n {
		end = n
		start = end - visible
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

func renderList(results []feedview.Result, loading bool, emptyMsg string, cursor, height, width int) string {
	if len(results) == 0 {
		if loading {
			return lipglossCenter("Loading...", width, height)
		}
		return lipglossCenter(emptyMsg, width, height)
	}

	start, end := window(len(results), cursor, height)
	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderListItem(results[i], i == cursor, width))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderSiteList(list []hyper.Site, loading bool, emptyMsg, profileURL string, cursor, height, width int) string {
	if len(list) == 0 {
		if loading {
			return lipglossCenter("Loading...", width, height)
		}
		return lipglossCenter(emptyMsg, width, height)
	}

	start, end := window(len(list), cursor, height)
	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderSiteItem(list[i], profileURL, i == cursor, width))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	pad := (width - len([]rune(s))) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + s
}
