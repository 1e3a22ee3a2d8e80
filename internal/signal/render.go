package signal

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

var tmpl = template.Must(template.New("signals").Funcs(template.FuncMap{"authors": authorTitles}).Parse(`<link rel="stylesheet" href="beaker://assets/font-awesome.css">
<span class="comments">
  <span class="far fa-fw fa-comment"></span>
  {{.Comments}}
</span>
{{- range .Annotations}}
<span class="annotation" data-tooltip="{{authors .}}">{{.Value}} <small>{{.Count}}</small></span>
{{- end}}
`))

// View is the social signals badge of one topic.
type View struct {
	UserURL string
	Authors []string
	Signals Signals
}

// Render writes the badge. Nothing is written unless a user, authors and a
// topic are all known.
func Render(w io.Writer, v View) error {
	if v.UserURL == "" || len(v.Authors) == 0 || v.Signals.Topic == "" {
		return nil
	}
	if err := tmpl.Execute(w, v.Signals); err != nil {
		return fmt.Errorf("rendering signals: %w", err)
	}
	return nil
}

func authorTitles(t Tally) string {
	titles := make([]string, len(t.Authors))
	for i, a := range t.Authors {
		titles[i] = a.Title
		if titles[i] == "" {
			titles[i] = "Untitled"
		}
	}
	return strings.Join(titles, ", ")
}
