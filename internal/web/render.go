package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"llm-stock-prediction/internal/models"
	"llm-stock-prediction/internal/services/auth"
	"llm-stock-prediction/internal/services/prediction"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "signup", "login", "instructions"}

// pageData is shared by every page and fragment.
type pageData struct {
	Title  string
	User   *models.User
	Form   map[string]string
	Errors auth.FieldErrors

	Message string
	Error   string

	Instructions        string
	DefaultInstructions bool

	Result      *prediction.Output
	ResultError string
}

type renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

func newRenderer() (*renderer, error) {
	policy := bluemonday.UGCPolicy()
	funcs := template.FuncMap{
		// sanitize passes model-written markup through the UGC allow list.
		"sanitize": func(s string) template.HTML {
			return template.HTML(policy.Sanitize(s))
		},
		"fieldErrors": func(fe auth.FieldErrors, field string) []string {
			return fe[field]
		},
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/result.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		r.pages[name] = t
	}

	fragments, err := template.New("result.html").Funcs(funcs).ParseFS(templateFS,
		"templates/result.html", "templates/status.html")
	if err != nil {
		return nil, err
	}
	r.fragments = fragments
	return r, nil
}

// page renders a full page. Output is buffered so a template error never
// leaves a half-written response.
func (r *renderer) page(w http.ResponseWriter, status int, name string, data *pageData) error {
	var buf bytes.Buffer
	if err := r.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	return writeHTML(w, status, buf.Bytes())
}

// fragment renders a named partial for HTMX swaps.
func (r *renderer) fragment(w http.ResponseWriter, status int, name string, data *pageData) error {
	var buf bytes.Buffer
	if err := r.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	return writeHTML(w, status, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, status int, body []byte) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}
