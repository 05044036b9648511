package fieldtype

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"time"

	"github.com/alfredjeanlab/streams/internal/model"
)

// Renderer builds the form input for one assignment.
type Renderer interface {
	BuildFormInput(a *model.Assignment, value any, entryID string) (string, error)
}

const inputTemplates = `
{{define "attrs"}} name="{{.Slug}}" id="{{.Slug}}"{{range .Attrs}} {{.Key}}="{{.Value}}"{{end}}{{if .EntryID}} data-entry-id="{{.EntryID}}"{{end}}{{if .Required}} required{{end}}{{end}}
{{define "input"}}<input type="{{.InputType}}"{{template "attrs" .}} value="{{.Value}}">{{end}}
{{define "textarea"}}<textarea{{template "attrs" .}}>{{.Value}}</textarea>{{end}}
{{define "select"}}<select{{template "attrs" .}}>{{if not .Required}}<option value="">-----</option>{{end}}{{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}</select>{{end}}
{{define "radio"}}{{$slug := .Slug}}{{$req := .Required}}{{range $i, $o := .Options}}<label><input type="radio" name="{{$slug}}" id="{{$slug}}_{{$i}}" value="{{$o.Value}}"{{if $o.Selected}} checked{{end}}{{if $req}} required{{end}}> {{$o.Label}}</label>{{end}}{{end}}
`

// TemplateRenderer renders inputs with html/template, looking up each
// assignment's type in a registry. Unknown types render as a text input.
type TemplateRenderer struct {
	registry *Registry
	tmpl     *template.Template
}

// NewTemplateRenderer returns a renderer backed by the given registry.
func NewTemplateRenderer(r *Registry) *TemplateRenderer {
	return &TemplateRenderer{
		registry: r,
		tmpl:     template.Must(template.New("inputs").Parse(inputTemplates)),
	}
}

type attr struct {
	Key   string
	Value string
}

type viewOption struct {
	Value    string
	Label    string
	Selected bool
}

type inputView struct {
	Slug      string
	InputType string
	Value     string
	EntryID   string
	Required  bool
	Attrs     []attr
	Options   []viewOption
}

// BuildFormInput renders the HTML control for a with value pre-filled.
func (r *TemplateRenderer) BuildFormInput(a *model.Assignment, value any, entryID string) (string, error) {
	in := Input{Template: "input", InputType: "text"}
	if t, ok := r.registry.Lookup(a.FieldType); ok {
		in = t.Input(a.FieldExtra)
	}

	v := inputView{
		Slug:      a.FieldSlug,
		InputType: in.InputType,
		Value:     formatValue(value, in.InputType),
		EntryID:   entryID,
		Required:  a.Required,
	}

	keys := make([]string, 0, len(in.Attrs))
	for k := range in.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Attrs = append(v.Attrs, attr{Key: k, Value: in.Attrs[k]})
	}

	for _, o := range in.Options {
		v.Options = append(v.Options, viewOption{Value: o.Value, Label: o.Label, Selected: v.Value == o.Value})
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, in.Template, v); err != nil {
		return "", fmt.Errorf("render %s input for %s: %w", a.FieldType, a.FieldSlug, err)
	}
	return buf.String(), nil
}

func formatValue(value any, inputType string) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		if inputType == "datetime-local" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t.Format("2006-01-02T15:04")
			}
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format("2006-01-02T15:04")
	default:
		return fmt.Sprint(v)
	}
}
