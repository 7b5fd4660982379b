package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/memberdesk/memberdesk/internal/client"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"date": func(t any) string {
		switch v := t.(type) {
		case time.Time:
			if v.IsZero() {
				return "-"
			}
			return v.Format("02 Jan 2006")
		case *time.Time:
			if v == nil || v.IsZero() {
				return "-"
			}
			return v.Format("02 Jan 2006 15:04")
		}
		return "-"
	},
	"money": func(amount float64) string {
		return fmt.Sprintf("৳%.2f", amount)
	},
	"str": func(p *string) string {
		if p == nil || *p == "" {
			return "-"
		}
		return *p
	},
	"pageURL": func(path string, q client.ListQuery, nav string) string {
		v := q.Values()
		v.Set("page", strconv.Itoa(max(q.Page, 1)))
		if nav != "" {
			v.Set("nav", nav)
		}
		return path + "?" + v.Encode()
	},
	"queryEscape": url.QueryEscape,
}

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}
