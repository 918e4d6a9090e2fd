// Package views renders the server-side pages from embedded templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"tiergate/entity"
	"tiergate/impl/core"
	"tiergate/internal/http-server/session"
)

//go:embed templates/*.html
var files embed.FS

type Site struct {
	Name        string
	TelegramURL string
}

// AuthPage is the signed-out page: registration and sign-in forms.
type AuthPage struct {
	Flashes    []session.Flash
	Puzzle     entity.Puzzle
	InviteCode string
	Username   string
}

// AppPage is the signed-in shell around one routed view.
type AppPage struct {
	Flashes []session.Flash
	Page    *core.Page
}

type Renderer struct {
	tmpl *template.Template
	site Site
}

var funcs = template.FuncMap{
	"price":    func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	"tierView": entity.TierView,
	"width":    func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" },
	"isView":   func(current, view string) bool { return current == view },
}

func New(site Site) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, site: site}, nil
}

func (v *Renderer) Auth(w http.ResponseWriter, page AuthPage) error {
	return v.render(w, "auth", struct {
		Site Site
		AuthPage
	}{v.site, page})
}

func (v *Renderer) App(w http.ResponseWriter, page AppPage) error {
	route := page.Page.Route
	return v.render(w, "app", struct {
		Site        Site
		Flashes     []session.Flash
		Page        *core.Page
		IsDashboard bool
		IsPreview   bool
		IsTier      bool
	}{
		Site:        v.site,
		Flashes:     page.Flashes,
		Page:        page.Page,
		IsDashboard: route.Kind == entity.RouteDashboard,
		IsPreview:   route.Kind == entity.RoutePreview,
		IsTier:      route.Kind == entity.RouteTier,
	})
}

// render executes into a buffer so a template failure never leaves a half
// written page behind.
func (v *Renderer) render(w http.ResponseWriter, name string, data any) error {
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}
