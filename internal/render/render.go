// Package render turns page components into HTML.
//
// A page is a Renderable built from Components. Each Component names the
// template files it needs and may pull in other Components, link scripts and
// stylesheets, embed CSS or extend the func map. Parsed template sets are
// cached on the Site by page key.
package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrNoTemplatePath is returned when a page names no templates
	ErrNoTemplatePath = errors.New("need at least one template path")

	// ErrPatternMatchesNoFiles is returned when a template pattern matches nothing
	ErrPatternMatchesNoFiles = errors.New("pattern matches no files")
)

// Component is a UI piece backed by one or more template files
type Component interface {
	Templates(context.Context) []string
}

// ComponentUser lists the Components a Component relies on
type ComponentUser interface {
	UseComponents(context.Context) []Component
}

// FuncMapExtender adds functions available while rendering
type FuncMapExtender interface {
	FuncMap(context.Context) template.FuncMap
}

// CSSEmbedder contributes CSS inlined into the page head
type CSSEmbedder interface {
	EmbedCSS(context.Context) template.CSS
}

// CSSLinker contributes stylesheet URLs
type CSSLinker interface {
	LinkCSS(context.Context) []string
}

// JSLinker contributes script URLs
type JSLinker interface {
	LinkJS(context.Context) []string
}

// Renderable is a whole page
type Renderable interface {
	Component

	// Key identifies the parsed template set in the cache
	Key(context.Context) string

	// ExecutedTemplate is the template name executed, usually a layout
	// that the page's own templates fill blocks in
	ExecutedTemplate(context.Context) string
}

// RenderData is the value templates execute against
type RenderData struct {
	Layout      any
	Page        any
	EmbeddedCSS template.CSS
	LinkedCSS   []string
	LinkedJS    []string
}

// Site holds the template source, shared layout data and the parsed
// template cache
type Site struct {
	templates fs.FS
	funcs     template.FuncMap
	layout    any
	errorPage Renderable

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewSite creates a Site parsing templates from fsys. layout is passed to
// every page as .Layout.
func NewSite(fsys fs.FS, layout any, funcs template.FuncMap) *Site {
	return &Site{
		templates: fsys,
		funcs:     mergeFuncMaps(baseFuncs(), funcs),
		layout:    layout,
		errorPage: ErrorPage,
		cache:     map[string]*template.Template{},
	}
}

func (s *Site) cached(key string) *template.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[key]
}

func (s *Site) store(key string, tmpl *template.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = tmpl
}

// Render writes page with status 200
func Render(ctx context.Context, w http.ResponseWriter, site *Site, page Renderable, data any) {
	RenderStatus(ctx, w, site, page, data, http.StatusOK)
}

// RenderStatus renders page into a buffer and writes it with status. If
// rendering fails the error page is written with status 500 instead.
func RenderStatus(ctx context.Context, w http.ResponseWriter, site *Site, page Renderable, data any, status int) {
	ctx, span := otel.Tracer("recruitpro/render").Start(ctx, "render.Page")
	defer span.End()
	span.SetAttributes(attribute.String("page", page.Key(ctx)))

	var buf bytes.Buffer
	err := site.execute(ctx, &buf, page, data)
	if err == nil {
		writeHTML(w, status, buf.Bytes())
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logrus.WithError(err).WithField("page", page.Key(ctx)).Error("Error rendering page")

	buf.Reset()
	errData := ErrorData{Status: http.StatusInternalServerError, Title: "Server error", Message: "Something went wrong. Please try again later."}
	if err := site.execute(ctx, &buf, site.errorPage, errData); err != nil {
		logrus.WithError(err).Error("Error rendering server error page")
		http.Error(w, "Server error.", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusInternalServerError, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logrus.WithError(err).Debug("Error writing response")
	}
}

func (s *Site) execute(ctx context.Context, buf *bytes.Buffer, page Renderable, data any) error {
	tmpl, err := s.template(ctx, page)
	if err != nil {
		return err
	}
	css := componentLinks(ctx, page, func(c Component) []string {
		if l, ok := c.(CSSLinker); ok {
			return l.LinkCSS(ctx)
		}
		return nil
	})
	js := componentLinks(ctx, page, func(c Component) []string {
		if l, ok := c.(JSLinker); ok {
			return l.LinkJS(ctx)
		}
		return nil
	})
	rd := RenderData{
		Layout:      s.layout,
		Page:        data,
		EmbeddedCSS: componentCSSEmbeds(ctx, page),
		LinkedCSS:   css,
		LinkedJS:    js,
	}
	executed := page.ExecutedTemplate(ctx)
	if err := tmpl.ExecuteTemplate(buf, executed, rd); err != nil {
		return fmt.Errorf("error executing template %q for %s: %w", executed, page.Key(ctx), err)
	}
	return nil
}

func (s *Site) template(ctx context.Context, page Renderable) (*template.Template, error) {
	key := page.Key(ctx)
	if cached := s.cached(key); cached != nil {
		return cached, nil
	}
	paths := componentTemplatePaths(ctx, page)
	if len(paths) < 1 {
		return nil, fmt.Errorf("error rendering %s: %w", key, ErrNoTemplatePath)
	}
	funcs := s.funcs
	for _, c := range recursiveComponents(ctx, page) {
		if fm, ok := c.(FuncMapExtender); ok {
			funcs = mergeFuncMaps(funcs, fm.FuncMap(ctx))
		}
	}
	parsed, err := parseTemplates(s.templates, funcs, paths...)
	if err != nil {
		return nil, fmt.Errorf("error parsing templates %v for %s: %w", paths, key, err)
	}
	s.store(key, parsed)
	return parsed, nil
}

// recursiveComponents lists dependencies before the components using them,
// so a page's block definitions are parsed after the layout's defaults.
func recursiveComponents(ctx context.Context, c Component) []Component {
	var results []Component
	if user, ok := c.(ComponentUser); ok {
		for _, child := range user.UseComponents(ctx) {
			results = append(results, recursiveComponents(ctx, child)...)
		}
	}
	return append(results, c)
}

func componentTemplatePaths(ctx context.Context, c Component) []string {
	var results []string
	seen := map[string]struct{}{}
	for _, comp := range recursiveComponents(ctx, c) {
		for _, path := range comp.Templates(ctx) {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			results = append(results, path)
		}
	}
	return results
}

func componentLinks(ctx context.Context, c Component, get func(Component) []string) []string {
	var results []string
	seen := map[string]struct{}{}
	for _, comp := range recursiveComponents(ctx, c) {
		for _, src := range get(comp) {
			if _, ok := seen[src]; ok {
				continue
			}
			seen[src] = struct{}{}
			results = append(results, src)
		}
	}
	return results
}

func componentCSSEmbeds(ctx context.Context, c Component) template.CSS {
	var results template.CSS
	seen := map[[sha256.Size]byte]struct{}{}
	for _, comp := range recursiveComponents(ctx, c) {
		embed, ok := comp.(CSSEmbedder)
		if !ok {
			continue
		}
		css := embed.EmbedCSS(ctx)
		sum := sha256.Sum256([]byte(css))
		if _, ok := seen[sum]; ok {
			continue
		}
		seen[sum] = struct{}{}
		results += css + "\n"
	}
	return results
}

func parseTemplates(fsys fs.FS, funcs template.FuncMap, patterns ...string) (*template.Template, error) {
	var files []string
	for _, pattern := range patterns {
		list, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("error listing files for %q: %w", pattern, err)
		}
		if len(list) < 1 {
			return nil, fmt.Errorf("error parsing %q: %w", pattern, ErrPatternMatchesNoFiles)
		}
		files = append(files, list...)
	}
	tmpl := template.New("").Funcs(funcs)
	for _, file := range files {
		contents, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("error reading %q: %w", file, err)
		}
		if _, err := tmpl.New(file).Parse(string(contents)); err != nil {
			return nil, fmt.Errorf("error parsing %q: %w", file, err)
		}
	}
	return tmpl, nil
}

func mergeFuncMaps(in, extra template.FuncMap) template.FuncMap {
	res := template.FuncMap{}
	for k, v := range in {
		res[k] = v
	}
	for k, v := range extra {
		res[k] = v
	}
	return res
}
