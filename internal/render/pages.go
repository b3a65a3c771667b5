package render

import (
	"context"
	"html/template"
)

const (
	stylesheet     = "/static/css/site.css"
	subscribeJS    = "/static/js/subscribe.js"
	countdownJS    = "/static/js/countdown.js"
	blogFilterJS   = "/static/js/filter.js"
	layoutTemplate = "layout"
)

type layout struct{}

func (layout) Templates(context.Context) []string {
	return []string{"layout.html", "partials/header.html", "partials/footer.html"}
}

func (layout) LinkCSS(context.Context) []string { return []string{stylesheet} }

// standalone is the bare layout used while the site is closed
type standalone struct{}

func (standalone) Templates(context.Context) []string {
	return []string{"layout.html", "partials/standalone.html"}
}

func (standalone) LinkCSS(context.Context) []string { return []string{stylesheet} }

type newsletterForm struct{}

func (newsletterForm) Templates(context.Context) []string {
	return []string{"partials/newsletter.html"}
}

func (newsletterForm) LinkJS(context.Context) []string { return []string{subscribeJS} }

type countdownBlock struct{}

func (countdownBlock) Templates(context.Context) []string {
	return []string{"partials/countdown.html"}
}

func (countdownBlock) LinkJS(context.Context) []string { return []string{countdownJS} }

func (countdownBlock) EmbedCSS(context.Context) template.CSS {
	return `.countdown{display:flex;gap:1rem;justify-content:center}
.countdown-unit{min-width:4.5rem;text-align:center}
.countdown-value{display:block;font-size:2.5rem;font-variant-numeric:tabular-nums}`
}

type filterBar struct{}

func (filterBar) Templates(context.Context) []string {
	return []string{"partials/filter.html"}
}

func (filterBar) LinkJS(context.Context) []string { return []string{blogFilterJS} }

type postCard struct{}

func (postCard) Templates(context.Context) []string {
	return []string{"partials/post_card.html"}
}

// Page is a Renderable made of a layout, its own template and the
// components it uses
type Page struct {
	name   string
	frame  Component
	extras []Component
}

// Templates implements Component
func (p Page) Templates(context.Context) []string {
	return []string{"pages/" + p.name + ".html"}
}

// UseComponents implements ComponentUser
func (p Page) UseComponents(context.Context) []Component {
	return append([]Component{p.frame}, p.extras...)
}

// Key implements Renderable
func (p Page) Key(context.Context) string { return p.name }

// ExecutedTemplate implements Renderable
func (p Page) ExecutedTemplate(context.Context) string { return layoutTemplate }

// Name returns the page name
func (p Page) Name() string { return p.name }

// Site pages
var (
	Home        = Page{name: "home", frame: layout{}, extras: []Component{newsletterForm{}, postCard{}}}
	About       = Page{name: "about", frame: layout{}, extras: []Component{newsletterForm{}}}
	Blog        = Page{name: "blog", frame: layout{}, extras: []Component{filterBar{}, postCard{}, newsletterForm{}}}
	Events      = Page{name: "events", frame: layout{}}
	News        = Page{name: "news", frame: layout{}}
	Team        = Page{name: "team", frame: layout{}, extras: []Component{filterBar{}}}
	ComingSoon  = Page{name: "coming_soon", frame: standalone{}, extras: []Component{countdownBlock{}, newsletterForm{}}}
	Maintenance = Page{name: "maintenance", frame: standalone{}, extras: []Component{countdownBlock{}, newsletterForm{}}}
	ErrorPage   = Page{name: "error", frame: layout{}}
)

// ErrorData fills the error page
type ErrorData struct {
	Status  int
	Title   string
	Message string
}
