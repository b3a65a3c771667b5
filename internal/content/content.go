// Package content loads the site's editorial content from a YAML file and
// answers the queries the pages make against it.
package content

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"recruitpro/internal/theme"
)

// Site carries site-wide metadata
type Site struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Language    string `yaml:"language"`
	Description string `yaml:"description"`
}

// Page is a standalone page such as About
type Page struct {
	Slug    string `yaml:"slug"`
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
	Content string `yaml:"content"`
}

// Post is a blog article
type Post struct {
	Slug       string    `yaml:"slug"`
	Title      string    `yaml:"title"`
	Date       time.Time `yaml:"date"`
	Author     string    `yaml:"author"`
	Categories []string  `yaml:"categories"`
	Excerpt    string    `yaml:"excerpt"`
	Content    string    `yaml:"content"`
	Image      string    `yaml:"image"`
}

// Member is a team member
type Member struct {
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
	Bio        string `yaml:"bio"`
	Photo      string `yaml:"photo"`
	Email      string `yaml:"email"`
	LinkedIn   string `yaml:"linkedin"`
	Order      int    `yaml:"order"`
}

// Event is a recruitment event
type Event struct {
	Slug            string    `yaml:"slug"`
	Title           string    `yaml:"title"`
	Start           time.Time `yaml:"start"`
	End             time.Time `yaml:"end"`
	Location        string    `yaml:"location"`
	Address         string    `yaml:"address"`
	VirtualURL      string    `yaml:"virtual_url"`
	Description     string    `yaml:"description"`
	Price           string    `yaml:"price"`
	Currency        string    `yaml:"currency"`
	RegistrationURL string    `yaml:"registration_url"`
	Status          string    `yaml:"status"`
	Image           string    `yaml:"image"`
}

// Testimonial is a client or candidate review
type Testimonial struct {
	Author  string    `yaml:"author"`
	Role    string    `yaml:"role"`
	Company string    `yaml:"company"`
	Quote   string    `yaml:"quote"`
	Rating  int       `yaml:"rating"`
	Date    time.Time `yaml:"date"`
}

// Service is one offering shown on the home page
type Service struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
}

// Stat is a headline number on the about page
type Stat struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// Document is the on-disk schema
type Document struct {
	Site         Site          `yaml:"site"`
	ThemeMods    theme.Mods    `yaml:"theme_mods"`
	Pages        []Page        `yaml:"pages"`
	Posts        []Post        `yaml:"posts"`
	Team         []Member      `yaml:"team"`
	Events       []Event       `yaml:"events"`
	Testimonials []Testimonial `yaml:"testimonials"`
	Services     []Service     `yaml:"services"`
	Stats        []Stat        `yaml:"stats"`
}

// Repository answers content queries
type Repository struct {
	doc Document
}

// Load reads and validates the content file at path
func Load(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	repo, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("content: %s: %w", path, err)
	}
	return repo, nil
}

// Parse builds a Repository from YAML bytes
func Parse(data []byte) (*Repository, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	doc.normalize()
	return &Repository{doc: doc}, nil
}

func (d *Document) validate() error {
	var errs []error
	if strings.TrimSpace(d.Site.Name) == "" {
		errs = append(errs, errors.New("site.name is required"))
	}
	seen := map[string]bool{}
	for i, p := range d.Posts {
		if strings.TrimSpace(p.Slug) == "" || strings.TrimSpace(p.Title) == "" {
			errs = append(errs, fmt.Errorf("posts[%d]: slug and title are required", i))
		}
		if seen["post:"+p.Slug] {
			errs = append(errs, fmt.Errorf("posts[%d]: duplicate slug %q", i, p.Slug))
		}
		seen["post:"+p.Slug] = true
	}
	for i, p := range d.Pages {
		if strings.TrimSpace(p.Slug) == "" || strings.TrimSpace(p.Title) == "" {
			errs = append(errs, fmt.Errorf("pages[%d]: slug and title are required", i))
		}
	}
	for i, m := range d.Team {
		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, fmt.Errorf("team[%d]: name is required", i))
		}
	}
	for i, e := range d.Events {
		if strings.TrimSpace(e.Title) == "" {
			errs = append(errs, fmt.Errorf("events[%d]: title is required", i))
		}
		if e.Start.IsZero() {
			errs = append(errs, fmt.Errorf("events[%d]: start is required", i))
		}
		if !e.End.IsZero() && e.End.Before(e.Start) {
			errs = append(errs, fmt.Errorf("events[%d]: end is before start", i))
		}
	}
	for i, t := range d.Testimonials {
		if strings.TrimSpace(t.Quote) == "" || strings.TrimSpace(t.Author) == "" {
			errs = append(errs, fmt.Errorf("testimonials[%d]: author and quote are required", i))
		}
		if t.Rating < 0 || t.Rating > 5 {
			errs = append(errs, fmt.Errorf("testimonials[%d]: rating must be between 1 and 5", i))
		}
	}
	return errors.Join(errs...)
}

func (d *Document) normalize() {
	if d.ThemeMods == nil {
		d.ThemeMods = theme.Mods{}
	}
	if d.Site.Language == "" {
		d.Site.Language = "en"
	}
	d.Site.URL = strings.TrimRight(d.Site.URL, "/")

	sort.SliceStable(d.Posts, func(i, j int) bool {
		return d.Posts[i].Date.After(d.Posts[j].Date)
	})
	sort.SliceStable(d.Events, func(i, j int) bool {
		return d.Events[i].Start.Before(d.Events[j].Start)
	})
	sort.SliceStable(d.Team, func(i, j int) bool {
		if d.Team[i].Order != d.Team[j].Order {
			return d.Team[i].Order < d.Team[j].Order
		}
		return d.Team[i].Name < d.Team[j].Name
	})
	for i := range d.Testimonials {
		if d.Testimonials[i].Rating == 0 {
			d.Testimonials[i].Rating = 5
		}
	}
	for i := range d.Events {
		if d.Events[i].Status == "" {
			d.Events[i].Status = "scheduled"
		}
		if d.Events[i].Currency == "" {
			d.Events[i].Currency = "USD"
		}
	}
}

// Site returns site metadata
func (r *Repository) Site() Site { return r.doc.Site }

// Mods returns the theme options
func (r *Repository) Mods() theme.Mods { return r.doc.ThemeMods }

// Services returns the home page offerings
func (r *Repository) Services() []Service { return r.doc.Services }

// Stats returns the about page numbers
func (r *Repository) Stats() []Stat { return r.doc.Stats }

// Page looks up a standalone page by slug
func (r *Repository) Page(slug string) (Page, bool) {
	for _, p := range r.doc.Pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}
