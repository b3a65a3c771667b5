package handlers

import (
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"recruitpro/internal/content"
	"recruitpro/internal/feed"
	"recruitpro/internal/nonce"
	"recruitpro/internal/render"
	"recruitpro/internal/schema"
	"recruitpro/internal/subscribe"
	"recruitpro/internal/theme"
	"recruitpro/internal/types"
	"recruitpro/internal/websocket"
)

// AjaxPath is where subscription forms post to
const AjaxPath = "/wp-admin/admin-ajax.php"

// NavItem is one entry of the main navigation
type NavItem struct {
	Label string
	Path  string
}

// Layout is the site-wide data every page template sees as .Layout
type Layout struct {
	SiteName     string
	Tagline      string
	Description  string
	Language     string
	URL          string
	LogoURL      string
	Phone        string
	Email        string
	Address      string
	Social       []theme.SocialLink
	Nav          []NavItem
	Organization template.HTML
}

// Options are the dependencies of a Server
type Options struct {
	Content   *content.Repository
	Site      *render.Site
	Feeds     *feed.Aggregator
	FeedURLs  []string
	FeedItems int
	Subscribe *subscribe.Service
	Nonces    *nonce.Issuer
	Hub       *websocket.Hub
	Static    fs.FS
	Now       func() time.Time
}

// Server serves the site pages, AJAX actions and JSON endpoints
type Server struct {
	content   *content.Repository
	site      *render.Site
	feeds     *feed.Aggregator
	feedURLs  []string
	feedItems int
	subs      *subscribe.Service
	nonces    *nonce.Issuer
	hub       *websocket.Hub
	static    fs.FS
	now       func() time.Time
	org       schema.Node
}

// New returns a Server
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FeedItems <= 0 {
		opts.FeedItems = 5
	}
	return &Server{
		content:   opts.Content,
		site:      opts.Site,
		feeds:     opts.Feeds,
		feedURLs:  opts.FeedURLs,
		feedItems: opts.FeedItems,
		subs:      opts.Subscribe,
		nonces:    opts.Nonces,
		hub:       opts.Hub,
		static:    opts.Static,
		now:       opts.Now,
		org:       OrganizationNode(opts.Content),
	}
}

// OrganizationNode describes the agency from the content's site block and
// theme options
func OrganizationNode(repo *content.Repository) schema.Node {
	site := repo.Site()
	mods := repo.Mods()
	return schema.Organization(schema.OrganizationInput{
		Name:        mods.String("company_name", site.Name),
		URL:         site.URL,
		Logo:        mods.String("logo_url", ""),
		Description: mods.String("company_description", site.Description),
		Telephone:   mods.String("company_phone", ""),
		Email:       mods.String("company_email", ""),
		Address:     mods.String("company_address", ""),
		SameAs:      mods.SocialURLs(),
	})
}

// NewLayout builds the shared page chrome from content
func NewLayout(repo *content.Repository) (Layout, error) {
	site := repo.Site()
	mods := repo.Mods()

	org, err := schema.Script(OrganizationNode(repo))
	if err != nil {
		return Layout{}, err
	}
	return Layout{
		SiteName:    mods.String("company_name", site.Name),
		Tagline:     mods.String("company_tagline", ""),
		Description: mods.String("company_description", site.Description),
		Language:    site.Language,
		URL:         site.URL,
		LogoURL:     mods.String("logo_url", ""),
		Phone:       mods.String("company_phone", ""),
		Email:       mods.String("company_email", ""),
		Address:     mods.String("company_address", ""),
		Social:      mods.SocialLinks(),
		Nav: []NavItem{
			{Label: "Home", Path: "/"},
			{Label: "About", Path: "/about"},
			{Label: "Team", Path: "/team"},
			{Label: "Blog", Path: "/blog"},
			{Label: "Events", Path: "/events"},
			{Label: "News", Path: "/news"},
		},
		Organization: org,
	}, nil
}

// sendError sends a failed AJAX envelope
func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, types.Response{
		Success: false,
		Data:    types.ResponseData{Message: message},
	})
}

// sendSuccess sends a successful AJAX envelope
func sendSuccess(w http.ResponseWriter, message string) {
	sendJSON(w, http.StatusOK, types.Response{
		Success: true,
		Data:    types.ResponseData{Message: message},
	})
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("Failed to write JSON response")
	}
}

func (s *Server) pageSchema(nodes ...schema.Node) template.HTML {
	script, err := schema.Script(nodes...)
	if err != nil {
		logrus.WithError(err).Warn("Failed to build JSON-LD")
		return ""
	}
	return script
}
