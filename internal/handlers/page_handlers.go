package handlers

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"recruitpro/internal/content"
	"recruitpro/internal/countdown"
	"recruitpro/internal/feed"
	"recruitpro/internal/render"
	"recruitpro/internal/schema"
	"recruitpro/internal/state"
	"recruitpro/internal/types"
)

// FormData fills a subscription form
type FormData struct {
	AjaxURL string
	Action  string
	Nonce   string
	Source  string
	Heading string
	Button  string
}

// FilterData fills a select-and-search filter bar
type FilterData struct {
	Path     string
	Param    string
	Label    string
	Options  []string
	Selected string
	Search   bool
	Query    string
}

// HomeData is the home page view
type HomeData struct {
	Schema       template.HTML
	Services     []content.Service
	Posts        []content.Post
	Testimonials []content.Testimonial
	Team         []content.Member
	News         []feed.Item
	Newsletter   FormData
}

// AboutData is the about page view
type AboutData struct {
	Schema     template.HTML
	About      content.Page
	Stats      []content.Stat
	Team       []content.Member
	Newsletter FormData
}

// BlogData is the blog archive view
type BlogData struct {
	Schema     template.HTML
	Result     content.PostPage
	Filter     FilterData
	PrevURL    string
	NextURL    string
	Newsletter FormData
}

// EventsData is the events page view
type EventsData struct {
	Schema   template.HTML
	Upcoming []content.Event
	Past     []content.Event
	ShowPast bool
}

// NewsData is the news page view
type NewsData struct {
	Schema template.HTML
	Feeds  []feed.Result
}

// TeamData is the team page view
type TeamData struct {
	Schema     template.HTML
	Members    []content.Member
	ShowFilter bool
	Filter     FilterData
}

// CountdownData is the coming-soon and maintenance page view
type CountdownData struct {
	Schema     template.HTML
	Heading    string
	Message    string
	Target     string
	TargetISO  string
	HasTarget  bool
	Units      countdown.Units
	Newsletter FormData
}

const (
	homePostCount        = 3
	homeTestimonialCount = 3
	homeTeamCount        = 4
	aboutLeadershipCount = 4
	defaultPostsPerPage  = 6
)

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func (s *Server) pageURL(path string) string {
	return s.content.Site().URL + path
}

// HomeHandler serves the home page and answers unknown paths with 404
func (s *Server) HomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.NotFoundHandler(w, r)
		return
	}
	if !allowGet(w, r) {
		return
	}
	mods := s.content.Mods()
	site := s.content.Site()

	data := HomeData{
		Services:   s.content.Services(),
		Posts:      s.content.RecentPosts(homePostCount),
		Newsletter: s.formData(types.ActionNewsletterSignup, "Get hiring insights in your inbox", "Subscribe"),
	}
	org := s.org
	var reviews []schema.Node
	if mods.Bool("home_show_testimonials", true) {
		org = schema.WithAggregateRating(s.org, s.content.AverageRating(), len(s.content.Testimonials(0)))
		data.Testimonials = s.content.Testimonials(homeTestimonialCount)
		for _, t := range data.Testimonials {
			reviews = append(reviews, schema.Review(schema.ReviewInput{
				Author:   t.Author,
				Body:     t.Quote,
				Rating:   t.Rating,
				Date:     t.Date,
				Reviewed: org,
			}))
		}
	}
	nodes := append([]schema.Node{schema.WebPage(mods.String("company_name", site.Name), s.pageURL("/"), site.Description, org)}, reviews...)
	if mods.Bool("home_show_team", true) {
		team := s.content.Team("")
		if len(team) > homeTeamCount {
			team = team[:homeTeamCount]
		}
		data.Team = team
	}
	if mods.Bool("home_show_news", true) && len(s.feedURLs) > 0 {
		data.News = feed.Merge(s.feeds.FetchAll(r.Context(), s.feedURLs), s.feedItems)
	}
	data.Schema = s.pageSchema(nodes...)

	render.Render(r.Context(), w, s.site, render.Home, data)
}

// AboutHandler serves the about page
func (s *Server) AboutHandler(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	mods := s.content.Mods()

	about, ok := s.content.Page("about")
	if !ok {
		about = content.Page{Slug: "about", Title: "About us", Summary: mods.String("company_description", "")}
	}
	data := AboutData{
		About:      about,
		Newsletter: s.formData(types.ActionNewsletterSignup, "Stay in touch", "Subscribe"),
	}
	if mods.Bool("about_show_stats", true) {
		data.Stats = s.content.Stats()
	}
	team := s.content.Team("")
	if len(team) > aboutLeadershipCount {
		team = team[:aboutLeadershipCount]
	}
	data.Team = team
	data.Schema = s.pageSchema(schema.WebPage(about.Title, s.pageURL("/about"), about.Summary, s.org))

	render.Render(r.Context(), w, s.site, render.About, data)
}

// BlogHandler serves the paginated, filterable post archive
func (s *Server) BlogHandler(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page == 0 {
		page, _ = strconv.Atoi(q.Get("paged"))
	}
	perPage := s.content.Mods().Int("blog_posts_per_page", defaultPostsPerPage)

	result := s.content.Posts(content.PostQuery{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     page,
		PerPage:  perPage,
	})

	data := BlogData{
		Result: result,
		Filter: FilterData{
			Path:     "/blog",
			Param:    "category",
			Label:    "Category",
			Options:  s.content.Categories(),
			Selected: result.Category,
			Search:   true,
			Query:    result.Search,
		},
		Newsletter: s.formData(types.ActionNewsletterSignup, "Never miss an article", "Subscribe"),
	}
	if result.HasPrev() {
		data.PrevURL = blogURL(result, result.Page-1)
	}
	if result.HasNext() {
		data.NextURL = blogURL(result, result.Page+1)
	}

	postings := make([]schema.PostingInput, 0, len(result.Posts))
	for _, p := range result.Posts {
		postings = append(postings, schema.PostingInput{
			Headline:    p.Title,
			URL:         s.pageURL("/blog#" + p.Slug),
			Author:      p.Author,
			Published:   p.Date,
			Description: p.Excerpt,
			Image:       p.Image,
		})
	}
	site := s.content.Site()
	data.Schema = s.pageSchema(schema.Blog(site.Name+" blog", s.pageURL("/blog"), site.Description, postings))

	render.Render(r.Context(), w, s.site, render.Blog, data)
}

func blogURL(result content.PostPage, page int) string {
	v := url.Values{}
	if result.Category != "" {
		v.Set("category", result.Category)
	}
	if result.Search != "" {
		v.Set("search", result.Search)
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return "/blog"
	}
	return "/blog?" + v.Encode()
}

// EventsHandler serves upcoming and, optionally, past events
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	now := s.now()
	data := EventsData{
		Upcoming: s.content.UpcomingEvents(now),
		ShowPast: s.content.Mods().Bool("events_show_past", true),
	}
	if data.ShowPast {
		data.Past = s.content.PastEvents(now)
	}

	nodes := make([]schema.Node, 0, len(data.Upcoming)+1)
	nodes = append(nodes, schema.WebPage("Events", s.pageURL("/events"), "", s.org))
	for _, e := range data.Upcoming {
		nodes = append(nodes, schema.Event(schema.EventInput{
			Name:            e.Title,
			Description:     e.Description,
			Start:           e.Start,
			End:             e.End,
			Location:        e.Location,
			Address:         e.Address,
			VirtualURL:      e.VirtualURL,
			Status:          e.Status,
			Price:           e.Price,
			Currency:        e.Currency,
			RegistrationURL: e.RegistrationURL,
			Image:           e.Image,
			Organizer:       s.org,
		}))
	}
	data.Schema = s.pageSchema(nodes...)

	render.Render(r.Context(), w, s.site, render.Events, data)
}

// NewsHandler serves the aggregated industry feeds. A feed that cannot be
// loaded renders as unavailable.
func (s *Server) NewsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	results := s.feeds.FetchAll(r.Context(), s.feedURLs)
	titles := s.content.Mods().Strings("news_feed_titles")
	for i := range results {
		if i < len(titles) && titles[i] != "" {
			results[i].Title = titles[i]
		}
	}
	data := NewsData{
		Feeds:  results,
		Schema: s.pageSchema(schema.WebPage("Industry news", s.pageURL("/news"), "", s.org)),
	}
	render.Render(r.Context(), w, s.site, render.News, data)
}

// TeamHandler serves the team, optionally filtered by department
func (s *Server) TeamHandler(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	department := r.URL.Query().Get("department")
	data := TeamData{
		Members:    s.content.Team(department),
		ShowFilter: s.content.Mods().Bool("team_show_department_filter", true),
		Filter: FilterData{
			Path:     "/team",
			Param:    "department",
			Label:    "Department",
			Options:  s.content.Departments(),
			Selected: department,
		},
		Schema: s.pageSchema(schema.WebPage("Our team", s.pageURL("/team"), "", s.org)),
	}
	render.Render(r.Context(), w, s.site, render.Team, data)
}

// ComingSoonHandler serves the pre-launch page with a countdown to launch
func (s *Server) ComingSoonHandler(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	mods := s.content.Mods()
	data := s.countdownData(types.TargetLaunch)
	data.Heading = mods.String("coming_soon_heading", "Something great is on its way")
	data.Message = mods.String("coming_soon_message", "We are building a better way to connect talent with opportunity.")
	data.Newsletter = s.formData(types.ActionComingSoonSubscription, "Be the first to know", "Notify me")
	data.Schema = s.pageSchema(schema.WebPage("Coming soon", s.pageURL("/coming-soon"), data.Message, s.org))

	render.Render(r.Context(), w, s.site, render.ComingSoon, data)
}

// MaintenanceHandler previews the maintenance page
func (s *Server) MaintenanceHandler(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	s.renderMaintenance(w, r, http.StatusOK)
}

func (s *Server) renderMaintenance(w http.ResponseWriter, r *http.Request, status int) {
	mods := s.content.Mods()
	data := s.countdownData(types.TargetMaintenance)
	data.Heading = mods.String("maintenance_heading", "We will be back soon")
	data.Message = mods.String("maintenance_message", "The site is undergoing scheduled maintenance.")
	data.Newsletter = s.formData(types.ActionMaintenanceNewsletter, "Get notified when we are back", "Notify me")
	data.Schema = s.pageSchema(schema.WebPage("Maintenance", s.pageURL("/maintenance"), data.Message, s.org))

	if status == http.StatusServiceUnavailable && data.HasTarget {
		w.Header().Set("Retry-After", strconv.FormatInt(max(data.Units.TotalSeconds(), 1), 10))
	}
	render.RenderStatus(r.Context(), w, s.site, render.Maintenance, data, status)
}

func (s *Server) countdownData(target string) CountdownData {
	at, _ := state.Target(target)
	data := CountdownData{
		Target: target,
		Units:  countdown.Compute(at, s.now()),
	}
	if !at.IsZero() {
		data.TargetISO = at.UTC().Format(time.RFC3339)
		data.HasTarget = !data.Units.Expired
	}
	return data
}

// NotFoundHandler renders the 404 page
func (s *Server) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	render.RenderStatus(r.Context(), w, s.site, render.ErrorPage, render.ErrorData{
		Status:  http.StatusNotFound,
		Title:   "Page not found",
		Message: "The page you are looking for does not exist or has moved.",
	}, http.StatusNotFound)
}
