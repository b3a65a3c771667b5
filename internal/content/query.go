package content

import (
	"sort"
	"strings"
	"time"
)

// PostQuery filters and pages the blog
type PostQuery struct {
	Category string
	Search   string
	Page     int
	PerPage  int
}

// PostPage is one page of blog results
type PostPage struct {
	Posts      []Post
	Page       int
	TotalPages int
	Total      int
	Category   string
	Search     string
}

// HasPrev reports whether a previous page exists
func (p PostPage) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists
func (p PostPage) HasNext() bool { return p.Page < p.TotalPages }

// Paginate clamps page into [1, totalPages] and returns the slice bounds.
// totalPages is at least 1 so an empty list still has a page to render.
func Paginate(total, page, perPage int) (clamped, totalPages, start, end int) {
	if perPage <= 0 {
		perPage = 10
	}
	totalPages = (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start = (page - 1) * perPage
	end = start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return page, totalPages, start, end
}

// Posts returns the posts matching q, newest first
func (r *Repository) Posts(q PostQuery) PostPage {
	category := strings.TrimSpace(q.Category)
	search := strings.ToLower(strings.TrimSpace(q.Search))

	var matched []Post
	for _, p := range r.doc.Posts {
		if category != "" && !hasCategory(p, category) {
			continue
		}
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		matched = append(matched, p)
	}

	page, totalPages, start, end := Paginate(len(matched), q.Page, q.PerPage)
	return PostPage{
		Posts:      matched[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      len(matched),
		Category:   category,
		Search:     q.Search,
	}
}

// RecentPosts returns the newest n posts
func (r *Repository) RecentPosts(n int) []Post {
	if n > len(r.doc.Posts) {
		n = len(r.doc.Posts)
	}
	if n < 0 {
		n = 0
	}
	return r.doc.Posts[:n]
}

// Categories returns every post category, sorted
func (r *Repository) Categories() []string {
	set := map[string]struct{}{}
	for _, p := range r.doc.Posts {
		for _, c := range p.Categories {
			set[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Team returns members of department, or everyone when department is empty
func (r *Repository) Team(department string) []Member {
	if department == "" {
		return r.doc.Team
	}
	var out []Member
	for _, m := range r.doc.Team {
		if strings.EqualFold(m.Department, department) {
			out = append(out, m)
		}
	}
	return out
}

// Departments returns the distinct departments in team order
func (r *Repository) Departments() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range r.doc.Team {
		if m.Department == "" || seen[m.Department] {
			continue
		}
		seen[m.Department] = true
		out = append(out, m.Department)
	}
	return out
}

// UpcomingEvents returns events that have not ended yet, soonest first
func (r *Repository) UpcomingEvents(now time.Time) []Event {
	var out []Event
	for _, e := range r.doc.Events {
		if !e.finishedBy(now) {
			out = append(out, e)
		}
	}
	return out
}

// PastEvents returns finished events, most recent first
func (r *Repository) PastEvents(now time.Time) []Event {
	var out []Event
	for i := len(r.doc.Events) - 1; i >= 0; i-- {
		if r.doc.Events[i].finishedBy(now) {
			out = append(out, r.doc.Events[i])
		}
	}
	return out
}

// Testimonials returns at most n testimonials, all when n <= 0
func (r *Repository) Testimonials(n int) []Testimonial {
	if n <= 0 || n > len(r.doc.Testimonials) {
		return r.doc.Testimonials
	}
	return r.doc.Testimonials[:n]
}

// AverageRating returns the mean testimonial rating, 0 when there are none
func (r *Repository) AverageRating() float64 {
	if len(r.doc.Testimonials) == 0 {
		return 0
	}
	sum := 0
	for _, t := range r.doc.Testimonials {
		sum += t.Rating
	}
	return float64(sum) / float64(len(r.doc.Testimonials))
}

func (e Event) finishedBy(now time.Time) bool {
	end := e.End
	if end.IsZero() {
		end = e.Start
	}
	return end.Before(now)
}

// Virtual reports whether the event is held online only
func (e Event) Virtual() bool {
	return e.VirtualURL != "" && e.Location == ""
}

func hasCategory(p Post, category string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

func matchesSearch(p Post, needle string) bool {
	return strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Excerpt), needle) ||
		strings.Contains(strings.ToLower(p.Content), needle)
}
