package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `
site:
  name: RecruitPro
  url: https://recruitpro.example/
theme_mods:
  blog_posts_per_page: 2
  home_show_team: false
pages:
  - slug: about
    title: About Us
    content: We place people.
posts:
  - slug: older
    title: Interview Tips
    date: 2026-01-10T09:00:00Z
    categories: [Candidates]
    excerpt: Prepare well.
  - slug: newest
    title: Hiring Trends 2026
    date: 2026-09-01T09:00:00Z
    categories: [Employers, Market]
    content: Salaries are rising in engineering.
  - slug: middle
    title: Remote Work
    date: 2026-05-05T09:00:00Z
    categories: [Employers]
team:
  - name: Zoe
    department: Executive
    order: 1
  - name: Adam
    department: Tech
    order: 2
  - name: Bea
    department: Executive
    order: 1
events:
  - title: Spring Fair
    start: 2026-04-01T10:00:00Z
    end: 2026-04-01T16:00:00Z
  - title: Winter Webinar
    start: 2026-12-01T15:00:00Z
    virtual_url: https://meet.example/w
  - title: Summer Mixer
    start: 2026-07-01T18:00:00Z
testimonials:
  - author: Jane
    quote: Great service.
    rating: 4
  - author: Raj
    quote: Found my dream job.
`

func mustParse(t *testing.T, data string) *Repository {
	t.Helper()
	repo, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Failed to parse content: %v", err)
	}
	return repo
}

func TestParseNormalizes(t *testing.T) {
	repo := mustParse(t, sample)

	if repo.Site().URL != "https://recruitpro.example" {
		t.Errorf("Expected trailing slash trimmed, got '%s'", repo.Site().URL)
	}
	if repo.Site().Language != "en" {
		t.Errorf("Expected default language 'en', got '%s'", repo.Site().Language)
	}
	if repo.Mods().Int("blog_posts_per_page", 10) != 2 {
		t.Errorf("Expected theme mod to be loaded")
	}
	recent := repo.RecentPosts(10)
	if len(recent) != 3 || recent[0].Slug != "newest" || recent[2].Slug != "older" {
		t.Errorf("Expected posts newest first, got %+v", recent)
	}
	if got := repo.Testimonials(0)[1].Rating; got != 5 {
		t.Errorf("Expected missing rating to default to 5, got %d", got)
	}
	if page, ok := repo.Page("about"); !ok || page.Title != "About Us" {
		t.Errorf("Expected about page, got %+v %v", page, ok)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	_, err := Parse([]byte(`
posts:
  - slug: a
    title: A
  - slug: a
    title: B
events:
  - title: Broken
    start: 2026-05-01T10:00:00Z
    end: 2026-04-01T10:00:00Z
testimonials:
  - author: X
    quote: Y
    rating: 9
`))
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"site.name", "duplicate slug", "end is before start", "rating"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %q, got %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if repo.Site().Name != "RecruitPro" {
		t.Errorf("Expected 'RecruitPro', got '%s'", repo.Site().Name)
	}
}

func TestPostsQuery(t *testing.T) {
	repo := mustParse(t, sample)

	page := repo.Posts(PostQuery{Page: 1, PerPage: 2})
	if page.Total != 3 || page.TotalPages != 2 || len(page.Posts) != 2 {
		t.Errorf("Unexpected first page %+v", page)
	}
	if page.HasPrev() || !page.HasNext() {
		t.Errorf("Unexpected navigation on first page")
	}

	page = repo.Posts(PostQuery{Page: 99, PerPage: 2})
	if page.Page != 2 || len(page.Posts) != 1 || page.Posts[0].Slug != "older" {
		t.Errorf("Expected clamp to last page, got %+v", page)
	}

	page = repo.Posts(PostQuery{Category: "employers", PerPage: 10})
	if page.Total != 2 {
		t.Errorf("Expected 2 employer posts, got %d", page.Total)
	}

	page = repo.Posts(PostQuery{Search: "SALARIES", PerPage: 10})
	if page.Total != 1 || page.Posts[0].Slug != "newest" {
		t.Errorf("Expected search to match content, got %+v", page)
	}

	page = repo.Posts(PostQuery{Search: "nothing matches", PerPage: 10})
	if page.Total != 0 || page.Page != 1 || page.TotalPages != 1 {
		t.Errorf("Expected single empty page, got %+v", page)
	}
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		total, page, perPage              int
		wantPage, wantPages, wantS, wantE int
	}{
		{0, 1, 10, 1, 1, 0, 0},
		{25, 3, 10, 3, 3, 20, 25},
		{25, -1, 10, 1, 3, 0, 10},
		{25, 7, 10, 3, 3, 20, 25},
		{5, 1, 0, 1, 1, 0, 5},
	}
	for _, c := range cases {
		page, pages, s, e := Paginate(c.total, c.page, c.perPage)
		if page != c.wantPage || pages != c.wantPages || s != c.wantS || e != c.wantE {
			t.Errorf("Paginate(%d,%d,%d) = %d,%d,%d,%d", c.total, c.page, c.perPage, page, pages, s, e)
		}
	}
}

func TestCategoriesAndTeam(t *testing.T) {
	repo := mustParse(t, sample)

	cats := repo.Categories()
	if strings.Join(cats, ",") != "Candidates,Employers,Market" {
		t.Errorf("Unexpected categories %v", cats)
	}

	team := repo.Team("")
	if len(team) != 3 || team[0].Name != "Bea" || team[1].Name != "Zoe" {
		t.Errorf("Expected team sorted by order then name, got %+v", team)
	}
	if got := repo.Team("tech"); len(got) != 1 || got[0].Name != "Adam" {
		t.Errorf("Expected department filter to be case-insensitive, got %+v", got)
	}
	if deps := repo.Departments(); strings.Join(deps, ",") != "Executive,Tech" {
		t.Errorf("Unexpected departments %v", deps)
	}
}

func TestEventsSplit(t *testing.T) {
	repo := mustParse(t, sample)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	upcoming := repo.UpcomingEvents(now)
	if len(upcoming) != 1 || upcoming[0].Title != "Winter Webinar" {
		t.Errorf("Unexpected upcoming events %+v", upcoming)
	}
	if !upcoming[0].Virtual() {
		t.Error("Expected webinar to be virtual")
	}
	past := repo.PastEvents(now)
	if len(past) != 2 || past[0].Title != "Summer Mixer" {
		t.Errorf("Expected past events most recent first, got %+v", past)
	}
	if past[0].Status != "scheduled" || past[0].Currency != "USD" {
		t.Errorf("Expected event defaults, got %+v", past[0])
	}
}

func TestAverageRating(t *testing.T) {
	repo := mustParse(t, sample)
	if got := repo.AverageRating(); got != 4.5 {
		t.Errorf("Expected 4.5, got %v", got)
	}
	empty := mustParse(t, "site:\n  name: X\n")
	if empty.AverageRating() != 0 {
		t.Error("Expected 0 with no testimonials")
	}
}
