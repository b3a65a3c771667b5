package render

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"recruitpro/internal/feed"
	"recruitpro/internal/theme"
)

func baseFuncs() template.FuncMap {
	return template.FuncMap{
		"trimWords":  trimWords,
		"formatDate": formatDate,
		"pad2":       pad2,
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"paragraphs": paragraphs,
		"stars":      stars,
		"year":       func() int { return time.Now().Year() },
	}
}

// ModFuncs exposes theme options to templates as mod, modBool and modInt
func ModFuncs(m theme.Mods) template.FuncMap {
	return template.FuncMap{
		"mod":     m.String,
		"modBool": m.Bool,
		"modInt":  m.Int,
	}
}

func trimWords(text string, n int) string {
	return feed.TrimWords(feed.StripHTML(text), n)
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	if layout == "" {
		layout = "January 2, 2006"
	}
	return t.Format(layout)
}

func pad2(n int) string {
	return fmt.Sprintf("%02d", n)
}

// paragraphs splits text on blank lines
func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}
