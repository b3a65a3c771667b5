// Package theme exposes the site's named display options.
//
// Options are loaded once from the content file and read through typed
// accessors that fall back to a default when a key is missing or has the
// wrong type.
package theme

import (
	"fmt"
	"strconv"
	"strings"
)

// Social profile keys in display order
var socialNetworks = []string{"linkedin", "twitter", "facebook", "instagram", "youtube"}

// Mods is the option map
type Mods map[string]any

// SocialLink is one social profile
type SocialLink struct {
	Network string
	URL     string
}

// String returns the option as a string
func (m Mods) String(name, def string) string {
	v, ok := m[name]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return def
		}
		return t
	case fmt.Stringer:
		return t.String()
	case int, int64, float64, bool:
		return fmt.Sprint(t)
	}
	return def
}

// Bool returns the option as a bool. The strings "1", "true", "yes" and
// "on" count as true.
func (m Mods) Bool(name string, def bool) bool {
	v, ok := m[name]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off", "":
			return false
		}
	}
	return def
}

// Int returns the option as an int
func (m Mods) Int(name string, def int) int {
	v, ok := m[name]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// Strings returns a list option; a single string becomes a one-item list.
// Entries keep their positions, and blank or non-string entries come back
// as "".
func (m Mods) Strings(name string) []string {
	v, ok := m[name]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = strings.TrimSpace(item)
		}
		return out
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			if s, ok := item.(string); ok {
				out[i] = strings.TrimSpace(s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}

// SocialLinks returns the configured social profiles in a fixed order
func (m Mods) SocialLinks() []SocialLink {
	var links []SocialLink
	for _, network := range socialNetworks {
		if url := m.String("social_"+network, ""); url != "" {
			links = append(links, SocialLink{Network: network, URL: url})
		}
	}
	return links
}

// SocialURLs returns only the URLs of SocialLinks
func (m Mods) SocialURLs() []string {
	links := m.SocialLinks()
	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	return urls
}
