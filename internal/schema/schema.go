// Package schema builds Schema.org JSON-LD nodes and renders them as
// script elements for embedding in pages.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"maps"
	"math"
	"time"
)

const Context = "https://schema.org"

// Node is a single JSON-LD object
type Node map[string]any

// OrganizationInput describes the agency
type OrganizationInput struct {
	Name        string
	URL         string
	Logo        string
	Description string
	Telephone   string
	Email       string
	Address     string
	SameAs      []string
}

// Organization builds an Organization node
func Organization(in OrganizationInput) Node {
	n := Node{"@type": "Organization", "name": in.Name}
	setIf(n, "url", in.URL)
	setIf(n, "logo", in.Logo)
	setIf(n, "description", in.Description)
	setIf(n, "telephone", in.Telephone)
	setIf(n, "email", in.Email)
	if in.Address != "" {
		n["address"] = Node{"@type": "PostalAddress", "streetAddress": in.Address}
	}
	if len(in.SameAs) > 0 {
		n["sameAs"] = in.SameAs
	}
	return n
}

// PostingInput is one blog article
type PostingInput struct {
	Headline    string
	URL         string
	Author      string
	Published   time.Time
	Description string
	Image       string
}

// BlogPosting builds a BlogPosting node
func BlogPosting(in PostingInput) Node {
	n := Node{"@type": "BlogPosting", "headline": in.Headline}
	setIf(n, "url", in.URL)
	setIf(n, "description", in.Description)
	setIf(n, "image", in.Image)
	if in.Author != "" {
		n["author"] = Node{"@type": "Person", "name": in.Author}
	}
	if !in.Published.IsZero() {
		n["datePublished"] = in.Published.Format(time.RFC3339)
	}
	return n
}

// Blog builds a Blog node listing its posts
func Blog(name, url, description string, posts []PostingInput) Node {
	n := Node{"@type": "Blog", "name": name}
	setIf(n, "url", url)
	setIf(n, "description", description)
	items := make([]Node, 0, len(posts))
	for _, p := range posts {
		items = append(items, BlogPosting(p))
	}
	n["blogPost"] = items
	return n
}

// EventInput describes an event
type EventInput struct {
	Name            string
	Description     string
	Start           time.Time
	End             time.Time
	Location        string
	Address         string
	VirtualURL      string
	Status          string
	Price           string
	Currency        string
	RegistrationURL string
	Image           string
	Organizer       Node
}

var eventStatuses = map[string]string{
	"scheduled":   "https://schema.org/EventScheduled",
	"cancelled":   "https://schema.org/EventCancelled",
	"postponed":   "https://schema.org/EventPostponed",
	"rescheduled": "https://schema.org/EventRescheduled",
	"moved":       "https://schema.org/EventMovedOnline",
}

// Event builds an Event node. The attendance mode follows from which of
// Location and VirtualURL are set.
func Event(in EventInput) Node {
	n := Node{
		"@type":     "Event",
		"name":      in.Name,
		"startDate": in.Start.Format(time.RFC3339),
	}
	if !in.End.IsZero() {
		n["endDate"] = in.End.Format(time.RFC3339)
	}
	setIf(n, "description", in.Description)
	setIf(n, "image", in.Image)

	var locations []Node
	if in.Location != "" {
		place := Node{"@type": "Place", "name": in.Location}
		if in.Address != "" {
			place["address"] = Node{"@type": "PostalAddress", "streetAddress": in.Address}
		}
		locations = append(locations, place)
	}
	if in.VirtualURL != "" {
		locations = append(locations, Node{"@type": "VirtualLocation", "url": in.VirtualURL})
	}
	switch {
	case len(locations) == 2:
		n["location"] = locations
		n["eventAttendanceMode"] = "https://schema.org/MixedEventAttendanceMode"
	case in.VirtualURL != "":
		n["location"] = locations[0]
		n["eventAttendanceMode"] = "https://schema.org/OnlineEventAttendanceMode"
	case len(locations) == 1:
		n["location"] = locations[0]
		n["eventAttendanceMode"] = "https://schema.org/OfflineEventAttendanceMode"
	}

	status, ok := eventStatuses[in.Status]
	if !ok {
		status = eventStatuses["scheduled"]
	}
	n["eventStatus"] = status

	if in.Organizer != nil {
		n["organizer"] = in.Organizer
	}
	if in.Price != "" {
		offer := Node{"@type": "Offer", "price": in.Price, "priceCurrency": in.Currency}
		setIf(offer, "url", in.RegistrationURL)
		n["offers"] = offer
	}
	return n
}

// ReviewInput is a testimonial
type ReviewInput struct {
	Author   string
	Body     string
	Rating   int
	Date     time.Time
	Reviewed Node
}

// Review builds a Review node. Ratings are clamped to 1..5.
func Review(in ReviewInput) Node {
	rating := in.Rating
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	n := Node{
		"@type":      "Review",
		"author":     Node{"@type": "Person", "name": in.Author},
		"reviewBody": in.Body,
		"reviewRating": Node{
			"@type":       "Rating",
			"ratingValue": rating,
			"bestRating":  5,
			"worstRating": 1,
		},
	}
	if !in.Date.IsZero() {
		n["datePublished"] = in.Date.Format("2006-01-02")
	}
	if in.Reviewed != nil {
		n["itemReviewed"] = in.Reviewed
	}
	return n
}

// WithAggregateRating returns a copy of item carrying an AggregateRating
// over count reviews. The average is clamped to 1-5 and rounded to one
// decimal. item is returned unchanged when count is zero.
func WithAggregateRating(item Node, average float64, count int) Node {
	if count <= 0 {
		return item
	}
	average = math.Round(min(max(average, 1), 5)*10) / 10
	rated := maps.Clone(item)
	rated["aggregateRating"] = Node{
		"@type":       "AggregateRating",
		"ratingValue": average,
		"reviewCount": count,
		"bestRating":  5,
		"worstRating": 1,
	}
	return rated
}

// WebPage builds a WebPage node
func WebPage(name, url, description string, publisher Node) Node {
	n := Node{"@type": "WebPage", "name": name}
	setIf(n, "url", url)
	setIf(n, "description", description)
	if publisher != nil {
		n["publisher"] = publisher
	}
	return n
}

// Graph groups several nodes under @graph
func Graph(nodes ...Node) Node {
	return Node{"@graph": nodes}
}

// Script renders nodes as a JSON-LD script element. Several nodes are
// combined into a graph.
func Script(nodes ...Node) (template.HTML, error) {
	if len(nodes) == 0 {
		return "", nil
	}
	var root Node
	if len(nodes) == 1 {
		root = make(Node, len(nodes[0])+1)
		for k, v := range nodes[0] {
			root[k] = v
		}
	} else {
		root = Graph(nodes...)
	}
	root["@context"] = Context

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// SetEscapeHTML keeps <, > and & as \u escapes so the payload cannot
	// close the script element.
	enc.SetEscapeHTML(true)
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("schema: encode: %w", err)
	}
	return template.HTML(`<script type="application/ld+json">` +
		string(bytes.TrimSpace(buf.Bytes())) + `</script>`), nil
}

func setIf(n Node, key, value string) {
	if value != "" {
		n[key] = value
	}
}
