// Package feed aggregates external RSS and Atom feeds for the news page.
//
// Parsed feeds are cached as transients keyed by a hash of the feed URL.
// A feed that cannot be fetched or parsed yields an empty item list; the
// failure is logged and never cached.
package feed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"recruitpro/internal/store"
)

const cacheKeyPrefix = "recruitpro_rss_"

// Item is one entry of a feed, already trimmed for display
type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Published   time.Time `json:"published"`
	Source      string    `json:"source"`
}

// Result is the outcome of loading one feed
type Result struct {
	URL         string
	Title       string
	Items       []Item
	Unavailable bool
}

// TransientStore is the cache the aggregator reads through
type TransientStore interface {
	GetTransient(ctx context.Context, key string, dst any) (bool, error)
	SetTransient(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteTransient(ctx context.Context, key string) error
}

// Options tune an Aggregator
type Options struct {
	TTL      time.Duration
	MaxItems int
	MaxWords int
	Timeout  time.Duration
	Client   *http.Client
}

// Aggregator fetches feeds with a cache-aside read
type Aggregator struct {
	cache TransientStore
	opts  Options
	group singleflight.Group
}

type cachedFeed struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// NewAggregator returns an Aggregator reading through cache
func NewAggregator(cache TransientStore, opts Options) *Aggregator {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = 5
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = 30
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	return &Aggregator{cache: cache, opts: opts}
}

// CacheKey returns the transient key for url
func CacheKey(url string) string {
	sum := md5.Sum([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Fetch returns the items of url, from cache when possible. It never
// returns nil; a failed fetch yields an empty slice.
func (a *Aggregator) Fetch(ctx context.Context, url string) []Item {
	feed, err := a.load(ctx, url)
	if err != nil {
		return []Item{}
	}
	return feed.Items
}

// FetchAll loads every url in parallel. Results keep the order of urls.
func (a *Aggregator) FetchAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	var g errgroup.Group
	g.SetLimit(4)
	for i, url := range urls {
		g.Go(func() error {
			feed, err := a.load(ctx, url)
			results[i] = Result{
				URL:         url,
				Title:       feed.Title,
				Items:       feed.Items,
				Unavailable: err != nil,
			}
			if results[i].Items == nil {
				results[i].Items = []Item{}
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// drop removes the cached copy of url. A missing entry is not an error.
func (a *Aggregator) drop(ctx context.Context, url string) error {
	err := a.cache.DeleteTransient(ctx, CacheKey(url))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// Warm fetches url and replaces its cached copy. A failed fetch leaves the
// previous copy in place.
func (a *Aggregator) Warm(ctx context.Context, url string) error {
	_, err := a.fetchShared(ctx, url)
	return err
}

func (a *Aggregator) load(ctx context.Context, url string) (cachedFeed, error) {
	key := CacheKey(url)
	log := logrus.WithField("url", url)

	var cached cachedFeed
	found, err := a.cache.GetTransient(ctx, key, &cached)
	if err != nil {
		log.WithError(err).Warn("Feed cache read failed, dropping entry")
		if err := a.drop(ctx, url); err != nil {
			log.WithError(err).Warn("Failed to drop unreadable feed cache entry")
		}
	} else if found {
		log.WithField("items", len(cached.Items)).Debug("Feed cache hit")
		return cached, nil
	}

	return a.fetchShared(ctx, url)
}

// fetchShared fetches url once for all concurrent callers and caches the
// result on success.
func (a *Aggregator) fetchShared(ctx context.Context, url string) (cachedFeed, error) {
	key := CacheKey(url)
	log := logrus.WithField("url", url)

	// the shared fetch must not die with whichever request started it
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := a.group.Do(key, func() (any, error) {
		feed, err := a.fetch(fetchCtx, url)
		if err != nil {
			return cachedFeed{}, err
		}
		if err := a.cache.SetTransient(fetchCtx, key, feed, a.opts.TTL); err != nil {
			log.WithError(err).Warn("Failed to cache feed")
		}
		return feed, nil
	})
	if err != nil {
		log.WithError(err).Error("Feed unavailable")
		return cachedFeed{}, err
	}
	feed := v.(cachedFeed)
	log.WithFields(logrus.Fields{
		"items":  len(feed.Items),
		"shared": shared,
	}).Info("Feed fetched")
	return feed, nil
}

func (a *Aggregator) fetch(ctx context.Context, url string) (cachedFeed, error) {
	ctx, span := otel.Tracer("recruitpro/feed").Start(ctx, "feed.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("feed.url", url))

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = a.opts.Client
	parsed, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return cachedFeed{}, fmt.Errorf("fetch feed %s: %w", url, err)
	}

	source := strings.TrimSpace(parsed.Title)
	items := make([]Item, 0, a.opts.MaxItems)
	for _, it := range parsed.Items {
		if len(items) == a.opts.MaxItems {
			break
		}
		if it == nil {
			continue
		}
		desc := it.Description
		if strings.TrimSpace(desc) == "" {
			desc = it.Content
		}
		items = append(items, Item{
			Title:       strings.TrimSpace(StripHTML(it.Title)),
			Link:        strings.TrimSpace(it.Link),
			Description: TrimWords(StripHTML(desc), a.opts.MaxWords),
			Published:   published(it),
			Source:      source,
		})
	}
	span.SetAttributes(attribute.Int("feed.items", len(items)))
	return cachedFeed{Title: source, Items: items}, nil
}

func published(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return it.PublishedParsed.UTC()
	}
	if it.UpdatedParsed != nil {
		return it.UpdatedParsed.UTC()
	}
	return time.Time{}
}

// Merge flattens results into one list, newest first, capped at limit
// (no cap when limit <= 0)
func Merge(results []Result, limit int) []Item {
	var all []Item
	for _, r := range results {
		all = append(all, r.Items...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

