// Package feed imports resources from RSS and Atom feeds.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/openverse/openverse/internal/database"
	"github.com/openverse/openverse/internal/model"
)

// MinPollingIntervalMinutes is the minimum allowed interval.
const MinPollingIntervalMinutes = 15

// DefaultCategory is used for items without categories.
const DefaultCategory = "Uncategorized"

// Concurrency settings
const (
	// MaxConcurrencyPostgres is the number of parallel imports for PostgreSQL
	MaxConcurrencyPostgres = 10
	// MaxConcurrencySQLite is the number of parallel imports for SQLite (limited due to locking)
	MaxConcurrencySQLite = 1
	// MaxConcurrencyPerDomain limits parallel requests to any single domain
	MaxConcurrencyPerDomain = 2
	// DelayBetweenDomainRequests is the minimum delay between requests to the same domain
	DelayBetweenDomainRequests = 500 * time.Millisecond
)

// domainLimiter controls rate limiting per domain to avoid overwhelming hosts.
type domainLimiter struct {
	mu          sync.Mutex
	semaphores  map[string]chan struct{}
	lastRequest map[string]time.Time
}

func newDomainLimiter() *domainLimiter {
	return &domainLimiter{
		semaphores:  make(map[string]chan struct{}),
		lastRequest: make(map[string]time.Time),
	}
}

// acquire gets a slot for the domain, blocking if necessary.
// It also enforces the minimum delay between requests to the same domain.
func (dl *domainLimiter) acquire(ctx context.Context, domain string) error {
	dl.mu.Lock()
	sem, ok := dl.semaphores[domain]
	if !ok {
		sem = make(chan struct{}, MaxConcurrencyPerDomain)
		dl.semaphores[domain] = sem
	}
	dl.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	dl.mu.Lock()
	lastReq := dl.lastRequest[domain]
	dl.mu.Unlock()

	if !lastReq.IsZero() {
		if elapsed := time.Since(lastReq); elapsed < DelayBetweenDomainRequests {
			select {
			case <-time.After(DelayBetweenDomainRequests - elapsed):
			case <-ctx.Done():
				<-sem
				return ctx.Err()
			}
		}
	}
	return nil
}

// release returns a slot for the domain and records the request time.
func (dl *domainLimiter) release(domain string) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	dl.lastRequest[domain] = time.Now()
	if sem, ok := dl.semaphores[domain]; ok {
		<-sem
	}
}

func extractDomain(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	return u.Host
}

// Importer turns feed items into resources.
type Importer struct {
	db            database.Store
	parser        *gofeed.Parser
	concurrency   int
	domainLimiter *domainLimiter

	// AfterImport, when set, runs after a feed added or changed rows.
	AfterImport func(ctx context.Context)
}

// NewImporter creates an importer with concurrency based on database type.
func NewImporter(db database.Store) *Importer {
	concurrency := MaxConcurrencySQLite
	if db.SupportsHighConcurrency() {
		concurrency = MaxConcurrencyPostgres
	}
	return &Importer{
		db:            db,
		parser:        gofeed.NewParser(),
		concurrency:   concurrency,
		domainLimiter: newDomainLimiter(),
	}
}

// ImportFeed fetches and parses a single feed, storing its items.
// Returns the number of new resources.
func (im *Importer) ImportFeed(ctx context.Context, feedURL string) (int, error) {
	domain := extractDomain(feedURL)
	if err := im.domainLimiter.acquire(ctx, domain); err != nil {
		return 0, fmt.Errorf("rate limit cancelled for %s: %w", feedURL, err)
	}
	defer im.domainLimiter.release(domain)

	parsed, err := im.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	if parsed.Title == "" {
		parsed.Title = domain
	}
	return im.Import(ctx, parsed)
}

// Import stores the items of an already parsed feed.
func (im *Importer) Import(ctx context.Context, parsed *gofeed.Feed) (int, error) {
	newCount, changed := 0, 0
	for _, item := range parsed.Items {
		r, ok := Resource(parsed, item)
		if !ok {
			continue
		}
		isNew, err := im.db.UpsertResource(ctx, &r)
		if err != nil {
			if ctx.Err() != nil {
				return newCount, ctx.Err()
			}
			log.Error().Err(err).Str("source", r.SourceName).Msg("Error storing resource")
			continue
		}
		changed++
		if isNew {
			newCount++
		}
	}
	if changed > 0 && im.AfterImport != nil {
		im.AfterImport(ctx)
	}
	return newCount, nil
}

// Resource maps a feed item to a resource. Items whose result would not
// validate are reported with false.
func Resource(parsed *gofeed.Feed, item *gofeed.Item) (model.Resource, bool) {
	category := DefaultCategory
	for _, c := range item.Categories {
		if c = strings.TrimSpace(c); c != "" {
			category = c
			break
		}
	}
	r := model.Resource{
		SourceName: strings.TrimSpace(item.Title),
		Category:   category,
		Field:      strings.TrimSpace(parsed.Title),
		Link:       model.NewLink(item.Link),
	}
	if err := r.ValidateNew(); err != nil {
		log.Debug().Err(err).Str("title", item.Title).Msg("Skipping feed item")
		return r, false
	}
	return r, true
}

// ImportResult holds the result of importing a single feed.
type ImportResult struct {
	URL          string
	NewResources int
	Error        error
}

// ImportAll imports every feed with configurable concurrency.
// Returns a map of feed URL -> new resource count; failed feeds are logged and left out.
func (im *Importer) ImportAll(ctx context.Context, urls []string) (map[string]int, error) {
	if len(urls) == 0 {
		return make(map[string]int), nil
	}

	log.Info().Int("feeds", len(urls)).Int("concurrency", im.concurrency).Msg("Importing feeds")

	if im.concurrency <= 1 {
		return im.importSequential(ctx, urls)
	}
	return im.importParallel(ctx, urls)
}

func (im *Importer) importSequential(ctx context.Context, urls []string) (map[string]int, error) {
	results := make(map[string]int)
	for i, u := range urls {
		select {
		case <-ctx.Done():
			log.Warn().Int("done", i).Int("total", len(urls)).Msg("Import cancelled")
			return results, ctx.Err()
		default:
		}

		count, err := im.ImportFeed(ctx, u)
		if err != nil {
			log.Error().Err(err).Str("url", u).Msg("Failed to import feed")
			continue
		}
		results[u] = count
	}
	return results, nil
}

func (im *Importer) importParallel(ctx context.Context, urls []string) (map[string]int, error) {
	var wg sync.WaitGroup

	results := make(map[string]int)
	urlChan := make(chan string, len(urls))
	resultChan := make(chan ImportResult, len(urls))

	for i := 0; i < im.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range urlChan {
				if ctx.Err() != nil {
					return
				}
				count, err := im.ImportFeed(ctx, u)
				resultChan <- ImportResult{URL: u, NewResources: count, Error: err}
			}
		}()
	}

	for _, u := range urls {
		urlChan <- u
	}
	close(urlChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		if result.Error != nil {
			log.Error().Err(result.Error).Str("url", result.URL).Msg("Failed to import feed")
			continue
		}
		results[result.URL] = result.NewResources
	}
	return results, ctx.Err()
}
