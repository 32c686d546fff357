package orchestrate

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// siteEntry tracks one site's semaphore and how many renders hold or wait on it
type siteEntry struct {
	sem    *semaphore.Weighted
	active int64
}

// SiteSlots bounds concurrent renders per registrable domain, so a burst of previews
// for one site does not start a browser per request against it
// Entries are dropped as soon as nobody holds or waits on them
type SiteSlots struct {
	entries map[string]*siteEntry
	mu      sync.Mutex
	limit   int64
	log     *logrus.Entry
}

// NewSiteSlots creates a pool allowing perSite concurrent renders of each site
func NewSiteSlots(perSite int, log *logrus.Entry) *SiteSlots {
	limit := int64(perSite)
	if limit <= 0 {
		limit = 1
	}
	return &SiteSlots{
		entries: make(map[string]*siteEntry),
		limit:   limit,
		log:     log,
	}
}

// Acquire blocks until site has a free slot or ctx ends
func (s *SiteSlots) Acquire(ctx context.Context, site string) error {
	s.mu.Lock()
	entry, ok := s.entries[site]
	if !ok {
		entry = &siteEntry{sem: semaphore.NewWeighted(s.limit)}
		s.entries[site] = entry
	}
	entry.active++
	s.mu.Unlock()

	if err := entry.sem.Acquire(ctx, 1); err != nil {
		s.drop(site, entry)
		return err
	}
	return nil
}

// Release returns a slot taken by a successful Acquire
func (s *SiteSlots) Release(site string) {
	s.mu.Lock()
	entry, ok := s.entries[site]
	s.mu.Unlock()
	if !ok {
		s.log.Errorf("site slots: Release called for unknown site %q", site)
		return
	}
	entry.sem.Release(1)
	s.drop(site, entry)
}

func (s *SiteSlots) drop(site string, entry *siteEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.active--
	if entry.active == 0 && s.entries[site] == entry {
		delete(s.entries, site)
	}
}

// Len returns the number of sites with renders holding or waiting on a slot
func (s *SiteSlots) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
