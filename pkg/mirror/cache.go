package mirror

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
)

// objectCache holds the last-fetched metadata for every discovered object.
// It's populated by discovery and then upgraded in place by hydration before
// any path resolution or writing starts.
type objectCache struct {
	mu        sync.Mutex
	pages     map[string]notion.Object
	databases map[string]notion.Object
}

func newObjectCache() *objectCache {
	return &objectCache{
		pages:     map[string]notion.Object{},
		databases: map[string]notion.Object{},
	}
}

func (c *objectCache) populate(pages, databases []notion.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range pages {
		if p.ID != "" {
			c.pages[p.ID] = p
		}
	}
	for _, db := range databases {
		if db.ID != "" {
			c.databases[db.ID] = db
		}
	}
}

// page returns the cached page, or a bare stub when the id was never
// discovered. The stub keeps path resolution total: a referenced-but-unknown
// page still gets a deterministic placement.
func (c *objectCache) page(id string) (notion.Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pages[id]; ok {
		return p, true
	}
	return notion.Object{ID: id, Object: "page"}, false
}

func (c *objectCache) database(id string) notion.Object {
	c.mu.Lock()
	defer c.mu.Unlock()

	if db, ok := c.databases[id]; ok {
		return db
	}
	return notion.Object{ID: id, Object: "database"}
}

// addPageIfAbsent registers a page found while querying a database's
// entries. Pages already known (possibly hydrated) are left alone.
func (c *objectCache) addPageIfAbsent(p notion.Object) {
	if p.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pages[p.ID]; !ok {
		c.pages[p.ID] = p
	}
}

func (c *objectCache) pageIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.pages)
}

func (c *objectCache) databaseIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.databases)
}

func sortedKeys(objects map[string]notion.Object) []string {
	ids := make([]string, 0, len(objects))
	for id := range objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// hydrate replaces every discovery-time record with a full point-fetch.
// A failed fetch keeps the discovery-time copy in place: one unreachable
// object must never abort the run, and a degraded-but-present record still
// mirrors from last-known metadata.
func (c *objectCache) hydrate(source Source, concurrency int) {
	c.fetchAll(c.databaseIDs(), concurrency, func(id string) {
		db, err := source.GetDatabase(id)
		if err != nil {
			log.WithError(err).WithField("database", id).Debug(
				"Failed to hydrate database. Keeping the discovery-time record.")
			return
		}
		c.mu.Lock()
		c.databases[id] = db
		c.mu.Unlock()
	})

	c.fetchAll(c.pageIDs(), concurrency, func(id string) {
		page, err := source.GetPage(id)
		if err != nil {
			log.WithError(err).WithField("page", id).Debug(
				"Failed to hydrate page. Keeping the discovery-time record.")
			return
		}
		c.mu.Lock()
		c.pages[id] = page
		c.mu.Unlock()
	})
}

func (c *objectCache) fetchAll(ids []string, concurrency int, fetch func(id string)) {
	numWorkers := concurrency
	if len(ids) < numWorkers {
		numWorkers = len(ids)
	}
	if numWorkers == 0 {
		return
	}

	var waitGroup sync.WaitGroup
	idChan := make(chan string, numWorkers*2)
	for i := 0; i < numWorkers; i++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for id := range idChan {
				fetch(id)
			}
		}()
	}

	for _, id := range ids {
		idChan <- id
	}
	close(idChan)
	waitGroup.Wait()
}
