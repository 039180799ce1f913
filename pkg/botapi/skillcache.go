package botapi

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/truffle/expertise-miner/pkg/storage"
	"github.com/truffle/expertise-miner/pkg/taxonomy"
)

// skillCacheTTL is how long a loaded skill list is trusted before the next
// query triggers a refresh.
const skillCacheTTL = 60 * time.Minute

const skillCacheGroupKey = "skills"

// SkillLister is the subset of pkg/storage's Store the skill cache depends on.
type SkillLister interface {
	ListSkills(ctx context.Context) ([]storage.SkillSummary, error)
}

// skillCache holds a matcher compiled from the current skill taxonomy, as
// read from storage, refreshed on a TTL with concurrent refreshes
// collapsed by a single-flight lock so a burst of questions triggers one
// storage read, not one per question.
type skillCache struct {
	store SkillLister
	group singleflight.Group

	mu       sync.RWMutex
	matcher  *taxonomy.Matcher
	skills   []storage.SkillSummary
	loadedAt time.Time
}

func newSkillCache(store SkillLister) *skillCache {
	return &skillCache{store: store}
}

// matcherAndSkills returns the cached matcher and skill list, refreshing
// from storage first if the cache is empty or older than skillCacheTTL.
func (c *skillCache) matcherAndSkills(ctx context.Context) (*taxonomy.Matcher, []storage.SkillSummary, error) {
	c.mu.RLock()
	fresh := c.matcher != nil && time.Since(c.loadedAt) < skillCacheTTL
	matcher, skills := c.matcher, c.skills
	c.mu.RUnlock()

	if fresh {
		return matcher, skills, nil
	}

	v, err, _ := c.group.Do(skillCacheGroupKey, func() (any, error) {
		c.mu.RLock()
		stillFresh := c.matcher != nil && time.Since(c.loadedAt) < skillCacheTTL
		m, s := c.matcher, c.skills
		c.mu.RUnlock()
		if stillFresh {
			return cacheEntry{m, s}, nil
		}

		summaries, err := c.store.ListSkills(ctx)
		if err != nil {
			return nil, err
		}

		skillList := make([]taxonomy.Skill, 0, len(summaries))
		for _, sum := range summaries {
			skillList = append(skillList, taxonomy.Skill{
				Key:     sum.Key,
				Name:    sum.Name,
				Domain:  sum.Domain,
				Aliases: sum.Aliases,
			})
		}
		tax := taxonomy.New(skillList)

		c.mu.Lock()
		c.matcher = tax.Matcher
		c.skills = summaries
		c.loadedAt = time.Now()
		c.mu.Unlock()

		return cacheEntry{tax.Matcher, summaries}, nil
	})
	if err != nil {
		// Fall back to whatever is cached, even if stale, rather than
		// failing the request outright.
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.matcher != nil {
			return c.matcher, c.skills, nil
		}
		return nil, nil, err
	}

	entry := v.(cacheEntry)
	return entry.matcher, entry.skills, nil
}

type cacheEntry struct {
	matcher *taxonomy.Matcher
	skills  []storage.SkillSummary
}
