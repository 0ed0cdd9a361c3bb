// Package dispatch answers the one question every idle worker asks: which
// page should I review next?
//
// A Dispatcher builds a candidate set from the top-scored pages of every
// active domain, interleaves the domains round-robin so no single domain
// can monopolize the head of the queue, and walks the interleaved order
// running limiter admission and distributed lock acquisition until a
// candidate passes both. The cache's atomic create-if-absent lock is the
// serialization point between concurrent dispatchers: at most one worker
// receives any given URL per lock TTL.
package dispatch

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/scrutinize/scout"
)

// Dispatcher produces review jobs. It holds no state between calls; all
// coordination happens through the Store and Cache.
type Dispatcher struct {
	Store scout.Store
	Cache scout.Cache
}

// NewDispatcher creates a Dispatcher over the given store and cache.
func NewDispatcher(store scout.Store, cache scout.Cache) *Dispatcher {
	return &Dispatcher{Store: store, Cache: cache}
}

// NextJob returns the next page a worker should review, or nil if no
// candidate passed admission and locking. lockTTL bounds how long the
// returned lock is held if the worker never reports back.
// avgLinksPerPage <= 0 falls back to the configured default.
func (d *Dispatcher) NextJob(lockTTL time.Duration, avgLinksPerPage int) (*scout.Job, error) {
	if avgLinksPerPage <= 0 {
		avgLinksPerPage = scout.Config.Dispatch.AvgLinksPerPage
	}

	settings, err := d.Store.Settings()
	if err != nil {
		return nil, err
	}

	workers, err := d.Store.Workers()
	if err != nil {
		return nil, err
	}
	if len(workers) == 0 {
		return nil, nil
	}

	candidates, err := d.assembleCandidates(len(workers))
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// A pending lambda boost is consumed when even the best candidate
	// scores below it: the fleet has no work worth doing, so the boost is
	// spread uniformly to pull every page back into range.
	if settings.LambdaScore > 0 && candidates[0].Score < settings.LambdaScore {
		err = d.updatePagesScoreBy(settings.LambdaScore)
		if err != nil {
			return nil, err
		}
	}

	limiters, err := d.Store.Limiters()
	if err != nil {
		return nil, err
	}

	for _, page := range candidates {
		if !HasLimitToWork(limiters, workers, page.URL, avgLinksPerPage) {
			continue
		}

		lock, err := d.Cache.TryLock(page.URL, lockTTL)
		if err != nil {
			// Fail closed: an unreachable cache means nobody gets the URL.
			logrus.Errorf("Failed to acquire review lock for %v: %v", page.URL, err)
			continue
		}
		if lock == "" {
			continue
		}

		return &scout.Job{
			PageUUID: page.UUID,
			URL:      page.URL,
			Score:    page.Score,
			Lock:     lock,
		}, nil
	}

	return nil, nil
}

// assembleCandidates reads the top-perDomain pages of every active domain
// and interleaves them round-robin: position 0 of each domain in domain
// order, then position 1, dropping a domain once exhausted.
func (d *Dispatcher) assembleCandidates(perDomain int) ([]*scout.Page, error) {
	domains, err := d.Store.ActiveDomains()
	if err != nil {
		return nil, err
	}

	pagesPerDomain := make([][]*scout.Page, len(domains))
	var eg errgroup.Group
	for i, domain := range domains {
		i, domain := i, domain
		eg.Go(func() error {
			pages, err := d.Store.TopPagesForDomain(domain.ID, perDomain)
			pagesPerDomain[i] = pages
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var candidates []*scout.Page
	for pos := 0; ; pos++ {
		took := false
		for _, pages := range pagesPerDomain {
			if pos < len(pages) {
				candidates = append(candidates, pages[pos])
				took = true
			}
		}
		if !took {
			break
		}
	}
	return candidates, nil
}

// updatePagesScoreBy consumes the pending lambda boost and redistributes
// it uniformly over all pages. The compare-and-swap on the settings row
// makes sure only one dispatcher in the fleet applies it.
func (d *Dispatcher) updatePagesScoreBy(lambda float64) error {
	consumed, err := d.Store.ConsumeLambdaScore(lambda)
	if err != nil {
		return err
	}
	if !consumed {
		logrus.Debugf("Lambda boost of %v already consumed by another dispatcher", lambda)
		return nil
	}

	count, err := d.Store.PageCount()
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	individual := lambda / float64(count)
	logrus.Infof("Applying lambda boost: %v spread over %v pages (%v each)",
		lambda, count, individual)
	return d.Store.AddToAllPageScores(individual)
}

// NextJobList is the non-dispatching bulk view: all active domains' pages
// by global score descending, paginated. No locking, no limiter check.
func (d *Dispatcher) NextJobList(currentPage, pageSize int) ([]*scout.JobListEntry, error) {
	if pageSize <= 0 {
		pageSize = scout.Config.Dispatch.NextJobListPageSize
	}
	return d.Store.NextJobList(currentPage, pageSize)
}

// NextJobsCount counts the pages of all active domains.
func (d *Dispatcher) NextJobsCount() (int, error) {
	return d.Store.NextJobsCount()
}
