// Package ingest brings new URLs into the review catalog. Every submission
// runs the same gauntlet: URL parse, a live probe fetch, the redirect gate,
// then lazy domain creation and a page upsert. A submission that fails a
// gate comes back as a structured Rejection, not an error; errors are
// reserved for catalog and transport faults scout itself hit.
package ingest

import (
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/scrutinize/scout"
)

// Rejection reasons.
const (
	ReasonInvalidURL = "invalid_url"
	ReasonRedirect   = "redirect"
	ReasonFetchError = "fetch_error"
)

// Rejection explains why a submitted URL was not admitted to the catalog.
type Rejection struct {
	Reason       string `json:"reason"`
	URL          string `json:"url"`
	Status       int    `json:"status,omitempty"`
	EffectiveURL string `json:"effectiveUrl,omitempty"`
	Details      string `json:"details,omitempty"`
}

// Result reports what AddPage did with a URL. Exactly one of PageUUID and
// Rejection is set. New distinguishes a first-time insert from a score
// bump of an already-known page.
type Result struct {
	PageUUID  string
	New       bool
	Rejection *Rejection
}

// Ingester admits pages into the catalog. The Cache and Publisher are
// best-effort collaborators; only Store and Fetcher failures can fail an
// AddPage call.
type Ingester struct {
	Store     scout.Store
	Cache     scout.Cache
	Fetcher   scout.Fetcher
	Publisher scout.Publisher
}

// NewIngester creates an Ingester over the given collaborators.
func NewIngester(store scout.Store, cache scout.Cache, fetcher scout.Fetcher, publisher scout.Publisher) *Ingester {
	return &Ingester{Store: store, Cache: cache, Fetcher: fetcher, Publisher: publisher}
}

// AddPage runs the full ingestion of one URL with an initial score. The
// page's domain is created on first sight, along with its default limiter.
// Submitting a URL the catalog already knows adds score to the existing
// page instead of inserting.
func (in *Ingester) AddPage(url string, score float64) (*Result, error) {
	domainName, domainURL := scout.DomainFromURL(url)
	if domainName == "" {
		return rejected(&Rejection{Reason: ReasonInvalidURL, URL: url}), nil
	}

	res, err := in.Fetcher.Fetch(url)
	if err != nil {
		return rejected(&Rejection{
			Reason:  ReasonFetchError,
			URL:     url,
			Details: err.Error(),
		}), nil
	}
	if res.StatusCode > 399 {
		return rejected(&Rejection{
			Reason:  ReasonInvalidURL,
			URL:     url,
			Status:  res.StatusCode,
			Details: res.Body,
		}), nil
	}
	if res.EffectiveURL != "" && res.EffectiveURL != url {
		return rejected(&Rejection{
			Reason:       ReasonRedirect,
			URL:          url,
			EffectiveURL: res.EffectiveURL,
		}), nil
	}

	domain, err := in.findOrCreateDomain(domainName, domainURL)
	if err != nil {
		return nil, err
	}

	return in.upsertPage(domain, url, score)
}

// findOrCreateDomain resolves the page's domain, creating it (plus its
// default limiter and the new-domain event) the first time it is seen.
// Two ingesters racing on the same new domain both succeed: the loser of
// the insert re-reads the winner's row.
func (in *Ingester) findOrCreateDomain(name, url string) (*scout.Domain, error) {
	domain, err := in.Store.DomainByName(name)
	if err != nil {
		return nil, err
	}
	if domain != nil {
		return domain, nil
	}

	domain = &scout.Domain{
		Name:    name,
		URL:     url,
		URLHash: scout.URLHash(url),
	}
	err = in.Store.AddDomain(domain)
	if errors.Is(err, scout.ErrDuplicate) {
		return in.Store.DomainByName(name)
	}
	if err != nil {
		return nil, err
	}

	in.publishEvent("new-domain", "domainUrl", url)

	err = in.Store.UpsertLimiter(url, scout.Config.Dispatch.DefaultConcurrentConnections)
	if err != nil {
		logrus.Errorf("Failed to create default limiter for %v: %v", url, err)
	}

	return domain, nil
}

// upsertPage inserts the page or, when its url_hash is already present,
// adds score to the existing row. Only a genuine insert bumps the cache
// counters and publishes the new-page event.
func (in *Ingester) upsertPage(domain *scout.Domain, url string, score float64) (*Result, error) {
	hash := scout.URLHash(url)

	existing, err := in.Store.PageByURLHash(hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return in.bumpScore(existing, score)
	}

	page := &scout.Page{
		URL:      url,
		URLHash:  hash,
		DomainID: domain.ID,
		Score:    score,
	}
	err = in.Store.AddPage(page)
	if errors.Is(err, scout.ErrDuplicate) {
		// Lost the insert race; treat as a resubmission of the winner's page.
		logrus.Debugf("Duplicate insert of %v, falling back to a score bump", url)
		existing, err = in.Store.PageByURLHash(hash)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, errors.New("page vanished after duplicate-key insert")
		}
		return in.bumpScore(existing, score)
	}
	if err != nil {
		return nil, err
	}

	in.bumpCounters(domain.Name)
	in.publishEvent("new-page", "pageUrl", url)

	return &Result{PageUUID: page.UUID, New: true}, nil
}

func (in *Ingester) bumpScore(page *scout.Page, score float64) (*Result, error) {
	err := in.Store.AddPageScore(page.ID, score)
	if err != nil {
		return nil, err
	}
	return &Result{PageUUID: page.UUID}, nil
}

// bumpCounters advances the advisory cache counters after a new page.
// Failures only cost counter accuracy, so they are logged and dropped.
func (in *Ingester) bumpCounters(domainName string) {
	if err := in.Cache.IncrementPageCount(""); err != nil {
		logrus.Errorf("Failed to increment the global page counter: %v", err)
	}
	if err := in.Cache.IncrementPageCount(domainName); err != nil {
		logrus.Errorf("Failed to increment the page counter of %v: %v", domainName, err)
	}
	if err := in.Cache.IncrementNextJobsCount(); err != nil {
		logrus.Errorf("Failed to increment the next-jobs counter: %v", err)
	}
}

// publishEvent broadcasts a fire-and-forget event such as
// {"type":"new-page","pageUrl":"http://..."}.
func (in *Ingester) publishEvent(eventType, key, value string) {
	payload, err := json.Marshal(map[string]string{"type": eventType, key: value})
	if err != nil {
		logrus.Errorf("Failed to marshal %v event: %v", eventType, err)
		return
	}
	if err := in.Publisher.Publish(payload); err != nil {
		logrus.Errorf("Failed to publish %v event: %v", eventType, err)
	}
}

func rejected(r *Rejection) *Result {
	return &Result{Rejection: r}
}
