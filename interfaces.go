package scout

import "time"

// Store defines the catalog contract the dispatch core consumes. The
// production implementation lives in the mysql package.
//
// Implementations must apply the subtransaction-retry discipline to every
// write: a transient fault (deadlock, lock-wait timeout) is retried up to
// the configured retry count before being surfaced wrapped in
// ErrCatalogUnavailable. Non-transient faults abort immediately.
type Store interface {
	// ActiveDomains returns every domain with is_active = true, ordered by
	// id ascending.
	ActiveDomains() ([]*Domain, error)

	// DomainByName looks a domain up by any of its name variants (see
	// DomainNameVariants). Returns nil when no row matches.
	DomainByName(name string) (*Domain, error)

	// AddDomain inserts a new domain and fills in its generated id. A
	// unique-key collision on name returns ErrDuplicate.
	AddDomain(d *Domain) error

	// TopPagesForDomain returns up to limit pages of the domain ordered by
	// score descending, ties broken by id ascending.
	TopPagesForDomain(domainID int64, limit int) ([]*Page, error)

	// PageByURLHash returns at most one page, nil when absent.
	PageByURLHash(hash string) (*Page, error)

	// AddPage inserts a new page, filling in its generated id and uuid.
	// A unique-key collision on url_hash returns ErrDuplicate.
	AddPage(p *Page) error

	// AddPageScore atomically applies score += delta to one page row.
	AddPageScore(pageID int64, delta float64) error

	// AddToAllPageScores applies score += delta to every page row as a
	// single statement.
	AddToAllPageScores(delta float64) error

	// PageCount returns the total number of page rows.
	PageCount() (int, error)

	// PageCountForDomain returns the number of pages of one domain.
	PageCountForDomain(domainID int64) (int, error)

	// NextJobsCount counts the pages belonging to active domains.
	NextJobsCount() (int, error)

	// NextJobList returns pages of active domains ordered by score
	// descending, paginated. currentPage is 1-based.
	NextJobList(currentPage, pageSize int) ([]*JobListEntry, error)

	// Workers lists the registered review processes.
	Workers() ([]*Worker, error)

	// RegisterWorker upserts a worker row by uuid and stamps its ping time.
	RegisterWorker(uuid string) error

	// SetWorkerCurrentURL records which URL a worker is busy on; pass ""
	// when the worker goes idle.
	SetWorkerCurrentURL(uuid, url string) error

	// Limiters returns every limiter policy row.
	Limiters() ([]*Limiter, error)

	// UpsertLimiter creates or updates the limiter for a domain URL.
	UpsertLimiter(url string, value int) error

	// Settings loads the single settings row, creating it at zero if absent.
	Settings() (*Settings, error)

	// ConsumeLambdaScore compares-and-swaps settings.lambda_score from
	// expected down to 0. It reports false when another dispatcher already
	// consumed the boost.
	ConsumeLambdaScore(expected float64) (bool, error)
}

// Cache defines the distributed cache contract: URL review locks and
// advisory counters. The production implementation lives in the cache
// package, backed by Redis.
type Cache interface {
	// TryLock attempts an atomic create-if-absent lock on a URL with the
	// given TTL. It returns a non-empty opaque token on success and "" when
	// another worker owns the URL. Errors are reported but callers must
	// treat them as lock-not-acquired.
	TryLock(url string, ttl time.Duration) (string, error)

	// ReleaseLock deletes the URL's lock if token still owns it.
	ReleaseLock(url, token string) error

	// IncrementPageCount adds one to the global page counter, or to a
	// domain's counter when domain is non-empty.
	IncrementPageCount(domain string) error

	// IncrementNextJobsCount adds one to the dispatchable-page counter.
	IncrementNextJobsCount() error

	// PageCount reads the global ("") or per-domain page counter. Reads are
	// best-effort and may be stale.
	PageCount(domain string) (int64, error)
}

// FetchResponse is the normalized result of a probe fetch: the status and
// body of the final response, plus the URL it was actually served from
// after following redirects.
type FetchResponse struct {
	StatusCode   int
	Body         string
	EffectiveURL string
}

// Fetcher issues the ingestion probe request for a URL. Transport failures
// are returned as errors; HTTP-level failures come back in the response.
type Fetcher interface {
	Fetch(url string) (*FetchResponse, error)
}

// Publisher broadcasts fire-and-forget event payloads (new-domain,
// new-page). Delivery is not required for correctness.
type Publisher interface {
	Publish(message []byte) error
}
