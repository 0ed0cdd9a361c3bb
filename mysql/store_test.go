//go:build mysql

// Run these tests against a local MySQL server with:
//     go test -tags mysql ./mysql/
// They require a `scout_test` database the configured user can write to.

package mysql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrutinize/scout"
)

func init() {
	scout.LoadTestConfig("test-scout.yaml")
}

func TestDomainRoundTrip(t *testing.T) {
	store := GetTestStore()

	domain := &scout.Domain{
		Name:    "example.com",
		URL:     "http://example.com",
		URLHash: scout.URLHash("http://example.com"),
	}
	assert.NoError(t, store.AddDomain(domain))
	assert.NotZero(t, domain.ID)
	assert.True(t, domain.IsActive)

	for _, name := range []string{"example.com", "example.com/"} {
		found, err := store.DomainByName(name)
		assert.NoError(t, err)
		if assert.NotNil(t, found, "lookup by %v", name) {
			assert.Equal(t, domain.ID, found.ID)
			assert.Equal(t, "example.com", found.Name)
		}
	}

	missing, err := store.DomainByName("unknown.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	err = store.AddDomain(&scout.Domain{
		Name:    "example.com",
		URL:     "http://example.com",
		URLHash: scout.URLHash("http://example.com"),
	})
	assert.True(t, errors.Is(err, scout.ErrDuplicate))
}

func TestPageRoundTrip(t *testing.T) {
	store := GetTestStore()

	domain := &scout.Domain{Name: "example.com", URL: "http://example.com"}
	assert.NoError(t, store.AddDomain(domain))

	page := &scout.Page{
		URL:      "http://example.com/a",
		URLHash:  scout.URLHash("http://example.com/a"),
		DomainID: domain.ID,
		Score:    2,
	}
	assert.NoError(t, store.AddPage(page))
	assert.NotZero(t, page.ID)
	assert.NotEmpty(t, page.UUID)

	found, err := store.PageByURLHash(page.URLHash)
	assert.NoError(t, err)
	if assert.NotNil(t, found) {
		assert.Equal(t, page.UUID, found.UUID)
		assert.Equal(t, float64(2), found.Score)
		assert.Nil(t, found.LastReviewDate)
	}

	err = store.AddPage(&scout.Page{
		URL:      "http://example.com/a",
		URLHash:  page.URLHash,
		DomainID: domain.ID,
	})
	assert.True(t, errors.Is(err, scout.ErrDuplicate))

	assert.NoError(t, store.AddPageScore(page.ID, 3))
	found, err = store.PageByURLHash(page.URLHash)
	assert.NoError(t, err)
	assert.Equal(t, float64(5), found.Score)
}

func TestTopPagesForDomainOrdering(t *testing.T) {
	store := GetTestStore()

	domain := &scout.Domain{Name: "example.com", URL: "http://example.com"}
	assert.NoError(t, store.AddDomain(domain))

	urls := map[string]float64{
		"http://example.com/low":  1,
		"http://example.com/high": 9,
		"http://example.com/mid":  5,
		"http://example.com/tie":  9,
	}
	for url, score := range urls {
		assert.NoError(t, store.AddPage(&scout.Page{
			URL:      url,
			URLHash:  scout.URLHash(url),
			DomainID: domain.ID,
			Score:    score,
		}))
	}

	pages, err := store.TopPagesForDomain(domain.ID, 3)
	assert.NoError(t, err)
	if assert.Len(t, pages, 3) {
		assert.Equal(t, float64(9), pages[0].Score)
		assert.Equal(t, float64(9), pages[1].Score)

		// Ties break by insertion order
		assert.True(t, pages[0].ID < pages[1].ID)
		assert.Equal(t, "http://example.com/mid", pages[2].URL)
	}

	none, err := store.TopPagesForDomain(domain.ID, 0)
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestPageCounts(t *testing.T) {
	store := GetTestStore()

	a := &scout.Domain{Name: "a.com", URL: "http://a.com"}
	b := &scout.Domain{Name: "b.com", URL: "http://b.com"}
	assert.NoError(t, store.AddDomain(a))
	assert.NoError(t, store.AddDomain(b))

	pages := map[string]int64{
		"http://a.com/1": a.ID,
		"http://a.com/2": a.ID,
		"http://b.com/1": b.ID,
	}
	for url, domainID := range pages {
		assert.NoError(t, store.AddPage(&scout.Page{
			URL:      url,
			URLHash:  scout.URLHash(url),
			DomainID: domainID,
		}))
	}

	count, err := store.PageCount()
	assert.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = store.PageCountForDomain(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.PageCountForDomain(b.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddToAllPageScores(t *testing.T) {
	store := GetTestStore()

	domain := &scout.Domain{Name: "example.com", URL: "http://example.com"}
	assert.NoError(t, store.AddDomain(domain))
	for _, url := range []string{"http://example.com/1", "http://example.com/2"} {
		assert.NoError(t, store.AddPage(&scout.Page{
			URL:      url,
			URLHash:  scout.URLHash(url),
			DomainID: domain.ID,
			Score:    1,
		}))
	}

	assert.NoError(t, store.AddToAllPageScores(2.5))

	pages, err := store.TopPagesForDomain(domain.ID, 10)
	assert.NoError(t, err)
	for _, page := range pages {
		assert.Equal(t, 3.5, page.Score)
	}
}

func TestNextJobsCountAndListSkipInactiveDomains(t *testing.T) {
	store := GetTestStore()

	active := &scout.Domain{Name: "active.com", URL: "http://active.com"}
	dormant := &scout.Domain{Name: "dormant.com", URL: "http://dormant.com"}
	assert.NoError(t, store.AddDomain(active))
	assert.NoError(t, store.AddDomain(dormant))
	_, err := store.db.Exec(`UPDATE domains SET is_active = false WHERE id = ?`, dormant.ID)
	assert.NoError(t, err)

	pages := map[string]struct {
		domainID int64
		score    float64
	}{
		"http://active.com/1":  {active.ID, 5},
		"http://active.com/2":  {active.ID, 7},
		"http://dormant.com/1": {dormant.ID, 100},
	}
	for url, p := range pages {
		assert.NoError(t, store.AddPage(&scout.Page{
			URL:      url,
			URLHash:  scout.URLHash(url),
			DomainID: p.domainID,
			Score:    p.score,
		}))
	}

	domains, err := store.ActiveDomains()
	assert.NoError(t, err)
	if assert.Len(t, domains, 1) {
		assert.Equal(t, "active.com", domains[0].Name)
	}

	count, err := store.NextJobsCount()
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	entries, err := store.NextJobList(1, 10)
	assert.NoError(t, err)
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "http://active.com/2", entries[0].URL)
		assert.Equal(t, "http://active.com/1", entries[1].URL)
	}

	entries, err = store.NextJobList(2, 1)
	assert.NoError(t, err)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "http://active.com/1", entries[0].URL)
	}
}

func TestWorkerLifecycle(t *testing.T) {
	store := GetTestStore()

	assert.NoError(t, store.RegisterWorker("worker-1"))
	assert.NoError(t, store.RegisterWorker("worker-1"))
	assert.NoError(t, store.RegisterWorker("worker-2"))

	workers, err := store.Workers()
	assert.NoError(t, err)
	assert.Len(t, workers, 2)

	assert.NoError(t, store.SetWorkerCurrentURL("worker-1", "http://example.com/a"))
	workers, err = store.Workers()
	assert.NoError(t, err)
	assert.Equal(t, "http://example.com/a", workers[0].CurrentURL)
	assert.Equal(t, "", workers[1].CurrentURL)

	assert.NoError(t, store.SetWorkerCurrentURL("worker-1", ""))
	workers, err = store.Workers()
	assert.NoError(t, err)
	assert.Equal(t, "", workers[0].CurrentURL)
}

func TestLimiterUpsert(t *testing.T) {
	store := GetTestStore()

	assert.NoError(t, store.UpsertLimiter("http://example.com", 10))
	assert.NoError(t, store.UpsertLimiter("http://example.com", 25))
	assert.NoError(t, store.UpsertLimiter("http://other.com", 5))

	limiters, err := store.Limiters()
	assert.NoError(t, err)
	if assert.Len(t, limiters, 2) {
		assert.Equal(t, "http://example.com", limiters[0].URL)
		assert.Equal(t, 25, limiters[0].Value)
	}
}

func TestLambdaScoreLifecycle(t *testing.T) {
	store := GetTestStore()

	settings, err := store.Settings()
	assert.NoError(t, err)
	assert.Equal(t, float64(0), settings.LambdaScore)

	assert.NoError(t, store.SetLambdaScore(12.5))
	settings, err = store.Settings()
	assert.NoError(t, err)
	assert.Equal(t, 12.5, settings.LambdaScore)

	consumed, err := store.ConsumeLambdaScore(12.5)
	assert.NoError(t, err)
	assert.True(t, consumed)

	// Second consumer of the same boost loses the swap
	consumed, err = store.ConsumeLambdaScore(12.5)
	assert.NoError(t, err)
	assert.False(t, consumed)

	settings, err = store.Settings()
	assert.NoError(t, err)
	assert.Equal(t, float64(0), settings.LambdaScore)
}
