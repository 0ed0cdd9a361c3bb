package dispatch

import (
	"strings"

	"github.com/scrutinize/scout"
)

// allowedReviews converts a limiter value (max concurrent outbound
// connections) into max concurrent page reviews, given that each review
// fans out to roughly avgLinksPerPage subrequests. Every domain is always
// allowed at least one review.
func allowedReviews(value, avgLinksPerPage int) int {
	if avgLinksPerPage < 1 {
		avgLinksPerPage = 1
	}
	allowed := (value + avgLinksPerPage - 1) / avgLinksPerPage
	if allowed < 1 {
		allowed = 1
	}
	return allowed
}

// HasLimitToWork decides whether a worker may take the candidate URL under
// the domain's concurrent-work budget. Every limiter whose URL prefixes
// the candidate is checked against the number of workers currently busy
// under that same prefix; a candidate with no matching limiter is
// unlimited.
func HasLimitToWork(limiters []*scout.Limiter, workers []*scout.Worker, url string, avgLinksPerPage int) bool {
	for _, lim := range limiters {
		if !strings.HasPrefix(url, lim.URL) {
			continue
		}

		busy := 0
		for _, w := range workers {
			if w.CurrentURL != "" && strings.HasPrefix(w.CurrentURL, lim.URL) {
				busy++
			}
		}

		if busy >= allowedReviews(lim.Value, avgLinksPerPage) {
			return false
		}
	}
	return true
}
