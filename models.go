package scout

import "time"

// Domain is a registered site whose pages compete for review attention.
// Only active domains supply dispatch candidates.
type Domain struct {
	ID       int64
	Name     string
	URL      string
	URLHash  string
	IsActive bool
}

// Page is a single reviewable URL. It belongs to exactly one Domain and
// accumulates a score that biases dispatch toward it.
type Page struct {
	ID              int64
	UUID            string
	URL             string
	URLHash         string
	DomainID        int64
	Score           float64
	LastReviewDate  *time.Time
	LastReviewUUID  string
	ViolationsCount int
	CreatedDate     time.Time
}

// Worker is a review process registered with the catalog. CurrentURL names
// the page it is presently reviewing, or "" when idle. The limiter counts
// in-flight work per domain from these rows.
type Worker struct {
	ID         int64
	UUID       string
	CurrentURL string
	LastPing   time.Time
}

// Limiter caps the concurrent outbound connections permitted against the
// URL prefix it names. A missing row means unlimited.
type Limiter struct {
	ID    int64
	URL   string
	Value int
}

// Settings is the single global settings row. LambdaScore is a pending
// score boost consumed by the dispatcher when no page's score reaches it.
type Settings struct {
	LambdaScore float64
}

// Job is the answer handed to an idle worker: which page to review next,
// plus the cache lock token proving the worker owns that page's review
// slot until the lock expires.
type Job struct {
	PageUUID string  `json:"page"`
	URL      string  `json:"url"`
	Score    float64 `json:"score"`
	Lock     string  `json:"lock"`
}

// JobListEntry is one row of the non-dispatching bulk job view.
type JobListEntry struct {
	PageUUID       string     `json:"uuid"`
	URL            string     `json:"url"`
	Score          float64    `json:"score"`
	LastReviewDate *time.Time `json:"lastReviewDate"`
}
