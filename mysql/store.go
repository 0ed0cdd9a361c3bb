package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/scrutinize/scout"
)

// Store is the primary scout catalog implementation, using MySQL as the
// durable backend. It owns every persistent row: domains, pages, workers,
// limiters and settings.
//
// NewStore should be used to create one.
type Store struct {
	db *sql.DB

	// Max write attempts for transient faults (deadlock / lock-wait).
	numQueryRetries int
}

// NewStore opens a MySQL connection pool and initializes a Store.
func NewStore() (*Store, error) {
	db, err := sql.Open("mysql", GetDSN())
	if err != nil {
		return nil, fmt.Errorf("Failed to create mysql store: %v", err)
	}
	db.SetMaxOpenConns(scout.Config.MySQL.MaxOpenConns)

	retries := scout.Config.MySQL.NumQueryRetries
	if retries < 1 {
		retries = 1
	}

	return &Store{db: db, numQueryRetries: retries}, nil
}

// GetDSN builds the driver DSN from the global mysql config.
func GetDSN() string {
	timeout, err := time.ParseDuration(scout.Config.MySQL.Timeout)
	if err != nil {
		panic(err) // This won't happen b/c this duration is checked in Config
	}

	cf := mysql.NewConfig()
	cf.User = scout.Config.MySQL.User
	cf.Passwd = scout.Config.MySQL.Password
	cf.Net = "tcp"
	cf.Addr = fmt.Sprintf("%s:%d", scout.Config.MySQL.Host, scout.Config.MySQL.Port)
	cf.DBName = scout.Config.MySQL.Database
	cf.Timeout = timeout
	cf.ParseTime = true
	return cf.FormatDSN()
}

func (s *Store) Close() {
	s.db.Close()
}

// isTransient reports whether err is a fault worth retrying: a deadlock
// (1213) or a lock-wait timeout (1205). This is the typed replacement for
// matching "Deadlock found" / "Lock wait" in error text.
func isTransient(err error) bool {
	var merr *mysql.MySQLError
	if !errors.As(err, &merr) {
		return false
	}
	return merr.Number == 1213 || merr.Number == 1205
}

// isDuplicate reports whether err is a unique-key collision (1062).
func isDuplicate(err error) bool {
	var merr *mysql.MySQLError
	if !errors.As(err, &merr) {
		return false
	}
	return merr.Number == 1062
}

/// retryWrite runs op under the write retry discipline: transient faults are
// retried up to numQueryRetries attempts, anything else surfaces
// immediately. Exhausting the retries reports the catalog unavailable.
func (s *Store) retryWrite(tag string, op func() error) error {
	var err error
	for i := 0; i < s.numQueryRetries; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		logrus.Errorf("%s hit a transient fault, trying again (try number %d): %v", tag, i, err)
	}
	return fmt.Errorf("%s: %w: %v", tag, scout.ErrCatalogUnavailable, err)
}

//
// Implementation of the scout.Store interface
//

func (s *Store) ActiveDomains() ([]*scout.Domain, error) {
	rows, err := s.db.Query(
		`SELECT id, name, url, url_hash, is_active
		 FROM domains
		 WHERE is_active = true
		 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []*scout.Domain
	for rows.Next() {
		d := &scout.Domain{}
		err := rows.Scan(&d.ID, &d.Name, &d.URL, &d.URLHash, &d.IsActive)
		if err != nil {
			return domains, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func (s *Store) DomainByName(name string) (*scout.Domain, error) {
	variants := scout.DomainNameVariants(name)
	placeholders := strings.TrimRight(strings.Repeat("?,", len(variants)), ",")
	args := make([]interface{}, len(variants))
	for i, v := range variants {
		args[i] = v
	}

	d := &scout.Domain{}
	err := s.db.QueryRow(
		fmt.Sprintf(`SELECT id, name, url, url_hash, is_active
					 FROM domains
					 WHERE name IN (%s)
					 ORDER BY id ASC LIMIT 1`, placeholders), args...).
		Scan(&d.ID, &d.Name, &d.URL, &d.URLHash, &d.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) AddDomain(d *scout.Domain) error {
	return s.retryWrite("AddDomain", func() error {
		res, err := s.db.Exec(
			`INSERT INTO domains (name, url, url_hash, is_active)
			 VALUES (?, ?, ?, true)`,
			d.Name, d.URL, d.URLHash)
		if isDuplicate(err) {
			return scout.ErrDuplicate
		}
		if err != nil {
			return err
		}
		d.ID, err = res.LastInsertId()
		d.IsActive = true
		return err
	})
}

func (s *Store) TopPagesForDomain(domainID int64, limit int) ([]*scout.Page, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT id, uuid, url, url_hash, domain_id, score,
				last_review_date, last_review_uuid, violations_count, created_date
		 FROM pages
		 WHERE domain_id = ?
		 ORDER BY score DESC, id ASC
		 LIMIT ?`, domainID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPages(rows)
}

func (s *Store) PageByURLHash(hash string) (*scout.Page, error) {
	rows, err := s.db.Query(
		`SELECT id, uuid, url, url_hash, domain_id, score,
				last_review_date, last_review_uuid, violations_count, created_date
		 FROM pages
		 WHERE url_hash = ?`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages, err := collectPages(rows)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return pages[0], nil
}

func (s *Store) AddPage(p *scout.Page) error {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	if p.CreatedDate.IsZero() {
		p.CreatedDate = time.Now().UTC()
	}

	return s.retryWrite("AddPage", func() error {
		res, err := s.db.Exec(
			`INSERT INTO pages (uuid, url, url_hash, domain_id, score, created_date)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			p.UUID, p.URL, p.URLHash, p.DomainID, p.Score, p.CreatedDate)
		if isDuplicate(err) {
			return scout.ErrDuplicate
		}
		if err != nil {
			return err
		}
		p.ID, err = res.LastInsertId()
		return err
	})
}

func (s *Store) AddPageScore(pageID int64, delta float64) error {
	return s.retryWrite("AddPageScore", func() error {
		_, err := s.db.Exec(
			`UPDATE pages SET score = score + ? WHERE id = ?`, delta, pageID)
		return err
	})
}

func (s *Store) AddToAllPageScores(delta float64) error {
	return s.retryWrite("AddToAllPageScores", func() error {
		_, err := s.db.Exec(`UPDATE pages SET score = score + ?`, delta)
		return err
	})
}

func (s *Store) PageCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pages`).Scan(&count)
	return count, err
}

func (s *Store) PageCountForDomain(domainID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pages WHERE domain_id = ?`, domainID).Scan(&count)
	return count, err
}

func (s *Store) NextJobsCount() (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*)
		 FROM pages p
		 JOIN domains d ON d.id = p.domain_id
		 WHERE d.is_active = true`).Scan(&count)
	return count, err
}

func (s *Store) NextJobList(currentPage, pageSize int) ([]*scout.JobListEntry, error) {
	if currentPage < 1 {
		currentPage = 1
	}
	offset := (currentPage - 1) * pageSize

	rows, err := s.db.Query(
		`SELECT p.uuid, p.url, p.score, p.last_review_date
		 FROM pages p
		 JOIN domains d ON d.id = p.domain_id
		 WHERE d.is_active = true
		 ORDER BY p.score DESC, p.id ASC
		 LIMIT ? OFFSET ?`, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*scout.JobListEntry
	for rows.Next() {
		e := &scout.JobListEntry{}
		err := rows.Scan(&e.PageUUID, &e.URL, &e.Score, &e.LastReviewDate)
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Workers() ([]*scout.Worker, error) {
	rows, err := s.db.Query(
		`SELECT id, uuid, COALESCE(current_url, ''), last_ping
		 FROM workers
		 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []*scout.Worker
	for rows.Next() {
		w := &scout.Worker{}
		err := rows.Scan(&w.ID, &w.UUID, &w.CurrentURL, &w.LastPing)
		if err != nil {
			return workers, err
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

func (s *Store) RegisterWorker(workerUUID string) error {
	return s.retryWrite("RegisterWorker", func() error {
		_, err := s.db.Exec(
			`INSERT INTO workers (uuid, last_ping) VALUES (?, UTC_TIMESTAMP())
			 ON DUPLICATE KEY UPDATE last_ping = UTC_TIMESTAMP()`, workerUUID)
		return err
	})
}

func (s *Store) SetWorkerCurrentURL(workerUUID, url string) error {
	return s.retryWrite("SetWorkerCurrentURL", func() error {
		_, err := s.db.Exec(
			`UPDATE workers SET current_url = NULLIF(?, '') WHERE uuid = ?`,
			url, workerUUID)
		return err
	})
}

func (s *Store) Limiters() ([]*scout.Limiter, error) {
	rows, err := s.db.Query(
		`SELECT id, url, value FROM limiters ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var limiters []*scout.Limiter
	for rows.Next() {
		l := &scout.Limiter{}
		err := rows.Scan(&l.ID, &l.URL, &l.Value)
		if err != nil {
			return limiters, err
		}
		limiters = append(limiters, l)
	}
	return limiters, rows.Err()
}

func (s *Store) UpsertLimiter(url string, value int) error {
	return s.retryWrite("UpsertLimiter", func() error {
		_, err := s.db.Exec(
			`INSERT INTO limiters (url, value) VALUES (?, ?)
			 ON DUPLICATE KEY UPDATE value = ?`, url, value, value)
		return err
	})
}

func (s *Store) Settings() (*scout.Settings, error) {
	settings := &scout.Settings{}
	err := s.db.QueryRow(
		`SELECT lambda_score FROM settings WHERE id = 1`).Scan(&settings.LambdaScore)
	if err == sql.ErrNoRows {
		_, err = s.db.Exec(
			`INSERT IGNORE INTO settings (id, lambda_score) VALUES (1, 0)`)
		return settings, err
	}
	return settings, err
}

func (s *Store) ConsumeLambdaScore(expected float64) (bool, error) {
	var consumed bool
	err := s.retryWrite("ConsumeLambdaScore", func() error {
		res, err := s.db.Exec(
			`UPDATE settings SET lambda_score = 0
			 WHERE id = 1 AND lambda_score = ?`, expected)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		consumed = n > 0
		return err
	})
	return consumed, err
}

// SetLambdaScore stores a pending global score boost. Operators use it to
// pull a starved fleet's pages back into the interesting score range.
func (s *Store) SetLambdaScore(score float64) error {
	return s.retryWrite("SetLambdaScore", func() error {
		_, err := s.db.Exec(
			`INSERT INTO settings (id, lambda_score) VALUES (1, ?)
			 ON DUPLICATE KEY UPDATE lambda_score = ?`, score, score)
		return err
	})
}

// collectPages populates a []*Page list given a pages query result. The
// column order must match the SELECT lists above.
func collectPages(rows *sql.Rows) ([]*scout.Page, error) {
	var pages []*scout.Page
	for rows.Next() {
		p := &scout.Page{}
		var lastReviewUUID sql.NullString
		err := rows.Scan(&p.ID, &p.UUID, &p.URL, &p.URLHash, &p.DomainID, &p.Score,
			&p.LastReviewDate, &lastReviewUUID, &p.ViolationsCount, &p.CreatedDate)
		if err != nil {
			return pages, err
		}
		p.LastReviewUUID = lastReviewUUID.String
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
