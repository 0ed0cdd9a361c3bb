package mysql

import "strings"

const schema string = `-- The schema file for scout
--
-- Apply with something like:
--     $ scout schema -o schema.sql
--     $ mysql -u scout scout < schema.sql

-- domains registers every site whose pages compete for review attention.
-- Domains are created lazily the first time a page of theirs is ingested
-- and are never deleted by scout.
CREATE TABLE IF NOT EXISTS domains (
	id BIGINT NOT NULL AUTO_INCREMENT,

	-- host name, ex. "www.example.com"; unique so lazy creation can't race
	-- itself into duplicates
	name VARCHAR(255) NOT NULL,

	-- canonical domain url, ex. "http://www.example.com"
	url VARCHAR(2000) NOT NULL,

	-- sha-512 hex digest of url
	url_hash CHAR(128) NOT NULL,

	-- only active domains supply dispatch candidates
	is_active BOOL NOT NULL DEFAULT TRUE,

	PRIMARY KEY (id),
	UNIQUE KEY domains_name (name)
);

-- pages holds every reviewable url. A page belongs to exactly one domain
-- for its whole life.
CREATE TABLE IF NOT EXISTS pages (
	id BIGINT NOT NULL AUTO_INCREMENT,
	uuid CHAR(36) NOT NULL,
	url VARCHAR(2000) NOT NULL,

	-- sha-512 hex digest of url; the uniqueness key, so the same url
	-- ingested twice lands on the same row
	url_hash CHAR(128) NOT NULL,
	domain_id BIGINT NOT NULL,

	-- dispatch priority; ingestion adds to it, recalibration spreads a
	-- pending global boost over it
	score DOUBLE NOT NULL DEFAULT 0,
	last_review_date DATETIME NULL,
	last_review_uuid CHAR(36) NULL,
	violations_count INT NOT NULL DEFAULT 0,
	created_date DATETIME NOT NULL,

	PRIMARY KEY (id),
	UNIQUE KEY pages_url_hash (url_hash),

	-- serves the top-N-by-score read of the dispatcher
	KEY pages_domain_score (domain_id, score DESC, id ASC),
	CONSTRAINT pages_domain FOREIGN KEY (domain_id) REFERENCES domains (id)
);

-- workers lists the review processes in the fleet. current_url names the
-- page a worker is busy on; the limiter counts in-flight work per domain
-- from these rows.
CREATE TABLE IF NOT EXISTS workers (
	id BIGINT NOT NULL AUTO_INCREMENT,
	uuid CHAR(36) NOT NULL,
	current_url VARCHAR(2000) NULL,
	last_ping DATETIME NOT NULL,

	PRIMARY KEY (id),
	UNIQUE KEY workers_uuid (uuid)
);

-- limiters caps concurrent outbound connections per domain url. A missing
-- row means unlimited.
CREATE TABLE IF NOT EXISTS limiters (
	id BIGINT NOT NULL AUTO_INCREMENT,
	url VARCHAR(255) NOT NULL,
	value INT NOT NULL,

	PRIMARY KEY (id),
	UNIQUE KEY limiters_url (url)
);

-- settings is a single global row. lambda_score is a pending score boost
-- the dispatcher consumes exactly once when no page's score reaches it.
CREATE TABLE IF NOT EXISTS settings (
	id BIGINT NOT NULL,
	lambda_score DOUBLE NOT NULL DEFAULT 0,

	PRIMARY KEY (id)
);

INSERT IGNORE INTO settings (id, lambda_score) VALUES (1, 0);`

// GetSchema returns the scout MySQL schema.
func GetSchema() string {
	return schema
}

// CreateSchema applies the schema to the configured database, statement by
// statement.
func CreateSchema() error {
	store, err := NewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := store.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
