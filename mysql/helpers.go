package mysql

import (
	"fmt"
	"sync"

	"github.com/scrutinize/scout"
)

// initdb ensures we only try to create the mysql schema once
var initdb sync.Once

// GetTestStore ensures that the scout schema is loaded and all data is
// purged for testing purposes. It returns a Store or panics if anything
// failed. For safety's sake it may ONLY be used if the configured database
// is `scout_test` and will panic if it isn't.
func GetTestStore() *Store {
	if scout.Config.MySQL.Database != "scout_test" {
		panic(fmt.Sprintf("Running tests requires using the scout_test database (not %v)",
			scout.Config.MySQL.Database))
	}

	initdb.Do(func() {
		err := CreateSchema()
		if err != nil {
			panic(err.Error())
		}
	})

	store, err := NewStore()
	if err != nil {
		panic(fmt.Sprintf("Could not connect to local mysql db: %v", err))
	}

	tables := []string{"pages", "workers", "limiters", "domains"}
	for _, table := range tables {
		if table == "pages" || table == "domains" {
			// Foreign keys rule out TRUNCATE here.
			_, err = store.db.Exec(fmt.Sprintf(`DELETE FROM %v`, table))
		} else {
			_, err = store.db.Exec(fmt.Sprintf(`TRUNCATE %v`, table))
		}
		if err != nil {
			panic(fmt.Sprintf("Failed to clear table %v: %v", table, err))
		}
	}
	_, err = store.db.Exec(`UPDATE settings SET lambda_score = 0 WHERE id = 1`)
	if err != nil {
		panic(fmt.Sprintf("Failed to reset settings: %v", err))
	}

	return store
}
