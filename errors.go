package scout

import "errors"

// ErrDuplicate is returned by Store.AddPage when the unique url_hash index
// rejects an insert. Ingestion treats it as a lost race against another
// process inserting the same page and falls back to the update path.
var ErrDuplicate = errors.New("duplicate entry")

// ErrCatalogUnavailable wraps store faults that survived the write retry
// discipline. Callers of the dispatcher see it; the console maps it to 500.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// ErrCacheUnavailable marks cache faults. Lock acquisition treats it as
// "not acquired"; counter writes log and ignore it.
var ErrCacheUnavailable = errors.New("cache unavailable")
