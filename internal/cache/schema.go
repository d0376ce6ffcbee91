package cache

// QueriesSchema defines the response cache table.
// expiry is an ISO date; NULL means the entry never expires.
const QueriesSchema = `
CREATE TABLE IF NOT EXISTS queries (
	query TEXT PRIMARY KEY NOT NULL,
	response TEXT NOT NULL,
	expiry TEXT
);

CREATE INDEX IF NOT EXISTS idx_queries_expiry ON queries(expiry);
`

// dateLayout is the storage format of the expiry column. ISO dates sort
// lexicographically, so expiry checks are plain string comparisons.
const dateLayout = "2006-01-02"
