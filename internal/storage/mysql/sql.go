package mysql

const insertPlaceSQL = `
INSERT INTO places
  (run_id, url_hash, url, name, address, rating, review_count)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name         = VALUES(name),
  address      = VALUES(address),
  rating       = VALUES(rating),
  review_count = VALUES(review_count),
  scraped_at   = CURRENT_TIMESTAMP
`

// Note: `text` is reserved; keep it quoted everywhere.
const insertReviewsPrefix = "INSERT INTO reviews\n  (run_id, url_hash, position, content_hash, author, rating, `text`, date_label)\nVALUES "

// A re-run of the same (run, place) keeps the first position of each review.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  rating     = VALUES(rating),\n" +
	"  date_label = VALUES(date_label)\n"

const insertMissSQL = `
INSERT INTO ingest_misses (run_id, url_hash, url, reason)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Latest run that archived reviews for a place.
const latestRunSQL = `
SELECT run_id
FROM reviews
WHERE url_hash = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`

const listRunReviewsSQL = "SELECT author, rating, `text`, date_label\n" +
	"FROM reviews\n" +
	"WHERE run_id = ? AND url_hash = ?\n" +
	"ORDER BY position\n" +
	"LIMIT ?"
