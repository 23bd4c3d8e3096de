package mysql

// key_points is TEXT, not JSON: corrupted or legacy rows must remain
// readable so the poison check can reject them instead of the driver.
const insertReviewSQL = `
INSERT INTO reviews
  (product_name, review_text, sentiment, confidence, key_points)
VALUES
  (?, ?, ?, ?, ?)
`

const selectColumns = `
  id,
  product_name,
  review_text,
  sentiment,
  confidence,
  key_points,
  created_at
`

// Duplicate texts can exist (re-analysis after a poisoned entry inserts a
// fresh row); the newest row wins.
const findByTextSQL = `
SELECT ` + selectColumns + `
FROM reviews
WHERE review_text = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`

const getByIDSQL = `
SELECT ` + selectColumns + `
FROM reviews
WHERE id = ?
`

const listAllSQL = `
SELECT ` + selectColumns + `
FROM reviews
ORDER BY created_at DESC, id DESC
`
