// Package search provides ranked full-text search over notifications.
//
// Index rebuilds an inverted token index from scratch. Text is NFKD
// normalized with combining marks removed, lower-cased and split on anything
// that is not a letter or digit; tokens shorter than two runes are dropped,
// so "Café-Repair" indexes as "cafe" and "repair".
//
// Search intersects the postings of every query token and adds fuzzy matches
// within an edit distance of 20% of the token length (at least 1, for tokens
// of three or more runes). Candidates are scored per field (title, body,
// type, category) and boosted for exact titles, body containment, recency
// and priority. Results for identical queries are served from an LRU cache
// until the next Index call.
//
// Every non-empty query is recorded in a bounded history and a popularity
// counter that feed Suggest.
package search
