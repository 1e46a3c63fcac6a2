// Package statsdb persists pool statistics across test runs in a SQLite
// file, so that repeated evictions can be compared between runs and the
// kept window tuned accordingly.
package statsdb
