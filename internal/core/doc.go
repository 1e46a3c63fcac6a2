// Package core provides the internal implementation of procpool: the
// Definition builder and its frozen Recipe snapshot, content fingerprints,
// the Instance contract consumed from process implementations, and the Pool
// that memoizes instances by fingerprint and stops the ones that fall out of
// the eviction container's protection.
package core
