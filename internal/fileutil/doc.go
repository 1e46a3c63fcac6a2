// Package fileutil provides the small filesystem helpers procpool needs:
// creating instance working directories and the stats database parent
// directory, reading directory trees for content hashing, and resolving
// relative paths against an explicit base directory instead of the process
// working directory.
package fileutil
