package core

import (
	"path/filepath"
	"slices"
)

// Recipe is the frozen snapshot of a Definition. It has no setters; every
// accessor returns a copy, so a Recipe cannot change after it is built.
type Recipe struct {
	group            string
	path             string
	typ              InstanceType
	extensions       []Extension // sorted by Name
	options          Options
	workingDirectory string
	arguments        []Argument
	key              string
}

// Key returns the fingerprint computed when the recipe was built.
func (r *Recipe) Key() string { return r.key }

// Group returns the definition group.
func (r *Recipe) Group() string { return r.group }

// Path returns the executable path.
func (r *Recipe) Path() string { return r.path }

// Type returns the instance type.
//
//nolint:ireturn // InstanceType is an open set of constructors.
func (r *Recipe) Type() InstanceType { return r.typ }

// Extensions returns the extensions in name order.
func (r *Recipe) Extensions() []Extension { return slices.Clone(r.extensions) }

// Options returns the options.
func (r *Recipe) Options() Options { return r.options }

// WorkingDirectory returns the explicit working directory, or "" when the
// pool should derive one.
func (r *Recipe) WorkingDirectory() string { return r.workingDirectory }

// Arguments returns a copy of the arguments.
func (r *Recipe) Arguments() []Argument { return slices.Clone(r.arguments) }

// Name returns the instance name: group, executable base name and key.
func (r *Recipe) Name() string {
	return r.group + "-" + filepath.Base(r.path) + "-" + r.key
}
