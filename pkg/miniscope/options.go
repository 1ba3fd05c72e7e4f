package miniscope

import (
	"github.com/go-logr/logr"
)

type config struct {
	collapseEmptyScopes bool
	log                 logr.Logger
}

type Option func(c *config) error

// WithCollapseEmptyScopes removes universal scopes left without
// variables by splitting, merging the existential scope below them
// into the one above.
func WithCollapseEmptyScopes(collapse bool) Option {
	return func(c *config) error {
		c.collapseEmptyScopes = collapse
		return nil
	}
}

func WithLogger(log logr.Logger) Option {
	return func(c *config) error {
		c.log = log
		return nil
	}
}

var defaults = []Option{
	func(c *config) error {
		if c.log.GetSink() == nil {
			c.log = logr.Discard()
		}
		return nil
	},
}
