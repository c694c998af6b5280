package msbt

import (
	"github.com/hashicorp/go-hclog"

	"github.com/robert-malhotra/go-msbt/internal/tag"
	"github.com/robert-malhotra/go-msbt/msbp"
)

// TextOptions controls how control codes are rendered in message text.
type TextOptions = tag.Options

// ColorMode selects how System.Color tags are rendered.
type ColorMode = tag.ColorMode

// Color modes.
const (
	ByRGBA    = tag.ByRGBA
	ByColorID = tag.ByColorID
)

// Option configures parsing and creation of message files.
type Option func(*options)

type options struct {
	project *msbp.Project
	text    TextOptions
	logger  hclog.Logger
}

func defaultOptions() *options {
	return &options{logger: hclog.NewNullLogger()}
}

// WithProject decodes tags and attributes against p. Without a project tags
// are rendered positionally and attribute blocks are kept raw.
func WithProject(p *msbp.Project) Option {
	return func(o *options) {
		o.project = p
	}
}

// WithTextOptions sets the tag rendering options.
func WithTextOptions(t TextOptions) Option {
	return func(o *options) {
		o.text = t
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
