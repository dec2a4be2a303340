package markov

import (
	"io"
	"log/slog"
)

// buildOptions holds the settings shared by Build, FromMatrix, FromPairs and Restore.
type buildOptions struct {
	strategy Strategy
	logger   *slog.Logger
}

// BuildOption configures how a chain is assembled.
type BuildOption func(*buildOptions)

// WithStrategy selects the row sampling strategy. Default: StrategyAlias.
func WithStrategy(s Strategy) BuildOption {
	return func(o *buildOptions) { o.strategy = s }
}

// WithLogger sets the logger used by the chain. By default all logs are discarded.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newBuildOptions(opts []BuildOption) *buildOptions {
	o := &buildOptions{
		strategy: StrategyAlias,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
