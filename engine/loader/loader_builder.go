package loader

import (
	"log/slog"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-glb/engine/config"
	"github.com/Carmen-Shannon/oxy-glb/engine/profiler"
	"github.com/Carmen-Shannon/oxy-glb/engine/resolver"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger is an option builder that sets the logger used by the Loader and its packer.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithSizeSlack is an option builder that sets how many bytes a resolved buffer may
// exceed its declared byteLength by.
//
// Parameters:
//   - slack: the tolerated excess, 3 by default
//
// Returns:
//   - LoaderBuilderOption: a function that applies the slack option to a loader
func WithSizeSlack(slack int) LoaderBuilderOption {
	return func(l *loader) {
		if slack >= 0 {
			l.slack = slack
		}
	}
}

// WithIndent is an option builder that sets whether written .gltf files are indented.
//
// Parameters:
//   - indent: true to indent the JSON output
//
// Returns:
//   - LoaderBuilderOption: a function that applies the indent option to a loader
func WithIndent(indent bool) LoaderBuilderOption {
	return func(l *loader) {
		l.indent = indent
	}
}

// WithCompression is an option builder that sets whether packed output is zstd-compressed.
//
// Parameters:
//   - compress: true to compress packed GLB files
//
// Returns:
//   - LoaderBuilderOption: a function that applies the compression option to a loader
func WithCompression(compress bool) LoaderBuilderOption {
	return func(l *loader) {
		l.compress = compress
	}
}

// WithProfiler is an option builder that sets the profiler timing pack and unpack stages.
//
// Parameters:
//   - prof: the profiler
//
// Returns:
//   - LoaderBuilderOption: a function that applies the profiler option to a loader
func WithProfiler(prof *profiler.Profiler) LoaderBuilderOption {
	return func(l *loader) {
		l.profiler = prof
	}
}

// WithConfig is an option builder that applies the codec and output settings of cfg.
// Options given after it override individual values.
//
// Parameters:
//   - cfg: the loaded configuration
//
// Returns:
//   - LoaderBuilderOption: a function that applies the configuration to a loader
func WithConfig(cfg *config.Config) LoaderBuilderOption {
	return func(l *loader) {
		if cfg == nil {
			return
		}
		l.slack = cfg.Codec.SizeSlack
		l.indent = cfg.Codec.IndentJSON
		l.compress = cfg.Output.Compress
	}
}

// WithResolver is an option builder that registers a resolver for an asset path, so
// buffer and image reads for that path go through r instead of the filesystem.
//
// Parameters:
//   - sourcePath: the asset path the resolver serves
//   - r: the resolver
//
// Returns:
//   - LoaderBuilderOption: a function that applies the resolver option to a loader
func WithResolver(sourcePath string, r resolver.Resolver) LoaderBuilderOption {
	return func(l *loader) {
		l.resolvers[filepath.Clean(sourcePath)] = r
	}
}
