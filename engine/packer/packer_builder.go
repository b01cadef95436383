package packer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-glb/engine/profiler"
)

// PackerBuilderOption is a functional option for configuring a Packer via NewPacker.
type PackerBuilderOption func(*packer)

// WithLogger is an option builder that sets the logger used for pack and unpack events.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - PackerBuilderOption: a function that applies the logger option to a packer
func WithLogger(logger *slog.Logger) PackerBuilderOption {
	return func(p *packer) {
		if logger != nil {
			p.logger = logger
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
//   - PackerBuilderOption: a function that applies the slack option to a packer
func WithSizeSlack(slack int) PackerBuilderOption {
	return func(p *packer) {
		if slack >= 0 {
			p.slack = slack
		}
	}
}

// WithIndent is an option builder that sets whether unpacked .gltf files are indented.
//
// Parameters:
//   - indent: true to indent the JSON output
//
// Returns:
//   - PackerBuilderOption: a function that applies the indent option to a packer
func WithIndent(indent bool) PackerBuilderOption {
	return func(p *packer) {
		p.indent = indent
	}
}

// WithCompression is an option builder that sets whether Pack zstd-compresses its output.
//
// Parameters:
//   - compress: true to write a zstd-compressed container
//
// Returns:
//   - PackerBuilderOption: a function that applies the compression option to a packer
func WithCompression(compress bool) PackerBuilderOption {
	return func(p *packer) {
		p.compress = compress
	}
}

// WithProfiler is an option builder that sets the profiler timing each stage.
//
// Parameters:
//   - prof: the profiler, or nil to disable stage timing
//
// Returns:
//   - PackerBuilderOption: a function that applies the profiler option to a packer
func WithProfiler(prof *profiler.Profiler) PackerBuilderOption {
	return func(p *packer) {
		p.profiler = prof
	}
}
