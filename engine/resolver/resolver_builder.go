package resolver

import "log/slog"

// ResolverBuilderOption is a functional option for configuring a file Resolver via NewFileResolver.
type ResolverBuilderOption func(*fileResolver)

// WithLogger is an option builder that sets the logger used for resolution events.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - ResolverBuilderOption: a function that applies the logger option to a resolver
func WithLogger(logger *slog.Logger) ResolverBuilderOption {
	return func(r *fileResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithInternalChunk is an option builder that seeds the resolver with an already-read
// BIN chunk so the asset file is not opened a second time.
//
// Parameters:
//   - bin: the BIN chunk payload
//
// Returns:
//   - ResolverBuilderOption: a function that applies the chunk option to a resolver
func WithInternalChunk(bin []byte) ResolverBuilderOption {
	return func(r *fileResolver) {
		r.internal = bin
	}
}
