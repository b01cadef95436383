package resolver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/asset"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
)

// Resolver supplies the bytes behind buffer and image references that are not
// embedded in the document itself.
type Resolver interface {
	// ResolveNamed returns the contents of an external resource.
	//
	// Parameters:
	//   - uri: the relative URI as written in the document
	//
	// Returns:
	//   - []byte: the resource bytes; callers must not modify them
	//   - error: ErrMissingResource if the resource does not exist
	ResolveNamed(uri string) ([]byte, error)

	// ResolveInternal returns the BIN chunk of the GLB container the document came from.
	//
	// Returns:
	//   - []byte: the BIN chunk payload; callers must not modify it
	//   - error: error if the asset has no BIN chunk or is not a GLB container
	ResolveInternal() ([]byte, error)
}

// fileResolver is the implementation of Resolver backed by the filesystem.
type fileResolver struct {
	mu sync.RWMutex

	assetPath string
	baseDir   string

	logger *slog.Logger

	namedCache map[string][]byte
	internal   []byte
}

var _ Resolver = &fileResolver{}

// NewFileResolver creates a Resolver for the asset stored at assetPath. Named URIs are
// resolved relative to the asset's directory and the internal buffer is read from the
// asset's BIN chunk. Resolved bytes are cached for the lifetime of the resolver.
//
// Parameters:
//   - assetPath: the path of the .gltf or .glb file the document was loaded from
//   - options: a variadic list of ResolverBuilderOption functions
//
// Returns:
//   - Resolver: the file-backed resolver
func NewFileResolver(assetPath string, options ...ResolverBuilderOption) Resolver {
	r := &fileResolver{
		assetPath:  assetPath,
		baseDir:    filepath.Dir(assetPath),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		namedCache: make(map[string][]byte),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *fileResolver) ResolveNamed(uri string) ([]byte, error) {
	if document.IsDataURI(uri) {
		return nil, fmt.Errorf("%w: unsupported data URI encoding", common.ErrFormat)
	}

	r.mu.RLock()
	if cached, ok := r.namedCache[uri]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	fullPath := r.path(uri)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrMissingResource, fullPath)
		}
		return nil, fmt.Errorf("failed to load %q: %w", uri, err)
	}
	r.logger.Debug("resolved external resource", "uri", uri, "path", fullPath, "bytes", len(data))

	r.mu.Lock()
	r.namedCache[uri] = data
	r.mu.Unlock()

	return data, nil
}

func (r *fileResolver) ResolveInternal() ([]byte, error) {
	r.mu.RLock()
	internal := r.internal
	r.mu.RUnlock()
	if internal != nil {
		return internal, nil
	}

	f, err := os.Open(r.assetPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrMissingResource, r.assetPath)
		}
		return nil, fmt.Errorf("failed to open %s: %w", r.assetPath, err)
	}
	defer f.Close()

	data, err := asset.ReadBinaryChunk(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read BIN chunk of %s: %w", r.assetPath, err)
	}
	r.logger.Debug("resolved GLB binary chunk", "path", r.assetPath, "bytes", len(data))

	r.mu.Lock()
	r.internal = data
	r.mu.Unlock()

	return data, nil
}

// path returns the filesystem path a relative URI points at.
func (r *fileResolver) path(uri string) string {
	return LocalPath(r.baseDir, uri)
}

// LocalPath joins a relative glTF URI onto a directory. Percent-encoded characters
// are decoded first.
//
// Parameters:
//   - baseDir: the directory of the asset that holds the reference
//   - uri: the relative URI
//
// Returns:
//   - string: the filesystem path
func LocalPath(baseDir, uri string) string {
	return filepath.Join(baseDir, filepath.FromSlash(DecodeURI(uri)))
}

// DecodeURI percent-decodes a relative glTF URI.
//
// Parameters:
//   - uri: the URI as written in the document
//
// Returns:
//   - string: the decoded path, or uri unchanged if it is not valid percent-encoding
func DecodeURI(uri string) string {
	if decoded, err := url.PathUnescape(uri); err == nil {
		return decoded
	}
	return uri
}

// memoryResolver is a Resolver over in-memory resources, used when a document is
// decoded from a stream rather than a file.
type memoryResolver struct {
	files map[string][]byte
	bin   []byte
}

var _ Resolver = &memoryResolver{}

// NewMemoryResolver creates a Resolver over in-memory resources.
//
// Parameters:
//   - files: external resources keyed by URI
//   - bin: the GLB BIN chunk, or nil if there is none
//
// Returns:
//   - Resolver: the in-memory resolver
func NewMemoryResolver(files map[string][]byte, bin []byte) Resolver {
	return &memoryResolver{files: files, bin: bin}
}

func (r *memoryResolver) ResolveNamed(uri string) ([]byte, error) {
	data, ok := r.files[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingResource, uri)
	}
	return data, nil
}

func (r *memoryResolver) ResolveInternal() ([]byte, error) {
	if r.bin == nil {
		return nil, fmt.Errorf("%w: no GLB binary chunk", common.ErrMissingResource)
	}
	return r.bin, nil
}
