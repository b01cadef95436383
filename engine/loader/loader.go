package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/asset"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
	"github.com/Carmen-Shannon/oxy-glb/engine/packer"
	"github.com/Carmen-Shannon/oxy-glb/engine/profiler"
	"github.com/Carmen-Shannon/oxy-glb/engine/resolver"
	"github.com/Carmen-Shannon/oxy-glb/engine/validation"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger   *slog.Logger
	profiler *profiler.Profiler

	slack    int
	indent   bool
	compress bool

	// resolvers holds the resolvers registered with WithResolver. Paths without
	// one get a fresh file resolver per call, so every read sees the file as it
	// is on disk at that moment.
	resolvers map[string]resolver.Resolver

	packer packer.Packer
}

// Loader is the entry point for reading, writing and repackaging glTF assets.
// Documents returned by the Loader are owned by the caller; no operation keeps a
// reference to a Document after it returns.
type Loader interface {
	// LoadModel decodes the asset at path. GLB, glTF JSON and zstd-compressed
	// variants of both are detected from the content.
	//
	// Parameters:
	//   - path: the .gltf or .glb file, optionally with a .zst suffix
	//
	// Returns:
	//   - *document.Document: the decoded document
	//   - error: error if the extension is unsupported or the asset is malformed
	LoadModel(path string) (*document.Document, error)

	// LoadModelReader decodes an asset from a stream without consuming it during
	// format detection.
	//
	// Parameters:
	//   - r: the stream positioned at the start of the asset
	//
	// Returns:
	//   - *document.Document: the decoded document
	//   - error: error if the asset is malformed
	LoadModelReader(r io.ReadSeeker) (*document.Document, error)

	// SaveModel writes doc as glTF JSON. A .zst suffix compresses the output.
	//
	// Parameters:
	//   - doc: the document to write
	//   - path: the destination file
	//
	// Returns:
	//   - error: error if serialization or the write fails
	SaveModel(doc *document.Document, path string) error

	// SaveModelWriter writes doc as glTF JSON to w.
	//
	// Parameters:
	//   - doc: the document to write
	//   - w: the destination writer
	//
	// Returns:
	//   - error: error if serialization or the write fails
	SaveModelWriter(doc *document.Document, w io.Writer) error

	// LoadBinaryBuffer returns the BIN chunk of the GLB file at path.
	//
	// Parameters:
	//   - path: the GLB file
	//
	// Returns:
	//   - []byte: the BIN chunk payload
	//   - error: error if the file is not a GLB container or has no BIN chunk
	LoadBinaryBuffer(path string) ([]byte, error)

	// LoadBinaryBufferReader returns the BIN chunk of a GLB stream.
	//
	// Parameters:
	//   - r: the stream positioned at the start of the container
	//
	// Returns:
	//   - []byte: the BIN chunk payload
	//   - error: error if the stream is not a GLB container or has no BIN chunk
	LoadBinaryBufferReader(r io.ReadSeeker) ([]byte, error)

	// LoadDocumentBuffer returns the bytes of doc.Buffers[index], resolving external
	// files relative to sourcePath and the BIN chunk from sourcePath itself.
	//
	// Parameters:
	//   - doc: the document owning the buffer
	//   - index: the buffer index
	//   - sourcePath: the asset doc was loaded from
	//
	// Returns:
	//   - []byte: the buffer bytes; callers must not modify them
	//   - error: error if the buffer cannot be resolved or its size is out of range
	LoadDocumentBuffer(doc *document.Document, index int, sourcePath string) ([]byte, error)

	// LoadDocumentBufferWith is LoadDocumentBuffer with a caller-supplied resolver.
	LoadDocumentBufferWith(doc *document.Document, index int, r resolver.Resolver) ([]byte, error)

	// LoadAccessorData returns the tightly packed elements of doc.Accessors[index].
	//
	// Parameters:
	//   - doc: the document owning the accessor
	//   - index: the accessor index
	//   - r: the resolver for the document's external and GLB-internal data
	//
	// Returns:
	//   - []byte: the element bytes
	//   - error: error if the accessor cannot be read
	LoadAccessorData(doc *document.Document, index int, r resolver.Resolver) ([]byte, error)

	// OpenImage returns a stream over the bytes of doc.Images[index], resolving
	// external files relative to sourcePath.
	//
	// Parameters:
	//   - doc: the document owning the image
	//   - index: the image index
	//   - sourcePath: the asset doc was loaded from
	//
	// Returns:
	//   - io.ReadSeeker: the image bytes
	//   - error: error if the image has no source or cannot be resolved
	OpenImage(doc *document.Document, index int, sourcePath string) (io.ReadSeeker, error)

	// OpenImageWith is OpenImage with a caller-supplied resolver.
	OpenImageWith(doc *document.Document, index int, r resolver.Resolver) (io.ReadSeeker, error)

	// SaveBinaryModel writes doc and bin as a GLB file.
	//
	// Parameters:
	//   - doc: the document to write
	//   - bin: the BIN chunk payload, or nil
	//   - path: the destination file
	//
	// Returns:
	//   - error: error if the buffer rules are violated or the write fails
	SaveBinaryModel(doc *document.Document, bin []byte, path string) error

	// SaveBinaryModelWriter writes doc and bin as a GLB container to w.
	//
	// Parameters:
	//   - doc: the document to write
	//   - bin: the BIN chunk payload, or nil
	//   - w: the destination writer
	//
	// Returns:
	//   - int64: the number of bytes written
	//   - error: error if the buffer rules are violated or the write fails
	SaveBinaryModelWriter(doc *document.Document, bin []byte, w io.Writer) (int64, error)

	// SaveBinaryModelPacked packs doc into a self-contained GLB at outputPath.
	//
	// Parameters:
	//   - doc: the document to pack; rewritten in place
	//   - outputPath: the GLB file to create
	//   - sourcePath: the asset doc was loaded from, used to resolve its data
	//   - binOverride: bytes used for buffers[0] instead of resolving it, or nil
	//
	// Returns:
	//   - *packer.PackReport: a summary of the packed output
	//   - error: error if a resource cannot be resolved or the write fails
	SaveBinaryModelPacked(doc *document.Document, outputPath, sourcePath string, binOverride []byte) (*packer.PackReport, error)

	// Pack converts a loose asset into a self-contained GLB.
	Pack(inputPath, outputPath string) (*packer.PackReport, error)

	// Unpack converts a GLB into a .gltf plus side files in outputDir.
	Unpack(inputPath, outputDir string) (*packer.UnpackReport, error)

	// PackContext is Pack that refuses to start once ctx is done.
	PackContext(ctx context.Context, inputPath, outputPath string) (*packer.PackReport, error)

	// UnpackContext is Unpack that refuses to start once ctx is done.
	UnpackContext(ctx context.Context, inputPath, outputDir string) (*packer.UnpackReport, error)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the given options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided options
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:        sync.RWMutex{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		slack:     validation.DefaultSizeSlack,
		indent:    true,
		resolvers: make(map[string]resolver.Resolver),
	}

	for _, option := range options {
		option(l)
	}

	l.packer = packer.NewPacker(
		packer.WithLogger(l.logger),
		packer.WithProfiler(l.profiler),
		packer.WithSizeSlack(l.slack),
		packer.WithIndent(l.indent),
		packer.WithCompression(l.compress),
	)
	return l
}

func (l *loader) LoadModel(path string) (*document.Document, error) {
	if err := checkExtension(path); err != nil {
		return nil, err
	}

	doc, _, err := asset.Load(path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded model", "path", path, "buffers", len(doc.Buffers), "bufferViews", len(doc.BufferViews), "images", len(doc.Images))
	return doc, nil
}

func (l *loader) LoadModelReader(r io.ReadSeeker) (*document.Document, error) {
	doc, _, err := asset.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader: %w", err)
	}
	return doc, nil
}

func (l *loader) SaveModel(doc *document.Document, path string) error {
	out, err := asset.Create(path, strings.HasSuffix(path, asset.CompressedExt))
	if err != nil {
		return err
	}

	err = l.SaveModelWriter(doc, out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	if err != nil {
		return err
	}
	l.logger.Debug("saved model", "path", path)
	return nil
}

func (l *loader) SaveModelWriter(doc *document.Document, w io.Writer) error {
	return asset.WriteText(w, doc, l.indent)
}

func (l *loader) LoadBinaryBuffer(path string) ([]byte, error) {
	return asset.LoadBinaryChunk(path)
}

func (l *loader) LoadBinaryBufferReader(r io.ReadSeeker) ([]byte, error) {
	return asset.ReadBinaryChunk(r)
}

func (l *loader) LoadDocumentBuffer(doc *document.Document, index int, sourcePath string) ([]byte, error) {
	return l.LoadDocumentBufferWith(doc, index, l.resolverFor(sourcePath))
}

func (l *loader) LoadDocumentBufferWith(doc *document.Document, index int, r resolver.Resolver) ([]byte, error) {
	return resolver.ResolveBuffer(doc, index, r, l.slack)
}

func (l *loader) LoadAccessorData(doc *document.Document, index int, r resolver.Resolver) ([]byte, error) {
	return resolver.AccessorData(doc, index, r, l.slack)
}

func (l *loader) OpenImage(doc *document.Document, index int, sourcePath string) (io.ReadSeeker, error) {
	return l.OpenImageWith(doc, index, l.resolverFor(sourcePath))
}

func (l *loader) OpenImageWith(doc *document.Document, index int, r resolver.Resolver) (io.ReadSeeker, error) {
	img, err := resolver.OpenImage(doc, index, r, l.slack)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (l *loader) SaveBinaryModel(doc *document.Document, bin []byte, path string) error {
	out, err := asset.Create(path, strings.HasSuffix(path, asset.CompressedExt))
	if err != nil {
		return err
	}

	n, err := l.SaveBinaryModelWriter(doc, bin, out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	if err != nil {
		return err
	}
	l.logger.Debug("saved binary model", "path", path, "bytes", n)
	return nil
}

func (l *loader) SaveBinaryModelWriter(doc *document.Document, bin []byte, w io.Writer) (int64, error) {
	return l.packer.SaveBinaryModel(doc, bin, w)
}

func (l *loader) SaveBinaryModelPacked(doc *document.Document, outputPath, sourcePath string, binOverride []byte) (*packer.PackReport, error) {
	out, err := asset.Create(outputPath, l.compress)
	if err != nil {
		return nil, err
	}

	report, err := l.packer.SaveBinaryModelPacked(doc, out, l.resolverFor(sourcePath), binOverride)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", outputPath, closeErr)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (l *loader) Pack(inputPath, outputPath string) (*packer.PackReport, error) {
	return l.packer.Pack(inputPath, outputPath)
}

func (l *loader) Unpack(inputPath, outputDir string) (*packer.UnpackReport, error) {
	return l.packer.Unpack(inputPath, outputDir)
}

func (l *loader) PackContext(ctx context.Context, inputPath, outputPath string) (*packer.PackReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pack %s not started: %w", inputPath, err)
	}
	return l.Pack(inputPath, outputPath)
}

func (l *loader) UnpackContext(ctx context.Context, inputPath, outputDir string) (*packer.UnpackReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("unpack %s not started: %w", inputPath, err)
	}
	return l.Unpack(inputPath, outputDir)
}

// resolverFor returns the resolver registered for sourcePath, or a new file
// resolver whose cache lives only as long as the calling operation.
func (l *loader) resolverFor(sourcePath string) resolver.Resolver {
	key := filepath.Clean(sourcePath)

	l.mu.RLock()
	registered, ok := l.resolvers[key]
	l.mu.RUnlock()
	if ok {
		return registered
	}
	return resolver.NewFileResolver(key, resolver.WithLogger(l.logger))
}

// checkExtension rejects paths that are not .gltf or .glb, ignoring a trailing
// compression suffix.
func checkExtension(path string) error {
	name := strings.TrimSuffix(strings.ToLower(path), asset.CompressedExt)
	switch ext := filepath.Ext(name); ext {
	case ".gltf", ".glb":
		return nil
	default:
		return fmt.Errorf("%w: unsupported model format: %s", common.ErrFormat, ext)
	}
}
