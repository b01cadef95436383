package packer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/asset"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
	"github.com/Carmen-Shannon/oxy-glb/engine/profiler"
	"github.com/Carmen-Shannon/oxy-glb/engine/resolver"
	"github.com/Carmen-Shannon/oxy-glb/engine/validation"
)

// packer is the implementation of the Packer interface.
type packer struct {
	logger   *slog.Logger
	profiler *profiler.Profiler

	slack    int
	indent   bool
	compress bool
}

// Packer converts glTF assets between the loose multi-file form and a single
// self-contained GLB container. Every call works on one caller-owned Document,
// rewrites it in place, and runs synchronously.
type Packer interface {
	// SaveBinaryModel writes doc as a GLB container with bin as its BIN chunk.
	// bin must be nil unless exactly one buffer (buffers[0]) has no URI.
	//
	// Parameters:
	//   - doc: the document to write
	//   - bin: the BIN chunk payload, or nil
	//   - w: the destination writer
	//
	// Returns:
	//   - int64: the number of bytes written
	//   - error: error if the buffer rules are violated or the write fails
	SaveBinaryModel(doc *document.Document, bin []byte, w io.Writer) (int64, error)

	// SaveBinaryModelPacked copies every bufferView slice and every image into one
	// binary blob, rewrites doc to reference it as buffers[0], and writes the container.
	//
	// Parameters:
	//   - doc: the document to pack; rewritten in place
	//   - w: the destination writer
	//   - r: the resolver for the document's external and GLB-internal data
	//   - binOverride: bytes used for buffers[0] instead of resolving it, or nil
	//
	// Returns:
	//   - *PackReport: a summary of the packed output
	//   - error: error if a resource cannot be resolved or the write fails
	SaveBinaryModelPacked(doc *document.Document, w io.Writer, r resolver.Resolver, binOverride []byte) (*PackReport, error)

	// Pack loads the asset at inputPath and writes it as a self-contained GLB.
	//
	// Parameters:
	//   - inputPath: the .gltf (or .glb) asset to pack
	//   - outputPath: the GLB file to create
	//
	// Returns:
	//   - *PackReport: a summary of the packed output
	//   - error: error if the input is missing or packing fails
	Pack(inputPath, outputPath string) (*PackReport, error)

	// Unpack extracts the GLB at inputPath into a .gltf file plus side files
	// (.bin and images) in outputDir.
	//
	// Parameters:
	//   - inputPath: the GLB file to unpack
	//   - outputDir: an existing directory receiving the extracted files
	//
	// Returns:
	//   - *UnpackReport: the files written and the compaction summary
	//   - error: error if the input or output directory is missing or extraction fails
	Unpack(inputPath, outputDir string) (*UnpackReport, error)
}

var _ Packer = &packer{}

// NewPacker creates a new Packer with the given options applied.
//
// Parameters:
//   - options: a variadic list of PackerBuilderOption functions
//
// Returns:
//   - Packer: the configured packer
func NewPacker(options ...PackerBuilderOption) Packer {
	p := &packer{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		slack:  validation.DefaultSizeSlack,
		indent: true,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *packer) SaveBinaryModel(doc *document.Document, bin []byte, w io.Writer) (int64, error) {
	return asset.WriteBinary(w, doc, bin, p.slack)
}

func (p *packer) SaveBinaryModelPacked(doc *document.Document, w io.Writer, r resolver.Resolver, binOverride []byte) (*PackReport, error) {
	if doc == nil {
		return nil, fmt.Errorf("cannot pack a nil document")
	}

	endResolve := p.profiler.Stage("pack.resolve")
	views, blob, images, err := p.assemble(doc, r, binOverride)
	endResolve()
	if err != nil {
		return nil, err
	}

	report := &PackReport{Images: images}
	var bin []byte
	if len(views) > 0 {
		doc.BufferViews = views
		doc.Buffers = []document.Buffer{{ByteLength: len(blob)}}
		bin = blob

		if err := validation.CheckPacked(doc); err != nil {
			return nil, err
		}

		report.BufferViews = len(views)
		report.BinBytes = len(blob)
		report.Digest = digest.FromBytes(blob)
	} else if len(doc.Buffers) > 0 && doc.Buffers[0].URI == "" {
		// Nothing to repack, but an unreferenced GLB-stored buffer still needs its bytes.
		bin = binOverride
		if bin == nil {
			if bin, err = resolver.ResolveBuffer(doc, 0, r, p.slack); err != nil {
				return nil, err
			}
		}
	}

	endWrite := p.profiler.Stage("pack.write")
	defer endWrite()

	n, err := p.SaveBinaryModel(doc, bin, w)
	if err != nil {
		return nil, err
	}
	report.Written = n

	return report, nil
}

// assemble copies every bufferView slice and every URI-referenced image into one
// blob, aligning each start to 4 bytes. Images are rewritten in place to point at
// their new synthetic bufferView; the returned views replace doc.BufferViews.
func (p *packer) assemble(doc *document.Document, r resolver.Resolver, binOverride []byte) ([]document.BufferView, []byte, int, error) {
	var blob []byte
	bufferData := make(map[int][]byte)
	views := make([]document.BufferView, 0, len(doc.BufferViews)+len(doc.Images))

	for i, bv := range doc.BufferViews {
		data, ok := bufferData[bv.Buffer]
		if !ok {
			// A GLB-stored buffer must be buffers[0], so the override only ever replaces it.
			if bv.Buffer == 0 && binOverride != nil {
				data = binOverride
			} else {
				var err error
				data, err = resolver.ResolveBuffer(doc, bv.Buffer, r, p.slack)
				if err != nil {
					return nil, nil, 0, fmt.Errorf("bufferView %d: %w", i, err)
				}
			}
			bufferData[bv.Buffer] = data
		}

		if err := validation.CheckSlice(bv.ByteOffset, bv.ByteLength, len(data)); err != nil {
			return nil, nil, 0, fmt.Errorf("bufferView %d: %w", i, err)
		}

		blob = common.PadTo4(blob, 0)
		offset := len(blob)
		blob = append(blob, data[bv.ByteOffset:bv.End()]...)

		p.logger.Debug("packed bufferView", "index", i, "buffer", bv.Buffer, "from", bv.ByteOffset, "to", offset, "bytes", bv.ByteLength)

		bv.Buffer = 0
		bv.ByteOffset = offset
		views = append(views, bv)
	}

	images := 0
	for i := range doc.Images {
		img := &doc.Images[i]
		// Already stored in a bufferView: its view was copied above at the same index.
		if img.BufferView != nil {
			continue
		}

		data, err := resolver.ImageBytes(doc, i, r, p.slack)
		if err != nil {
			return nil, nil, 0, err
		}
		mimeType, err := resolver.MimeType(img.URI)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("image %d: %w", i, err)
		}

		blob = common.PadTo4(blob, 0)
		offset := len(blob)
		blob = append(blob, data...)

		viewIndex := len(views)
		views = append(views, document.BufferView{
			Buffer:     0,
			ByteOffset: offset,
			ByteLength: len(data),
		})

		p.logger.Debug("packed image", "index", i, "mime", mimeType, "bufferView", viewIndex, "bytes", len(data))

		img.BufferView = &viewIndex
		img.MimeType = mimeType
		img.URI = ""
		images++
	}

	return views, blob, images, nil
}

func (p *packer) Pack(inputPath, outputPath string) (*PackReport, error) {
	if _, err := os.Stat(inputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: glTF file %s does not exist", common.ErrMissingResource, inputPath)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", inputPath, err)
	}

	endLoad := p.profiler.Stage("pack.load")
	doc, bin, err := asset.Load(inputPath)
	endLoad()
	if err != nil {
		return nil, err
	}

	r := resolver.NewFileResolver(inputPath,
		resolver.WithLogger(p.logger),
		resolver.WithInternalChunk(bin),
	)

	out, err := asset.Create(outputPath, p.compress)
	if err != nil {
		return nil, err
	}

	report, err := p.SaveBinaryModelPacked(doc, out, r, nil)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", outputPath, closeErr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", inputPath, err)
	}

	p.logger.Info("packed asset",
		"input", inputPath,
		"output", outputPath,
		"bufferViews", report.BufferViews,
		"images", report.Images,
		"bytes", report.Written,
		"digest", report.Digest,
	)
	return report, nil
}
