package packer

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/asset"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
	"github.com/Carmen-Shannon/oxy-glb/engine/resolver"
	"github.com/Carmen-Shannon/oxy-glb/engine/validation"
)

// emptyBufferURI stands in for a GLB-internal buffer that only zero-length views still reference.
const emptyBufferURI = document.BufferURIPrefixOctet

// unpacking carries the state of one Unpack call.
type unpacking struct {
	*packer

	doc    *document.Document
	r      resolver.Resolver
	name   string
	outDir string
	report *UnpackReport

	// internal is set when buffers[0] is stored in the container's BIN chunk.
	internal bool
	glbData  []byte
}

func (p *packer) Unpack(inputPath, outputDir string) (*UnpackReport, error) {
	if _, err := os.Stat(inputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: GLB file %s does not exist", common.ErrMissingResource, inputPath)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", inputPath, err)
	}
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: output directory %s does not exist", common.ErrMissingResource, outputDir)
	}

	endLoad := p.profiler.Stage("unpack.load")
	doc, bin, err := asset.Load(inputPath)
	endLoad()
	if err != nil {
		return nil, err
	}

	u := &unpacking{
		packer: p,
		doc:    doc,
		r: resolver.NewFileResolver(inputPath,
			resolver.WithLogger(p.logger),
			resolver.WithInternalChunk(bin),
		),
		name:   asset.BaseName(inputPath),
		outDir: outputDir,
		report: &UnpackReport{},
	}

	endExtract := p.profiler.Stage("unpack.extract")
	err = u.extract()
	endExtract()
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", inputPath, err)
	}

	endWrite := p.profiler.Stage("unpack.write")
	defer endWrite()

	gltfPath := filepath.Join(outputDir, u.name+".gltf")
	out, err := asset.Create(gltfPath, false)
	if err != nil {
		return nil, err
	}
	err = asset.WriteText(out, doc, p.indent)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", gltfPath, closeErr)
	}
	if err != nil {
		return nil, err
	}
	u.report.GLTF = gltfPath

	p.logger.Info("unpacked asset",
		"input", inputPath,
		"output", gltfPath,
		"files", len(u.report.Files),
		"images", u.report.Images,
		"binBytes", u.report.BinBytes,
		"remapped", u.report.Remapped,
	)
	return u.report, nil
}

// extract runs the unpack transform over u.doc, writing side files as it goes.
func (u *unpacking) extract() error {
	if len(u.doc.Buffers) > 0 && u.doc.Buffers[0].Mode() == document.ModeInternal {
		data, err := resolver.ResolveBuffer(u.doc, 0, u.r, u.slack)
		if err != nil {
			return fmt.Errorf("buffer 0: %w", err)
		}
		u.internal = true
		u.glbData = data
	}

	excluded, err := u.extractImages()
	if err != nil {
		return err
	}

	remap, bin, used, err := u.compactViews(excluded)
	if err != nil {
		return err
	}
	u.remapReferences(remap, excluded)

	if err := u.placeInternalBuffer(bin, used); err != nil {
		return err
	}
	return u.copySiblingBuffers()
}

// extractImages writes every image stored in buffers[0] to its own file and copies
// external image files next to the output. It returns the bufferView indices that
// backed extracted images.
func (u *unpacking) extractImages() (map[int]bool, error) {
	excluded := make(map[int]bool)

	for i := range u.doc.Images {
		img := &u.doc.Images[i]

		switch {
		case img.BufferView != nil:
			v := *img.BufferView
			if v < 0 || v >= len(u.doc.BufferViews) {
				return nil, fmt.Errorf("%w: image %d references bufferView %d of %d", common.ErrFormat, i, v, len(u.doc.BufferViews))
			}
			bv := u.doc.BufferViews[v]
			if !u.internal || bv.Buffer != 0 {
				continue
			}
			if err := validation.CheckSlice(bv.ByteOffset, bv.ByteLength, len(u.glbData)); err != nil {
				return nil, fmt.Errorf("image %d: %w", i, err)
			}

			file := fmt.Sprintf("%s_image%d.%s", u.name, i, resolver.Extension(img.MimeType))
			if err := u.writeFile(file, u.glbData[bv.ByteOffset:bv.End()]); err != nil {
				return nil, err
			}
			u.logger.Debug("extracted image", "index", i, "bufferView", v, "file", file, "bytes", bv.ByteLength)

			excluded[v] = true
			img.BufferView = nil
			img.MimeType = ""
			img.URI = url.PathEscape(file)
			u.report.Images++

		case img.URI != "" && !document.IsDataURI(img.URI):
			file := fmt.Sprintf("%s_image%d%s", u.name, i, filepath.Ext(resolver.DecodeURI(img.URI)))
			data, err := u.r.ResolveNamed(img.URI)
			switch {
			case errors.Is(err, common.ErrMissingResource):
				u.logger.Warn("image source not found, rewriting uri only", "index", i, "uri", img.URI)
			case err != nil:
				return nil, fmt.Errorf("image %d: %w", i, err)
			default:
				if err := u.writeFile(file, data); err != nil {
					return nil, err
				}
			}
			img.URI = url.PathEscape(file)
		}
	}

	return excluded, nil
}

// compactViews drops image-only bufferViews and copies every remaining buffers[0]
// slice into one 4-byte aligned blob. It returns the old to new bufferView index
// map, the blob, and whether any surviving view still references buffers[0].
func (u *unpacking) compactViews(excluded map[int]bool) (map[int]int, []byte, bool, error) {
	var bin []byte
	used := false
	remap := make(map[int]int, len(u.doc.BufferViews))
	views := make([]document.BufferView, 0, len(u.doc.BufferViews))

	for i, bv := range u.doc.BufferViews {
		if excluded[i] {
			continue
		}
		if u.internal && bv.Buffer == 0 {
			if err := validation.CheckSlice(bv.ByteOffset, bv.ByteLength, len(u.glbData)); err != nil {
				return nil, nil, false, fmt.Errorf("bufferView %d: %w", i, err)
			}
			used = true
			bin = common.PadTo4(bin, 0)
			offset := len(bin)
			bin = append(bin, u.glbData[bv.ByteOffset:bv.End()]...)
			bv.ByteOffset = offset
		}

		remap[i] = len(views)
		if i != len(views) {
			u.report.Remapped++
		}
		views = append(views, bv)
	}

	u.doc.BufferViews = views
	return remap, bin, used, nil
}

// remapReferences rewrites every accessor, sparse and image bufferView reference
// through remap.
func (u *unpacking) remapReferences(remap map[int]int, excluded map[int]bool) {
	lookup := func(owner string, index, v int) int {
		if excluded[v] {
			u.logger.Warn("reference to an extracted image bufferView", "owner", owner, "index", index, "bufferView", v)
			return v
		}
		if n, ok := remap[v]; ok {
			return n
		}
		return v
	}

	for i := range u.doc.Accessors {
		acc := &u.doc.Accessors[i]
		if acc.BufferView != nil {
			n := lookup("accessor", i, *acc.BufferView)
			acc.BufferView = &n
		}
		if acc.Sparse != nil {
			acc.Sparse.Indices.BufferView = lookup("accessor.sparse.indices", i, acc.Sparse.Indices.BufferView)
			acc.Sparse.Values.BufferView = lookup("accessor.sparse.values", i, acc.Sparse.Values.BufferView)
		}
	}

	for i := range u.doc.Images {
		img := &u.doc.Images[i]
		if img.BufferView != nil {
			n := lookup("image", i, *img.BufferView)
			img.BufferView = &n
		}
	}
}

// placeInternalBuffer writes the compacted blob as <name>.bin and points buffers[0]
// at it, or drops buffers[0] when nothing references it anymore.
func (u *unpacking) placeInternalBuffer(bin []byte, used bool) error {
	if !u.internal {
		return nil
	}

	switch {
	case len(bin) > 0:
		file := u.name + ".bin"
		if err := u.writeFile(file, bin); err != nil {
			return err
		}
		u.doc.Buffers[0].URI = url.PathEscape(file)
		u.doc.Buffers[0].ByteLength = len(bin)
		u.report.BinBytes = len(bin)
		u.report.Digest = digest.FromBytes(bin)

	case used:
		u.doc.Buffers[0].URI = emptyBufferURI
		u.doc.Buffers[0].ByteLength = 0

	default:
		u.doc.Buffers = u.doc.Buffers[1:]
		for i := range u.doc.BufferViews {
			u.doc.BufferViews[i].Buffer--
		}
		u.logger.Debug("dropped unused GLB-internal buffer")
	}
	return nil
}

// copySiblingBuffers copies every external buffer file next to the output as
// <name><index>.bin and rewrites its uri.
func (u *unpacking) copySiblingBuffers() error {
	for i := range u.doc.Buffers {
		buf := &u.doc.Buffers[i]
		if buf.Mode() != document.ModeExternal || (u.internal && i == 0 && u.report.BinBytes > 0) {
			continue
		}

		data, err := resolver.ResolveBuffer(u.doc, i, u.r, u.slack)
		if err != nil {
			return fmt.Errorf("buffer %d: %w", i, err)
		}

		file := fmt.Sprintf("%s%d.bin", u.name, i)
		if err := u.writeFile(file, data); err != nil {
			return err
		}
		buf.URI = url.PathEscape(file)
	}
	return nil
}

func (u *unpacking) writeFile(name string, data []byte) error {
	path := filepath.Join(u.outDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	u.report.Files = append(u.report.Files, path)
	return nil
}
