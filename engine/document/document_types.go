// document_types.go contains the glTF 2.0 structures the codec rewrites.
// Only the members involved in the buffer → bufferView → accessor/image relations
// are typed; every other member (meshes, nodes, scenes, materials, min/max,
// extensions, extras, ...) is kept verbatim in Extra and written back unchanged.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package document

import (
	"encoding/json"
	"strings"
)

// Extra holds the JSON members of an object that the codec does not interpret.
type Extra map[string]json.RawMessage

// --- Root Structure ---

// Document represents the root of a glTF JSON document.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-gltf
type Document struct {
	// Asset contains metadata about the glTF asset.
	Asset *Asset `json:"asset,omitempty"`

	// Buffers are raw binary data containers.
	Buffers []Buffer `json:"buffers,omitempty"`

	// BufferViews define portions of buffers.
	BufferViews []BufferView `json:"bufferViews,omitempty"`

	// Accessors define how to interpret buffer data.
	Accessors []Accessor `json:"accessors,omitempty"`

	// Images is an array of images.
	Images []Image `json:"images,omitempty"`

	// Extra carries meshes, nodes, scenes and every other top-level member.
	Extra Extra `json:"-"`
}

var documentKeys = []string{"asset", "buffers", "bufferViews", "accessors", "images"}

// Asset contains metadata about the glTF asset.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-asset
type Asset struct {
	// Version is the glTF version, normally "2.0".
	Version string `json:"version"`

	// Generator is the tool that generated this asset.
	Generator string `json:"generator,omitempty"`

	Extra Extra `json:"-"`
}

var assetKeys = []string{"version", "generator"}

// --- Buffer Data ---

// Buffer represents binary data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-buffer
type Buffer struct {
	// URI is the location of the buffer data. Empty means the GLB BIN chunk.
	URI string `json:"uri,omitempty"`

	// ByteLength is the length of the buffer.
	ByteLength int `json:"byteLength"`

	Extra Extra `json:"-"`
}

var bufferKeys = []string{"uri", "byteLength"}

// BufferView represents a subset of a buffer.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-bufferview
type BufferView struct {
	// Buffer is the index of the buffer.
	Buffer int `json:"buffer"`

	// ByteOffset is the offset into the buffer.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ByteLength is the length of the bufferView.
	ByteLength int `json:"byteLength"`

	// ByteStride is the stride between interleaved vertex elements.
	ByteStride *int `json:"byteStride,omitempty"`

	// Extra carries target, name and extensions.
	Extra Extra `json:"-"`
}

var bufferViewKeys = []string{"buffer", "byteOffset", "byteLength", "byteStride"}

// End returns the exclusive end offset of the view within its buffer.
func (bv BufferView) End() int {
	return bv.ByteOffset + bv.ByteLength
}

// Accessor defines how to interpret buffer data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor
type Accessor struct {
	// BufferView is the index of the bufferView.
	BufferView *int `json:"bufferView,omitempty"`

	// ByteOffset is the offset within the bufferView.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ComponentType is the data type of components.
	ComponentType int `json:"componentType"`

	// Count is the number of elements.
	Count int `json:"count"`

	// Type is the element type (SCALAR, VEC2, VEC3, VEC4, MAT2, MAT3, MAT4).
	Type string `json:"type"`

	// Sparse defines sparse storage of accessor values.
	Sparse *AccessorSparse `json:"sparse,omitempty"`

	// Extra carries normalized, min, max, name and extensions.
	Extra Extra `json:"-"`
}

// Component types
const (
	ComponentTypeByte          = 5120
	ComponentTypeUnsignedByte  = 5121
	ComponentTypeShort         = 5122
	ComponentTypeUnsignedShort = 5123
	ComponentTypeUnsignedInt   = 5125
	ComponentTypeFloat         = 5126
)

// Accessor types
const (
	AccessorTypeScalar = "SCALAR"
	AccessorTypeVec2   = "VEC2"
	AccessorTypeVec3   = "VEC3"
	AccessorTypeVec4   = "VEC4"
	AccessorTypeMat2   = "MAT2"
	AccessorTypeMat3   = "MAT3"
	AccessorTypeMat4   = "MAT4"
)

// ElementSize returns the byte size of one accessor element, or 0 when the
// component type or accessor type is unknown.
func (a Accessor) ElementSize() int {
	var size int
	switch a.ComponentType {
	case ComponentTypeByte, ComponentTypeUnsignedByte:
		size = 1
	case ComponentTypeShort, ComponentTypeUnsignedShort:
		size = 2
	case ComponentTypeUnsignedInt, ComponentTypeFloat:
		size = 4
	}

	switch a.Type {
	case AccessorTypeScalar:
		return size
	case AccessorTypeVec2:
		return size * 2
	case AccessorTypeVec3:
		return size * 3
	case AccessorTypeVec4, AccessorTypeMat2:
		return size * 4
	case AccessorTypeMat3:
		return size * 9
	case AccessorTypeMat4:
		return size * 16
	default:
		return 0
	}
}

var accessorKeys = []string{"bufferView", "byteOffset", "componentType", "count", "type", "sparse"}

// AccessorSparse defines sparse storage. Its index and value arrays live in
// bufferViews of their own and are remapped together with the accessor.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor-sparse
type AccessorSparse struct {
	// Count is the number of sparse entries.
	Count int `json:"count"`

	// Indices locates the sparse index array.
	Indices SparseRef `json:"indices"`

	// Values locates the sparse value array.
	Values SparseRef `json:"values"`

	Extra Extra `json:"-"`
}

var accessorSparseKeys = []string{"count", "indices", "values"}

// SparseRef is the bufferView reference shared by sparse indices and values.
type SparseRef struct {
	BufferView int `json:"bufferView"`
	ByteOffset int `json:"byteOffset,omitempty"`

	// Extra carries componentType for indices.
	Extra Extra `json:"-"`
}

var sparseRefKeys = []string{"bufferView", "byteOffset"}

// --- Images ---

// Image is a texture image source.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-image
type Image struct {
	// URI is the location of the image: a data URI or a relative file path.
	URI string `json:"uri,omitempty"`

	// BufferView is the index of the bufferView holding the image bytes.
	BufferView *int `json:"bufferView,omitempty"`

	// MimeType is required when BufferView is set ("image/png" or "image/jpeg").
	MimeType string `json:"mimeType,omitempty"`

	Extra Extra `json:"-"`
}

var imageKeys = []string{"uri", "bufferView", "mimeType"}

// --- Storage Modes ---

// BufferMode identifies where a buffer's bytes are stored.
type BufferMode int

const (
	// ModeInternal means the URI is absent and the bytes live in the GLB BIN chunk.
	ModeInternal BufferMode = iota

	// ModeEmbedded means the URI is a base64 data URI.
	ModeEmbedded

	// ModeExternal means the URI is a path relative to the asset.
	ModeExternal
)

// String returns the mode name.
func (m BufferMode) String() string {
	switch m {
	case ModeInternal:
		return "internal"
	case ModeEmbedded:
		return "embedded"
	case ModeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Recognized embedded data URI prefixes.
const (
	BufferURIPrefixGLTF  = "data:application/gltf-buffer;base64,"
	BufferURIPrefixOctet = "data:application/octet-stream;base64,"
	ImageURIPrefixPNG    = "data:image/png;base64,"
	ImageURIPrefixJPEG   = "data:image/jpeg;base64,"

	// DataURIScheme prefixes every data URI.
	DataURIScheme = "data:"
)

// Image MIME types.
const (
	MimeTypePNG  = "image/png"
	MimeTypeJPEG = "image/jpeg"
)

// BufferURIPrefixes lists the embedded buffer prefixes in resolution priority order.
var BufferURIPrefixes = []string{BufferURIPrefixGLTF, BufferURIPrefixOctet}

// Mode classifies the buffer by inspecting its URI.
func (b Buffer) Mode() BufferMode {
	if b.URI == "" {
		return ModeInternal
	}
	if _, ok := EmbeddedPayload(b.URI); ok {
		return ModeEmbedded
	}
	return ModeExternal
}

// EmbeddedPayload returns the base64 payload of a recognized buffer data URI.
// Prefixes are matched case-insensitively.
//
// Parameters:
//   - uri: the buffer URI
//
// Returns:
//   - string: the base64 text after the prefix
//   - bool: true if uri starts with a recognized buffer prefix
func EmbeddedPayload(uri string) (string, bool) {
	for _, prefix := range BufferURIPrefixes {
		if len(uri) >= len(prefix) && strings.EqualFold(uri[:len(prefix)], prefix) {
			return uri[len(prefix):], true
		}
	}
	return "", false
}

// IsDataURI reports whether uri uses the data: scheme.
func IsDataURI(uri string) bool {
	return strings.HasPrefix(uri, DataURIScheme)
}
