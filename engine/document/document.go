package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// Decode parses glTF JSON into a Document. Comments and trailing commas are
// tolerated; trailing space or NUL padding from a GLB JSON chunk is ignored.
//
// Parameters:
//   - data: the JSON text
//
// Returns:
//   - *Document: the decoded document
//   - error: error if the JSON is malformed
func Decode(data []byte) (*Document, error) {
	data = bytes.TrimRight(data, " \x00")
	stripped := jsonc.ToJSON(data)

	var doc Document
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	return &doc, nil
}

// Encode serializes a Document. GLB JSON chunks use the compact form; loose
// .gltf files are written indented.
//
// Parameters:
//   - doc: the document to serialize
//   - indent: true to indent with two spaces
//
// Returns:
//   - []byte: the JSON text
//   - error: error if serialization fails
func Encode(doc *Document, indent bool) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("cannot encode a nil document")
	}

	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to serialize glTF JSON: %w", err)
	}
	return data, nil
}

// InternalBuffers returns the indices of every buffer whose URI is absent.
func (d *Document) InternalBuffers() []int {
	var indices []int
	for i, b := range d.Buffers {
		if b.URI == "" {
			indices = append(indices, i)
		}
	}
	return indices
}

// --- JSON pass-through ---

// unmarshalWithExtra decodes the typed members into known and collects every
// other member into extra.
func unmarshalWithExtra(data []byte, known any, keys []string, extra *Extra) error {
	if err := json.Unmarshal(data, known); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range keys {
		delete(all, k)
	}

	if len(all) == 0 {
		*extra = nil
		return nil
	}
	*extra = all
	return nil
}

// marshalWithExtra encodes known and merges the pass-through members back in.
// Typed members win over stale copies in extra.
func marshalWithExtra(known any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

type documentJSON Document

func (d *Document) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtra(data, (*documentJSON)(d), documentKeys, &d.Extra)
}

func (d Document) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(documentJSON(d), d.Extra)
}

type assetJSON Asset

func (a *Asset) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtra(data, (*assetJSON)(a), assetKeys, &a.Extra)
}

func (a Asset) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(assetJSON(a), a.Extra)
}

type bufferJSON Buffer

func (b *Buffer) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtra(data, (*bufferJSON)(b), bufferKeys, &b.Extra)
}

func (b Buffer) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(bufferJSON(b), b.Extra)
}

type bufferViewJSON BufferView

func (bv *BufferView) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtra(data, (*bufferViewJSON)(bv), bufferViewKeys, &bv.Extra)
}

func (bv BufferView) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(bufferViewJSON(bv), bv.Extra)
}

type accessorJSON Accessor

func (a *Accessor) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtra(data, (*accessorJSON)(a), accessorKeys, &a.Extra)
}

func (a Accessor) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(accessorJSON(a), a.Extra)
}

type accessorSparseJSON AccessorSparse

func (s *AccessorSparse) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtra(data, (*accessorSparseJSON)(s), accessorSparseKeys, &s.Extra)
}

func (s AccessorSparse) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(accessorSparseJSON(s), s.Extra)
}

type sparseRefJSON SparseRef

func (r *SparseRef) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtra(data, (*sparseRefJSON)(r), sparseRefKeys, &r.Extra)
}

func (r SparseRef) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(sparseRefJSON(r), r.Extra)
}

type imageJSON Image

func (img *Image) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtra(data, (*imageJSON)(img), imageKeys, &img.Extra)
}

func (img Image) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(imageJSON(img), img.Extra)
}
