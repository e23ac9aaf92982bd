package webapi

// Blob models the Blob web API (spec.md §4.7): an immutable byte sequence
// assembled from a mix of strings, other Blobs, and raw byte slices.
type Blob struct {
	data []byte
	typ  string
}

// NewBlob concatenates parts (string, []byte, or *Blob) into one buffer.
func NewBlob(parts []interface{}, mime string) *Blob {
	var buf []byte
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			buf = append(buf, v...)
		case []byte:
			buf = append(buf, v...)
		case *Blob:
			buf = append(buf, v.data...)
		}
	}
	return &Blob{data: buf, typ: mime}
}

func (b *Blob) Size() int64  { return int64(len(b.data)) }
func (b *Blob) Type() string { return b.typ }
func (b *Blob) Text() string { return string(b.data) }
func (b *Blob) ArrayBuffer() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Slice returns a new Blob covering data[start:end) (clamped to bounds),
// with an optional content-type override.
func (b *Blob) Slice(start, end int64, typ string) *Blob {
	n := int64(len(b.data))
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	out := make([]byte, end-start)
	copy(out, b.data[start:end])
	return &Blob{data: out, typ: typ}
}

// File is a Blob with a name and a last-modified timestamp (ms since epoch).
type File struct {
	*Blob
	Name         string
	LastModified int64
}

// NewFile builds a File from Blob-compatible parts plus the name and
// metadata from the {type, lastModified} init dict.
func NewFile(parts []interface{}, name string, mime string, lastModified int64) *File {
	return &File{Blob: NewBlob(parts, mime), Name: name, LastModified: lastModified}
}
