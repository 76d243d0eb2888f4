package image

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"
	"github.com/risor-io/clr/metadata"
)

// Magic starts every binary image.
const Magic = "CLRI"

// Version is the binary image format version written by Marshal.
const Version byte = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes f to the binary form.
func Marshal(f *File) ([]byte, error) {
	payload, err := cborEncMode.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("image: marshal %s: %w", f.Name, err)
	}
	var buf bytes.Buffer
	buf.Grow(len(Magic) + 1 + len(payload))
	buf.WriteString(Magic)
	buf.WriteByte(Version)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Encode writes the binary form of f to w.
func Encode(w io.Writer, f *File) error {
	data, err := Marshal(f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// MarshalText serializes f to TOML.
func MarshalText(f *File) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("image: marshal %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

// IsBinary returns true if data starts with the binary image magic.
func IsBinary(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Magic))
}

// Decode parses either form, choosing the codec from the magic.
func Decode(data []byte) (*File, error) {
	if !IsBinary(data) {
		return Parse(string(data))
	}
	rest := data[len(Magic):]
	if len(rest) == 0 {
		return nil, fmt.Errorf("image: truncated header")
	}
	if rest[0] != Version {
		return nil, fmt.Errorf("image: unsupported version %d", rest[0])
	}
	var f File
	if err := cbor.Unmarshal(rest[1:], &f); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	return &f, nil
}

// Parse parses the text form.
func Parse(text string) (*File, error) {
	var f File
	if _, err := toml.Decode(text, &f); err != nil {
		return nil, fmt.Errorf("image: parse error: %w", err)
	}
	return &f, nil
}

// Read reads and decodes the image file at path.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: cannot read %s: %w", path, err)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Open reads the image file at path and resolves it into an assembly whose
// origin is path.
func Open(path string) (*metadata.Assembly, error) {
	f, err := Read(path)
	if err != nil {
		return nil, err
	}
	asm, err := resolve(f, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return asm, nil
}
