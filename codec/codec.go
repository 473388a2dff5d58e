// Package codec encodes the manifest documents that catalogue live runs.
//
// The file extension of a persisted manifest identifies its codec, so a
// manifest written with one codec can be read back by a Sorter configured
// with another.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// Name is the stable codec name used in configuration.
	Name() string
	// Ext is the file extension (without dot) of documents it writes.
	Ext() string
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "bson":
		return BSON{}, true
	default:
		return nil, false
	}
}

// ByExt returns a codec able to read documents with the given extension.
// JSON documents are decoded with Default when it is a JSON codec.
func ByExt(ext string) (Codec, bool) {
	switch ext {
	case "json":
		if Default.Ext() == "json" {
			return Default, true
		}
		return JSON{}, true
	case "bson":
		return BSON{}, true
	default:
		return nil, false
	}
}
