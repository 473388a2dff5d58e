package run

import (
	"fmt"
	"path"
)

// Info describes a persisted run.
type Info struct {
	// Name is the blob name in the store.
	Name string `json:"name" bson:"name"`
	// Level is 0 for runs produced by the splitter and n+1 for runs merged
	// from level-n runs.
	Level int `json:"level" bson:"level"`
	// Index is the chunk index within its level.
	Index int `json:"index" bson:"index"`
	// Records is the number of records in the run.
	Records int64 `json:"records" bson:"records"`
	// Bytes is the uncompressed size including line terminators.
	Bytes int64 `json:"bytes" bson:"bytes"`
	// Estimate is the sum of len(line)+2 over the run's records.
	Estimate int64 `json:"estimate" bson:"estimate"`
	// Compression is the stream encoding of the blob.
	Compression Compression `json:"compression" bson:"compression"`
}

// Namer builds run names below a common prefix.
type Namer struct {
	Prefix string
}

// Name returns "<prefix>/run-L<level>-<index>.txt" plus the compression suffix.
func (n Namer) Name(level, index int, c Compression) string {
	base := fmt.Sprintf("run-L%d-%06d.txt%s", level, index, c.Ext())
	if n.Prefix == "" {
		return base
	}
	return path.Join(n.Prefix, base)
}

// Info returns an Info with the name and placement filled in.
func (n Namer) Info(level, index int, c Compression) Info {
	return Info{
		Name:        n.Name(level, index, c),
		Level:       level,
		Index:       index,
		Compression: c,
	}
}
