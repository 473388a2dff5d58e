package codec

import "go.mongodb.org/mongo-driver/bson"

// BSON encodes documents as BSON. Values must marshal to a document
// (structs or maps), not scalars.
type BSON struct{}

func (BSON) Marshal(v any) ([]byte, error) { return bson.Marshal(v) }

func (BSON) Unmarshal(data []byte, v any) error { return bson.Unmarshal(data, v) }

func (BSON) Name() string { return "bson" }

func (BSON) Ext() string { return "bson" }
