package persist

import (
	"github.com/fxamacker/cbor/v2"
)

// EncodeBinary renders doc as CBOR, the compact form the persister
// writes next to the JSON interchange document; on a flash-backed BMC
// the binary snapshot is both smaller and cheaper to rewrite on every
// dirty flush.
func EncodeBinary(doc Document) ([]byte, error) {
	return cbor.Marshal(doc)
}

// DecodeBinary is EncodeBinary's inverse, used as the restore fallback
// when the JSON document is missing or unreadable.
func DecodeBinary(raw []byte) (Document, error) {
	var doc Document
	if err := cbor.Unmarshal(raw, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
