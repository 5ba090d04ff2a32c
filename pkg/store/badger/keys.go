package badger

// Database Key Namespace Design
// ==============================
//
// Every object is stored as two BadgerDB entries so listings can scan small
// metadata records without touching object bodies:
//
// Data Type    Prefix   Key Format        Value Type
// =====================================================
// Metadata     "m:"     m:<objectKey>     objectMeta (JSON)
// Content      "d:"     d:<objectKey>     raw bytes
//
// Because object keys are appended verbatim, a prefix listing of the object
// namespace is a BadgerDB prefix scan over "m:<prefix>" and comes back in
// lexicographic key order.

const (
	prefixMeta = "m:"
	prefixData = "d:"
)

func keyMeta(key string) []byte {
	return []byte(prefixMeta + key)
}

func keyData(key string) []byte {
	return []byte(prefixData + key)
}

// objectKeyFromMeta strips the metadata namespace from a raw Badger key.
func objectKeyFromMeta(raw []byte) string {
	return string(raw[len(prefixMeta):])
}
