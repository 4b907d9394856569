// Package wire is the structured-value codec for medkit.
//
// Values are encoded as CBOR (RFC 8949). Profiles (identities, cached
// resource values) use stable string keys so they can be stored and
// exchanged independently of the Go types behind them; stack messages use
// integer keys for compactness.
//
// Encoding is deterministic (canonical key order) and timestamps keep
// nanosecond precision, so a decode of an encode reproduces the value.
package wire
