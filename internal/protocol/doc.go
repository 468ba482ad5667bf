// Package protocol owns the framewire error taxonomy.
//
// Ownership boundary:
// - tlv: bounds-checked integer and header primitives
// - frame: typed frame variants and per-variant validation
// - frameset: signed frame collections, serialize/parse
// - sign: digest algorithms bound to the signature frame
// - schema: positional record layouts for callers
package protocol
