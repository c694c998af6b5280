// Package dtype provides the closed set of value types shared by tag
// parameters and message attributes, and a codec for their scalar values.
//
// # Type Codes
//
// The on-disk type code is a single byte:
//
//	Code | Type     | Width
//	-----|----------|------
//	0    | Uint8    | 1
//	1    | Uint16   | 2
//	2    | Uint32   | 4
//	3    | Int8     | 1
//	4    | Int16    | 2
//	5    | Int32    | 4
//	6    | Float32  | 4
//	7    | Float64  | 8
//	8    | String   | see below
//	9    | Enum     | 1
//
// String has no fixed width. In a tag parameter it is a u16 byte count
// followed by encoded text; in an attribute block it is a 4-byte offset into
// the section's string region. Enum values are stored as the global id of a
// list item.
//
// # Scalars
//
// A [Scalar] keeps the raw bits of a numeric value together with its type so
// that decoding and re-encoding are exact:
//
//	s, err := dtype.ReadScalar(r, dtype.Int16)
//	text := s.String()                       // "-1"
//	back, err := dtype.ParseScalar(dtype.Int16, text)
//	err = back.Write(w)
package dtype
