// Package tag converts message text between its binary form, where control
// codes are embedded between ordinary code units, and a bracketed text form.
//
// # Binary Form
//
// A control code starts with a single code unit of the text encoding:
//
//	0x0E  start  group u16, type u16, param length u16, params
//	0x0F  end    group u16, type u16
//
// Integers follow the container byte order. A NUL unit ends the message.
//
// # Text Form
//
//	<Group.Tag name=value ...>   named start tag
//	<Tag value ...>              short form, when the tag name is unique
//	</Group.Tag>                 named end tag
//	<g.t> <g.t:0A-0B> </g.t>     positional form, no schema needed
//	<p>                          page break (System group, type 4)
//
// Literal '<', '>' and '\' are written \<, \> and \\. Bytes that do not
// decode cleanly are written \xHH.
//
// Decoding never fails. A code the schema cannot describe, or whose named
// rendering would not encode back to the same bytes, is rendered
// positionally. A code cut off by the message boundary is emitted as \xHH
// escapes for every byte up to the boundary.
package tag
