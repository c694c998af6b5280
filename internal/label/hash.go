package label

// hashMultiplier is the per-byte multiplier of the label hash.
const hashMultiplier = 0x492

// Hash computes the bucket of label in a table with slots buckets.
//
// The hash is a multiply-accumulate over the label bytes with 32-bit
// wraparound, reduced modulo the slot count. slots must be non-zero.
func Hash(label string, slots uint32) uint32 {
	return sum(label) % slots
}

func sum(label string) uint32 {
	var h uint32
	for i := 0; i < len(label); i++ {
		h = h*hashMultiplier + uint32(label[i])
	}
	return h
}
