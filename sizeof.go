package fiberrt

// These constants size the cache-line padding of the queue and state types;
// no test asserts the resulting struct sizes or offsets.
const (
	// sizeOfCacheLine is the size of a CPU cache line.
	// 64 bytes is standard for x86-64.
	// 128 bytes is standard for Apple Silicon (M1/M2/M3) and other ARM64.
	// We use 128 to satisfy the largest common alignment requirement.
	sizeOfCacheLine = 128

	// sizeOfAtomicInt64 is the size of an atomic.Int64/atomic.Uint64 field.
	sizeOfAtomicInt64 = 8
)
