package brackets

// Chunk splits items into buckets of the given size.
//
// When len(items) is a multiple of size the buckets are contiguous slices of exactly
// size items. Otherwise the items are dealt round-robin across len(items)/size+1
// buckets, so bucket sizes differ by at most one and no degenerate short bucket is
// produced. Order within a bucket follows input order. size <= 0 returns nil.
func Chunk[T any](size int, items []T) [][]T {
	if size <= 0 {
		return nil
	}
	if len(items) == 0 {
		return [][]T{}
	}

	if len(items)%size == 0 {
		chunks := make([][]T, 0, len(items)/size)
		for start := 0; start < len(items); start += size {
			bucket := make([]T, size)
			copy(bucket, items[start:start+size])
			chunks = append(chunks, bucket)
		}
		return chunks
	}

	count := len(items)/size + 1
	chunks := make([][]T, count)
	for i := range chunks {
		chunks[i] = make([]T, 0, len(items)/count+1)
	}
	for i, item := range items {
		chunks[i%count] = append(chunks[i%count], item)
	}
	return chunks
}
