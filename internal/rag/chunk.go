package rag

// DefaultChunkSize is the chunk length, in characters, used when none is given.
const DefaultChunkSize = 800

// ChunkText splits text into contiguous pieces of at most size characters.
// Pieces are cut on rune boundaries; concatenating them yields text exactly.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []string
	start, n := 0, 0
	for i := range text {
		if n == size {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
		n++
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}
