package encoder

// POCSAG framing words
const (
	Preamble  = 0xAAAAAAAA // 32 alternating bits
	FrameSync = 0x7CD215D8 // start of every batch
	Idle      = 0x7A89C197 // filler codeword

	preambleWords = 576 / 32
	batchWords    = 16
)

// TestPage returns one idle POCSAG batch: preamble, frame sync and sixteen
// idle codewords. Pagers ignore it, which makes it safe for keying tests.
func TestPage() []int {
	words := make([]int, 0, preambleWords+1+batchWords)
	for i := 0; i < preambleWords; i++ {
		words = append(words, Preamble)
	}
	words = append(words, FrameSync)
	for i := 0; i < batchWords; i++ {
		words = append(words, Idle)
	}
	return words
}
