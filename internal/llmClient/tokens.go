package llmclient

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// CountTokens estimates the prompt size with the cl100k_base encoding. Gemini
// uses its own tokenizer, so this is an approximation good enough for a
// size ceiling. It falls back to counting words if the codec is unavailable.
func CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	if c, err := getCodec(); err == nil {
		if ids, _, err := c.Encode(text); err == nil {
			return len(ids)
		}
	}
	return countWords(text)
}

func countWords(text string) int {
	words := strings.Fields(text)
	if len(words) > 0 {
		return len(words)
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
