package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const tokenEncoding = "cl100k_base"

// TokenMeter counts prompt tokens. The encoding is loaded on first use from the
// embedded BPE tables, so counting never touches the network.
type TokenMeter struct {
	once sync.Once
	tk   *tiktoken.Tiktoken
	err  error
}

func NewTokenMeter() *TokenMeter {
	return &TokenMeter{}
}

func (m *TokenMeter) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	m.once.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		m.tk, m.err = tiktoken.GetEncoding(tokenEncoding)
		if m.err != nil {
			m.err = fmt.Errorf("failed to load %s: %w", tokenEncoding, m.err)
		}
	})
	if m.err != nil {
		return 0, m.err
	}

	return len(m.tk.Encode(text, nil, nil)), nil
}
