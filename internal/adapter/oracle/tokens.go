package oracle

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

var loaderOnce sync.Once

// TokenCounter estimates prompt size for chat completion requests.
// BPE ranks are loaded from the embedded offline loader, so no network is needed.
type TokenCounter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewTokenCounter creates a counter with an empty encoding cache.
func NewTokenCounter() *TokenCounter {
	loaderOnce.Do(func() { tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader()) })
	return &TokenCounter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

func (c *TokenCounter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	name := encodingModel(model)

	c.mu.RLock()
	enc, ok := c.encodings[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding", slog.String("model", model), slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodings[name] = enc
	return enc, nil
}

// encodingModel maps provider model ids onto a name tiktoken knows.
func encodingModel(model string) string {
	m := strings.ToLower(model)
	if i := strings.LastIndex(m, "/"); i >= 0 {
		m = m[i+1:]
	}
	if strings.HasPrefix(m, "gpt-3.5") {
		return "gpt-3.5-turbo"
	}
	// cl100k_base is a close enough estimate for every other chat model
	return "gpt-4"
}

// CountChat counts tokens for a system+user chat request, including the
// per-message framing used by OpenAI-compatible APIs.
func (c *TokenCounter) CountChat(model, system, user string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	const perMessage = 4 // <|start|>{role}\n ... <|end|>
	n := perMessage + len(enc.Encode(system, nil, nil))
	n += perMessage + len(enc.Encode(user, nil, nil))
	n += 3 // reply is primed with <|start|>assistant<|message|>
	return n, nil
}
