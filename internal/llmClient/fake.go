package llmclient

import (
	"context"
	"sync"
)

// FakeClient returns a canned reply for offline runs and tests. The default
// reply is empty, which the pipeline reads as "no file needs changes".
type FakeClient struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func NewFakeClient(reply string) *FakeClient {
	return &FakeClient{reply: reply}
}

// NewFailingFakeClient always fails with err.
func NewFailingFakeClient(err error) *FakeClient {
	return &FakeClient{err: err}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// Calls returns how many prompts the client has received.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// LastPrompt returns the most recent prompt, or "" if none.
func (f *FakeClient) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}
