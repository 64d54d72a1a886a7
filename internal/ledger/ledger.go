// Package ledger remembers which retrieval requests have already been
// downloaded, keyed by a hash of the request.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
)

type Ledger interface {
	// Done reports whether key was recorded, and the file it was saved to.
	Done(ctx context.Context, key string) (string, bool, error)
	MarkDone(ctx context.Context, key, file string) error
}

// RequestKey hashes a dataset name and its request inputs. Map keys are
// sorted before hashing so equal requests always produce the same key.
func RequestKey(dataset string, inputs map[string]any) (string, error) {
	doc, err := sonic.ConfigStd.Marshal(map[string]any{
		"dataset": dataset,
		"inputs":  inputs,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	sum := sha256.Sum256(doc)
	return hex.EncodeToString(sum[:]), nil
}

// Memory is an in-process Ledger.
type Memory struct {
	mu    sync.RWMutex
	files map[string]string
}

func NewMemory() *Memory {
	return &Memory{files: make(map[string]string)}
}

func (m *Memory) Done(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	file, ok := m.files[key]
	return file, ok, nil
}

func (m *Memory) MarkDone(_ context.Context, key, file string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = file
	return nil
}
