// Package syncbuffer is a bytes.Buffer that log providers can share between
// goroutines in tests.
package syncbuffer

import (
	"bytes"
	"strings"
	"sync"
)

type SyncBuffer struct {
	mu  sync.RWMutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.buf.String()
}

// Lines returns the complete lines written so far.
func (b *SyncBuffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := strings.TrimSuffix(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
