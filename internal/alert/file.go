package alert

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/draftcue/draftcue/pkg/types"
)

// FileSink appends alerts to a JSON-lines file. The file handle is held open
// for the life of the sink; Close releases it.
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewFileSink opens (or creates) the alert file in append mode.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening alert file: %w", err)
	}
	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Send(a types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(a)
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
