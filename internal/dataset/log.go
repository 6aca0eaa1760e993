package dataset

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Log accumulates warnings raised while loading a dataset (skipped rows, integrity
// issues) so they can be written out in one file once loading is done.
type Log struct {
	mu      sync.Mutex
	Records []string
	Length  int64
}

func (l *Log) Append(message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Length++
	l.Records = append(l.Records, message)
}

func (l *Log) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

// WriteFile writes the records to path, one per line. Nothing is written when the
// log is empty.
func (l *Log) WriteFile(path string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Length == 0 {
		return nil
	}
	return os.WriteFile(path, []byte(strings.Join(l.Records, "\n")+"\n"), 0o644)
}
