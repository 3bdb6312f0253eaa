package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/futures-ledger/pkg/app/futures"
)

type NopJournal struct{}

func NewNopJournal() *NopJournal                 { return &NopJournal{} }
func (j *NopJournal) Emit(futures.FutureCreated) {}
func (j *NopJournal) Close() error               { return nil }

// FileJournal appends one JSON line per FutureCreated event.
type FileJournal struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
	log *zap.SugaredLogger
}

func NewFileJournal(path string, log *zap.SugaredLogger) (*FileJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FileJournal{f: f, enc: json.NewEncoder(f), log: log}, nil
}

// Emit never fails the caller: the future is already stored, so a journal
// write error is logged and dropped.
func (j *FileJournal) Emit(ev futures.FutureCreated) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(ev); err != nil {
		j.log.Errorw("journal_write_failed", "future_id", ev.FutureID, "err", err)
	}
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

// ReadJournal returns every event recorded in the journal at path, in order.
// Events are decoded as a JSON stream, so there is no per-line size limit.
func ReadJournal(path string) ([]futures.FutureCreated, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []futures.FutureCreated
	dec := json.NewDecoder(bufio.NewReader(f))
	for n := 1; ; n++ {
		var ev futures.FutureCreated
		if err := dec.Decode(&ev); err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, fmt.Errorf("journal event %d: %w", n, err)
		}
		out = append(out, ev)
	}
}

var (
	_ futures.EventSink = (*NopJournal)(nil)
	_ futures.EventSink = (*FileJournal)(nil)
)
