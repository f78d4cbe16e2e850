// Package filestore implements storage.Store as a file-local backend:
// one newline-delimited JSON file per entity kind under a configured
// data directory, each record keyed by its natural identifier and
// rewritten in place on update. There is no ecosystem "file-local
// document store" library in the retrieval pack for this narrow a
// contract, so this backend is the one deliberate stdlib exception
// named in DESIGN.md; it is explicitly the non-relational backend, so
// a flat newline-delimited-JSON encoding is the idiomatic fit.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/storage"
)

// Store is the file-local backend. Every file access goes through one
// mutex held by the Store and shared by all entity files; reads copy
// the full file contents.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New builds a Store rooted at dir. Init creates dir if absent.
func New(dir string) *Store {
	return &Store{dir: dir}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Init(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.FailedTo("create filestore data directory", err)
	}
	return nil
}

func (s *Store) path(entity string) string {
	return filepath.Join(s.dir, entity+".jsonl")
}

// appendRecord writes one JSON line to entity's file.
func (s *Store) appendRecord(entity string, record interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(entity), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.FailedTo("open filestore file", err)
	}
	defer f.Close()

	data, err := json.Marshal(record)
	if err != nil {
		return errors.FailedTo("marshal filestore record", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.FailedTo("write filestore record", err)
	}
	return nil
}

// readAll decodes every JSON line in entity's file into a slice of raw
// messages, in file order.
func (s *Store) readAll(entity string) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path(entity))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.FailedTo("open filestore file", err)
	}
	defer f.Close()

	var out []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		out = append(out, cp)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.FailedTo("scan filestore file", err)
	}
	return out, nil
}

// rewriteAll replaces entity's file contents with records, one per
// line, in order.
func (s *Store) rewriteAll(entity string, records []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(entity), os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.FailedTo("rewrite filestore file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range records {
		if _, err := w.Write(r); err != nil {
			return errors.FailedTo("write filestore record", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return errors.FailedTo("write filestore record", err)
		}
	}
	return w.Flush()
}

// entity file names, one per persisted record kind.
const (
	entityAlerts           = "alerts"
	entityWorkflows        = "workflows"
	entityWorkflowSteps    = "workflow_steps"
	entitySourceEvents     = "source_events"
	entitySinkOutputs      = "sink_outputs"
	entityCustomResources  = "custom_resources"
)
