// Package diagnostics keeps the latest diagnostics the server reported for
// each file.
package diagnostics

import (
	"slices"
	"sync"

	"github.com/wagiedev/tsserver-go/internal/event"
	"github.com/wagiedev/tsserver-go/internal/message"
)

// Store holds diagnostics per file and per category. A category is the
// name of the event that delivered them (syntaxDiag, semanticDiag or
// suggestionDiag); each new event replaces the previous list of its
// category for that file.
type Store struct {
	mu    sync.RWMutex
	files map[string]map[string][]message.Diagnostic
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{files: make(map[string]map[string][]message.Diagnostic)}
}

// Attach subscribes the store to the diagnostic topics of bus.
func (s *Store) Attach(bus *event.Bus) (detach func()) {
	unsubs := make([]func(), 0, len(event.DiagnosticTopics))

	for _, topic := range event.DiagnosticTopics {
		category := topic.Name()
		unsubs = append(unsubs, event.Subscribe(bus, topic, func(body message.DiagnosticEventBody) {
			s.Set(category, body.File, body.Diagnostics)
		}))
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// Set replaces the diagnostics of one category for file.
func (s *Store) Set(category, file string, diagnostics []message.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCategory, ok := s.files[file]
	if !ok {
		byCategory = make(map[string][]message.Diagnostic, len(event.DiagnosticTopics))
		s.files[file] = byCategory
	}

	if len(diagnostics) == 0 {
		delete(byCategory, category)
	} else {
		byCategory[category] = slices.Clone(diagnostics)
	}

	if len(byCategory) == 0 {
		delete(s.files, file)
	}
}

// Get returns every diagnostic of file, ordered by position.
func (s *Store) Get(file string) []message.Diagnostic {
	return s.filter(file, func(message.Diagnostic) bool { return true })
}

// ErrorsAt returns the diagnostics of file whose span contains loc.
func (s *Store) ErrorsAt(file string, loc message.Location) []message.Diagnostic {
	return s.filter(file, func(d message.Diagnostic) bool {
		return d.Span().Contains(loc)
	})
}

// ErrorsInRange returns the diagnostics of file that overlap the range from
// start to end, both inclusive.
func (s *Store) ErrorsInRange(file string, start, end message.Location) []message.Diagnostic {
	return s.filter(file, func(d message.Diagnostic) bool {
		return !d.End.Before(start) && !end.Before(d.Start)
	})
}

// Files returns the files that currently have diagnostics, sorted.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]string, 0, len(s.files))
	for file := range s.files {
		files = append(files, file)
	}

	slices.Sort(files)

	return files
}

// ClearFile drops every diagnostic of file.
func (s *Store) ClearFile(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files, file)
}

// Clear drops everything.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.files)
}

func (s *Store) filter(file string, keep func(message.Diagnostic) bool) []message.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []message.Diagnostic

	for _, diagnostics := range s.files[file] {
		for _, d := range diagnostics {
			if keep(d) {
				out = append(out, d)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b message.Diagnostic) int {
		switch {
		case a.Start.Before(b.Start):
			return -1
		case b.Start.Before(a.Start):
			return 1
		default:
			return 0
		}
	})

	return out
}
