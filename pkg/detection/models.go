package detection

import (
	"fmt"
	"strings"
	"sync"

	"github.com/menta2k/dataset-labeller/internal/utils"
	"github.com/menta2k/dataset-labeller/pkg/types"
)

// ModelLibrary is the ordered list of known model identifiers. Entries are
// either model names the backend resolves itself or paths of imported files.
type ModelLibrary struct {
	mu     sync.RWMutex
	models []string
}

func NewModelLibrary(models []string) *ModelLibrary {
	l := &ModelLibrary{models: []string{}}
	for _, m := range models {
		l.add(strings.TrimSpace(m))
	}
	return l
}

// Models returns a copy of the library
func (l *ModelLibrary) Models() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.models))
	copy(out, l.models)
	return out
}

// Import adds the model file at path and returns the updated library
func (l *ModelLibrary) Import(path string) ([]string, error) {
	p := utils.NormalizePath(path)
	if !utils.FileExists(p) {
		return nil, fmt.Errorf("%w: model file %s", types.ErrNotFound, p)
	}
	l.add(p)
	return l.Models(), nil
}

// Resolve picks the model identifier for a detection request. An empty
// value selects the first library entry; an existing file resolves to its
// normalized path; a bare name is passed through for the backend to resolve.
func (l *ModelLibrary) Resolve(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		l.mu.RLock()
		defer l.mu.RUnlock()
		if len(l.models) == 0 {
			return "", fmt.Errorf("%w: no model configured", types.ErrNotFound)
		}
		return l.models[0], nil
	}
	if p := utils.NormalizePath(raw); utils.FileExists(p) {
		return p, nil
	}
	if !strings.ContainsAny(raw, `/\`) {
		return raw, nil
	}
	return "", fmt.Errorf("%w: model %s", types.ErrNotFound, raw)
}

func (l *ModelLibrary) add(m string) {
	if m == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.models {
		if existing == m {
			return
		}
	}
	l.models = append(l.models, m)
}
