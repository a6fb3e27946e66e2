package project

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/menta2k/dataset-labeller/pkg/types"
)

// ClassRegistry is the ordered list of class names. A rect's class id
// indexes into it. The list is only ever replaced as a whole.
type ClassRegistry struct {
	mu    sync.RWMutex
	names []string
}

// NewClassRegistry creates a registry holding names
func NewClassRegistry(names []string) (*ClassRegistry, error) {
	r := &ClassRegistry{}
	if _, err := r.Set(names); err != nil {
		return nil, err
	}
	return r, nil
}

// Names returns a copy of the class names
func (r *ClassRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyStrings(r.names)
}

// Set replaces the class list. Names are trimmed and blanks dropped; an
// empty result is rejected and leaves the registry unchanged.
func (r *ClassRegistry) Set(names []string) ([]string, error) {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: class names cannot be empty", types.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = cleaned
	return copyStrings(cleaned), nil
}

// LoadClassFile reads a text file with one class name per line
func LoadClassFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open class file: %w", types.ErrNotFound, err)
	}
	defer f.Close()

	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read class file: %w", types.ErrIO, err)
	}
	return classes, nil
}
