package multierr

import (
	e "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/juju/errors"
)

// MultiErr collects errors from operations that should not stop at the first
// failure, such as fan-out to many connections.
type MultiErr struct {
	errors []error
}

func New() *MultiErr {
	return &MultiErr{}
}

// Add ignores nil errors.
func (m *MultiErr) Add(err error) {
	if err == nil {
		return
	}

	m.errors = append(m.errors, err)
}

// Len returns the number of collected errors.
func (m *MultiErr) Len() int {
	return len(m.errors)
}

// Err returns nil when nothing was collected and the error itself when
// exactly one was. Otherwise the returned error lists every stack.
func (m *MultiErr) Err() error {
	switch len(m.errors) {
	case 0:
		return nil
	case 1:
		return m.errors[0]
	}

	var sb strings.Builder

	for i, err := range m.errors {
		if i > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("%d. %s", i+1, errors.ErrorStack(err)))
	}

	return errors.Errorf("there were %d errors:\n%s", len(m.errors), sb.String())
}

// Is unwraps juju annotations before comparing.
func Is(err, target error) bool {
	return e.Is(errors.Cause(err), target)
}

// Sync is a MultiErr safe for concurrent use.
type Sync struct {
	mu       sync.Mutex
	multierr MultiErr
}

func (s *Sync) Add(err error) {
	s.mu.Lock()
	s.multierr.Add(err)
	s.mu.Unlock()
}

func (s *Sync) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.multierr.Err()
}
