package status

import (
	"sort"
	"sync"
	"time"
)

// Component is snapshot of one component status.
type Component struct {
	Name                string     `json:"name"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TotalFailures       int        `json:"total_failures"`
	LastError           string     `json:"last_error,omitempty"`
	LastErrorAt         *time.Time `json:"last_error_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastOffset          int64      `json:"last_offset"`
	TotalRecords        int64      `json:"total_records"`
}

// Registry holds status of components. A nil Registry ignores all reports.
type Registry struct {
	mutex      sync.RWMutex
	components map[string]*Component
	now        func() time.Time
}

// NewRegistry is constructor of Registry
func NewRegistry() *Registry {
	return &Registry{
		components: map[string]*Component{},
		now:        time.Now,
	}
}

func (x *Registry) component(name string) *Component {
	c, ok := x.components[name]
	if !ok {
		c = &Component{Name: name, LastOffset: -1}
		x.components[name] = c
	}
	return c
}

// SetState updates current state of the component
func (x *Registry) SetState(name, state string) {
	if x == nil {
		return
	}
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.component(name).State = state
}

// ReportFailure increments failure counters and keeps the error message
func (x *Registry) ReportFailure(name string, err error) {
	if x == nil {
		return
	}
	x.mutex.Lock()
	defer x.mutex.Unlock()

	now := x.now().UTC()
	c := x.component(name)
	c.ConsecutiveFailures++
	c.TotalFailures++
	c.LastErrorAt = &now
	if err != nil {
		c.LastError = err.Error()
	}
}

// ReportSuccess clears consecutive failures. offset < 0 does not update
// LastOffset.
func (x *Registry) ReportSuccess(name string, offset int64, records int) {
	if x == nil {
		return
	}
	x.mutex.Lock()
	defer x.mutex.Unlock()

	now := x.now().UTC()
	c := x.component(name)
	c.ConsecutiveFailures = 0
	c.LastSuccessAt = &now
	c.TotalRecords += int64(records)
	if offset >= 0 {
		c.LastOffset = offset
	}
}

// Get returns copy of component status
func (x *Registry) Get(name string) (Component, bool) {
	if x == nil {
		return Component{}, false
	}
	x.mutex.RLock()
	defer x.mutex.RUnlock()

	c, ok := x.components[name]
	if !ok {
		return Component{}, false
	}
	return *c, true
}

// List returns copies of all component status sorted by name
func (x *Registry) List() []Component {
	if x == nil {
		return nil
	}
	x.mutex.RLock()
	defer x.mutex.RUnlock()

	list := make([]Component, 0, len(x.components))
	for _, c := range x.components {
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
