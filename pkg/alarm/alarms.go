package alarm

import "sync"

// ActiveAlarms collects interlock violations until the installation returns
// to idle. The zero value is ready to use.
type ActiveAlarms struct {
	mu    sync.RWMutex
	index map[string]struct{}
	order []string
}

// Add records an alarm and reports false when it is already active.
func (a *ActiveAlarms) Add(alarm string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.index[alarm]; ok {
		return false
	}
	if a.index == nil {
		a.index = make(map[string]struct{})
	}
	a.index[alarm] = struct{}{}
	a.order = append(a.order, alarm)
	return true
}

// List returns the active alarms in the order they were raised, nil when there are none.
func (a *ActiveAlarms) List() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.order) == 0 {
		return nil
	}
	return append([]string(nil), a.order...)
}

// Clear removes all alarms and reports if there were any.
func (a *ActiveAlarms) Clear() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	had := len(a.order) > 0
	a.index = nil
	a.order = nil
	return had
}
