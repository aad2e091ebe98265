package planner

import (
	"sync"

	"visitroute/internal/model"
)

// Tracker retains the most recent route plan. Each run takes a generation
// from Begin; a run that finishes after a newer one began is discarded.
type Tracker struct {
	mu     sync.Mutex
	gen    uint64
	latest *model.RoutePlan
}

func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	return t.gen
}

// Commit stores plan if gen is still the newest run. It reports whether
// the plan was kept.
func (t *Tracker) Commit(gen uint64, plan model.RoutePlan) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return false
	}
	t.latest = &plan
	return true
}

func (t *Tracker) Latest() (model.RoutePlan, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		return model.RoutePlan{}, false
	}
	return *t.latest, true
}

// Clear drops the retained plan and invalidates runs still in flight.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.gen++
	t.latest = nil
	t.mu.Unlock()
}

// ClearIf drops the retained plan when stale reports true for it. It
// reports whether the plan was dropped.
func (t *Tracker) ClearIf(stale func(model.RoutePlan) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil || !stale(*t.latest) {
		return false
	}
	t.gen++
	t.latest = nil
	return true
}

// Outdated reports whether any stop of plan was removed from clients or
// changed in a way that affects the route or its texts.
func Outdated(plan model.RoutePlan, clients []model.Client) bool {
	byID := make(map[string]model.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}
	for _, stop := range plan.Clients {
		c, ok := byID[stop.ID]
		if !ok {
			return true
		}
		if c.Name != stop.Name || c.Address != stop.Address || c.Date != stop.Date || !samePoint(c.Location, stop.Location) {
			return true
		}
	}
	return false
}

func samePoint(a, b *model.GeoPoint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
