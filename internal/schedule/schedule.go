// Package schedule owns the client collection: validation, ordering, day
// views, delete confirmation and location merges. Every mutation is
// persisted in full before change listeners run.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"visitroute/internal/model"
	"visitroute/internal/opt"
	"visitroute/internal/store"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrNoPendingDelete = errors.New("no delete pending for client")
)

// ValidationError lists the form fields that block submission.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// ChangeReason tells listeners where a mutation came from.
type ChangeReason string

const (
	ReasonCreated    ChangeReason = "created"
	ReasonUpdated    ChangeReason = "updated"
	ReasonDeleted    ChangeReason = "deleted"
	ReasonLocated    ChangeReason = "located"
	ReasonImported   ChangeReason = "imported"
	ReasonRemotePull ChangeReason = "remote_pull"
)

// Change is delivered to OnChange after the snapshot is persisted.
type Change struct {
	Reason  ChangeReason
	Clients []model.Client
}

// Scheduler is the single owner of the in-memory client list.
type Scheduler struct {
	store    *store.ClientStore
	loc      *time.Location
	locale   opt.Locale
	onChange []func(Change)

	// Now is the clock; tests replace it.
	Now func() time.Time

	mu      sync.Mutex
	clients []model.Client
	deletes map[string]*Confirmation
	rev     uint64 // bumped on every commit
}

func New(cs *store.ClientStore, loc *time.Location, locale opt.Locale) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		store:   cs,
		loc:     loc,
		locale:  locale,
		Now:     time.Now,
		clients: []model.Client{},
		deletes: map[string]*Confirmation{},
	}
}

// OnChange registers a listener. Listeners run outside the lock, in order.
func (s *Scheduler) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Load reads the persisted list. A broken snapshot is logged and replaced
// by an empty collection.
func (s *Scheduler) Load(ctx context.Context) error {
	clients, err := s.store.Load(ctx)
	var sre *store.StorageReadError
	if errors.As(err, &sre) {
		log.Printf("schedule: stored data unreadable, starting empty: %v", err)
		err = nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.clients = SortClients(clients)
	s.mu.Unlock()
	return nil
}

// TodayKey is today's date in the configured zone.
func (s *Scheduler) TodayKey() string {
	return s.Now().In(s.loc).Format(dateLayout)
}

func (s *Scheduler) All() []model.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Client(nil), s.clients...)
}

func (s *Scheduler) Get(id string) (model.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Client{}, false
	}
	return s.clients[i], true
}

// Today returns the clients scheduled for today, in schedule order.
func (s *Scheduler) Today() []model.Client {
	today := s.TodayKey()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Client{}
	for _, c := range s.clients {
		if c.Date == today {
			out = append(out, c)
		}
	}
	return out
}

// TodayClients satisfies the planner's collection interface.
func (s *Scheduler) TodayClients() []model.Client { return s.Today() }

// Upcoming groups today's and later clients per day.
func (s *Scheduler) Upcoming() []model.DayGroup {
	today := s.TodayKey()
	s.mu.Lock()
	future := []model.Client{}
	for _, c := range s.clients {
		if c.Date >= today {
			future = append(future, c)
		}
	}
	s.mu.Unlock()
	return groupByDate(future, today, s.locale)
}

// normalize trims every field and reports the ones that block saving.
// Date must be YYYY-MM-DD and time, when present, HH:MM.
func normalize(c model.Client) (model.Client, []string) {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	c.Date = strings.TrimSpace(c.Date)
	c.Time = strings.TrimSpace(c.Time)
	c.Contact = strings.TrimSpace(c.Contact)

	var bad []string
	if c.Name == "" {
		bad = append(bad, "name")
	}
	if c.Address == "" {
		bad = append(bad, "address")
	}
	if _, err := time.Parse(dateLayout, c.Date); err != nil {
		bad = append(bad, "date")
	}
	if c.Time != "" {
		if _, err := time.Parse(timeLayout, c.Time); err != nil {
			bad = append(bad, "time")
		}
	}
	return c, bad
}

// Save creates or updates a client from form input.
func (s *Scheduler) Save(ctx context.Context, in model.ClientInput) (model.Client, bool, error) {
	c, bad := normalize(model.Client{ID: in.ID, Name: in.Name, Address: in.Address, Date: in.Date, Time: in.Time, Contact: in.Contact})
	if len(bad) > 0 {
		return model.Client{}, false, &ValidationError{Fields: bad}
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	s.mu.Lock()
	i := s.indexOf(c.ID)
	switch {
	case in.Place != nil && (in.Place.PlaceID != "" || in.Place.Location != nil):
		c.PlaceID = in.Place.PlaceID
		if in.Place.Location != nil {
			loc := *in.Place.Location
			c.Location = &loc
		}
	case i >= 0 && s.clients[i].Address == c.Address:
		c.PlaceID = s.clients[i].PlaceID
		c.Location = s.clients[i].Location
	}

	next := append([]model.Client(nil), s.clients...)
	reason := ReasonUpdated
	if i < 0 {
		next = append(next, c)
		reason = ReasonCreated
	} else {
		next[i] = c
	}
	if err := s.commitLocked(ctx, SortClients(next)); err != nil {
		s.mu.Unlock()
		return model.Client{}, false, err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Change{Reason: reason, Clients: snap})
	return c, reason == ReasonCreated, nil
}

// RequestDelete opens the two-step confirmation for a client.
func (s *Scheduler) RequestDelete(id string) (ConfirmState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return Idle, ErrClientNotFound
	}
	cf := s.deletes[id]
	if cf == nil {
		cf = &Confirmation{}
		s.deletes[id] = cf
	}
	return cf.Request(), nil
}

// ConfirmDelete records one confirmation; the second one removes the client.
func (s *Scheduler) ConfirmDelete(ctx context.Context, id string) (ConfirmState, error) {
	s.mu.Lock()
	cf := s.deletes[id]
	if cf == nil || cf.State() == Idle {
		s.mu.Unlock()
		return Idle, ErrNoPendingDelete
	}
	i := s.indexOf(id)
	if i < 0 {
		delete(s.deletes, id)
		s.mu.Unlock()
		return Idle, ErrClientNotFound
	}
	st := cf.Confirm()
	if st != Confirmed {
		s.mu.Unlock()
		return st, nil
	}
	delete(s.deletes, id)
	next := make([]model.Client, 0, len(s.clients)-1)
	next = append(next, s.clients[:i]...)
	next = append(next, s.clients[i+1:]...)
	if err := s.commitLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return Idle, err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Change{Reason: ReasonDeleted, Clients: snap})
	return Confirmed, nil
}

// CancelDelete abandons a pending delete.
func (s *Scheduler) CancelDelete(id string) ConfirmState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cf := s.deletes[id]; cf != nil {
		delete(s.deletes, id)
		return cf.Cancel()
	}
	return Idle
}

// ApplyLocation merges a freshly resolved location into the collection.
// A client deleted in the meantime is ignored.
func (s *Scheduler) ApplyLocation(ctx context.Context, id string, loc model.GeoPoint, placeID string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	next := append([]model.Client(nil), s.clients...)
	l := loc
	next[i].Location = &l
	if placeID != "" {
		next[i].PlaceID = placeID
	}
	if err := s.commitLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Change{Reason: ReasonLocated, Clients: snap})
	return nil
}

// Replace swaps in a list pulled from the remote backup.
func (s *Scheduler) Replace(ctx context.Context, clients []model.Client) error {
	return s.replace(ctx, clients, ReasonRemotePull)
}

// Revision identifies the current list; it changes on every commit.
func (s *Scheduler) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// ReplaceAt is Replace guarded by rev: when the list was committed since
// rev was read, nothing is replaced and it reports false.
func (s *Scheduler) ReplaceAt(ctx context.Context, clients []model.Client, rev uint64) (bool, error) {
	s.mu.Lock()
	if s.rev != rev {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.commitLocked(ctx, SortClients(clients)); err != nil {
		s.mu.Unlock()
		return false, err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(Change{Reason: ReasonRemotePull, Clients: snap})
	return true, nil
}

// ImportResult counts the rows an import kept and the ones it dropped.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Import upserts every client by id (used by spreadsheet file import).
// Rows that would fail Save's validation are skipped and counted.
func (s *Scheduler) Import(ctx context.Context, clients []model.Client) (ImportResult, error) {
	var res ImportResult
	s.mu.Lock()
	next := append([]model.Client(nil), s.clients...)
	for _, c := range clients {
		c, bad := normalize(c)
		if c.ID == "" || len(bad) > 0 {
			res.Skipped++
			continue
		}
		found := false
		for i := range next {
			if next[i].ID == c.ID {
				next[i] = c
				found = true
				break
			}
		}
		if !found {
			next = append(next, c)
		}
		res.Imported++
	}
	if res.Imported == 0 {
		s.mu.Unlock()
		return res, nil
	}
	if err := s.commitLocked(ctx, SortClients(next)); err != nil {
		s.mu.Unlock()
		return ImportResult{}, err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Change{Reason: ReasonImported, Clients: snap})
	return res, nil
}

func (s *Scheduler) replace(ctx context.Context, clients []model.Client, reason ChangeReason) error {
	s.mu.Lock()
	if err := s.commitLocked(ctx, SortClients(clients)); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(Change{Reason: reason, Clients: snap})
	return nil
}

// commitLocked persists next and only then makes it the live list.
func (s *Scheduler) commitLocked(ctx context.Context, next []model.Client) error {
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("persist clients: %w", err)
	}
	s.clients = next
	s.rev++
	return nil
}

func (s *Scheduler) snapshotLocked() []model.Client {
	return append([]model.Client(nil), s.clients...)
}

func (s *Scheduler) indexOf(id string) int {
	for i, c := range s.clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Scheduler) notify(ch Change) {
	s.mu.Lock()
	fns := make([]func(Change), len(s.onChange))
	copy(fns, s.onChange)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}
