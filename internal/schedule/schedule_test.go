package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"visitroute/internal/model"
	"visitroute/internal/opt"
	"visitroute/internal/store"
)

type failingKV struct{ store.KV }

func (failingKV) Put(ctx context.Context, key string, value []byte) error {
	return errors.New("disk full")
}

func newTestScheduler(t *testing.T) (*Scheduler, *store.ClientStore) {
	t.Helper()
	mel, err := time.LoadLocation("Australia/Melbourne")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	cs := store.NewClientStore(store.NewMemory())
	s := New(cs, mel, opt.LocaleEN)
	// 2026-10-15 09:00 in Melbourne is still 2026-10-14 in UTC.
	s.Now = func() time.Time { return time.Date(2026, 10, 14, 22, 0, 0, 0, time.UTC) }
	return s, cs
}

func TestSortClients(t *testing.T) {
	in := []model.Client{
		{ID: "allday", Date: "2026-10-15"},
		{ID: "late", Date: "2026-10-15", Time: "14:00"},
		{ID: "tomorrow", Date: "2026-10-16", Time: "08:00"},
		{ID: "early", Date: "2026-10-15", Time: "09:30"},
		{ID: "yesterday", Date: "2026-10-14"},
	}
	got := SortClients(in)
	want := []string{"yesterday", "early", "late", "allday", "tomorrow"}
	for i, c := range got {
		if c.ID != want[i] {
			t.Fatalf("position %d: got %s want %s (%v)", i, c.ID, want[i], got)
		}
	}
	if in[0].ID != "allday" {
		t.Fatalf("input was reordered")
	}
}

func TestSaveValidates(t *testing.T) {
	s, _ := newTestScheduler(t)
	_, _, err := s.Save(context.Background(), model.ClientInput{Name: " ", Address: "1 A St", Date: "15/10/2026", Time: "9am"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(ve.Fields) != 3 || ve.Fields[0] != "name" || ve.Fields[1] != "date" || ve.Fields[2] != "time" {
		t.Fatalf("fields: %v", ve.Fields)
	}
	if len(s.All()) != 0 {
		t.Fatalf("invalid input must not be stored")
	}
}

func TestSaveCreatesPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	s, cs := newTestScheduler(t)
	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	c, created, err := s.Save(ctx, model.ClientInput{
		Name: " Ann ", Address: "1 A St", Date: "2026-10-15", Time: "09:30",
		Place: &model.Place{PlaceID: "p1", Location: &model.GeoPoint{Lat: -37.8, Lng: 144.9}},
	})
	if err != nil || !created {
		t.Fatalf("save: created=%v err=%v", created, err)
	}
	if c.ID == "" || c.Name != "Ann" || c.PlaceID != "p1" || c.Location == nil {
		t.Fatalf("unexpected client: %+v", c)
	}
	stored, _ := cs.Load(ctx)
	if len(stored) != 1 || stored[0].ID != c.ID {
		t.Fatalf("not persisted: %+v", stored)
	}
	if len(changes) != 1 || changes[0].Reason != ReasonCreated || len(changes[0].Clients) != 1 {
		t.Fatalf("changes: %+v", changes)
	}
}

func TestSaveEditAddressDropsLocation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler(t)
	c, _, _ := s.Save(ctx, model.ClientInput{
		Name: "Ann", Address: "1 A St", Date: "2026-10-15",
		Place: &model.Place{PlaceID: "p1", Location: &model.GeoPoint{Lat: 1, Lng: 2}},
	})

	same, created, err := s.Save(ctx, model.ClientInput{ID: c.ID, Name: "Ann B", Address: "1 A St", Date: "2026-10-16"})
	if err != nil || created {
		t.Fatalf("update: created=%v err=%v", created, err)
	}
	if same.Location == nil || same.PlaceID != "p1" {
		t.Fatalf("unchanged address should keep location: %+v", same)
	}

	moved, _, _ := s.Save(ctx, model.ClientInput{ID: c.ID, Name: "Ann B", Address: "9 Z St", Date: "2026-10-16"})
	if moved.Location != nil || moved.PlaceID != "" {
		t.Fatalf("new address should clear location: %+v", moved)
	}
	if len(s.All()) != 1 {
		t.Fatalf("update duplicated the client")
	}
}

func TestSaveStorageFailureLeavesCollection(t *testing.T) {
	mel, _ := time.LoadLocation("Australia/Melbourne")
	s := New(store.NewClientStore(failingKV{store.NewMemory()}), mel, opt.LocaleEN)
	notified := false
	s.OnChange(func(Change) { notified = true })
	if _, _, err := s.Save(context.Background(), model.ClientInput{Name: "A", Address: "B", Date: "2026-10-15"}); err == nil {
		t.Fatalf("want storage error")
	}
	if len(s.All()) != 0 || notified {
		t.Fatalf("failed save must not change state or notify")
	}
}

func TestTodayUsesConfiguredZone(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler(t)
	for _, in := range []model.ClientInput{
		{Name: "A", Address: "a", Date: "2026-10-15", Time: "15:00"},
		{Name: "B", Address: "b", Date: "2026-10-14"},
		{Name: "C", Address: "c", Date: "2026-10-15", Time: "08:00"},
		{Name: "D", Address: "d", Date: "2026-10-17"},
	} {
		if _, _, err := s.Save(ctx, in); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if s.TodayKey() != "2026-10-15" {
		t.Fatalf("today: %s", s.TodayKey())
	}
	today := s.Today()
	if len(today) != 2 || today[0].Name != "C" || today[1].Name != "A" {
		t.Fatalf("today: %+v", today)
	}
	groups := s.Upcoming()
	if len(groups) != 2 || !groups[0].IsToday || groups[0].Label != "Today · Thu 15 Oct" || groups[1].Date != "2026-10-17" {
		t.Fatalf("upcoming: %+v", groups)
	}
}

func TestDateLabelChinese(t *testing.T) {
	if got := DateLabel("2026-10-15", true, opt.LocaleZH); got != "今天 · 10月15日周四" {
		t.Fatalf("got %q", got)
	}
	if got := DateLabel("bad", false, opt.LocaleZH); got != "bad" {
		t.Fatalf("got %q", got)
	}
}

func TestDeleteNeedsTwoConfirmations(t *testing.T) {
	ctx := context.Background()
	s, cs := newTestScheduler(t)
	c, _, _ := s.Save(ctx, model.ClientInput{Name: "A", Address: "a", Date: "2026-10-15"})

	if _, err := s.ConfirmDelete(ctx, c.ID); !errors.Is(err, ErrNoPendingDelete) {
		t.Fatalf("confirm without request: %v", err)
	}
	if st, err := s.RequestDelete(c.ID); err != nil || st != PendingFirstConfirm {
		t.Fatalf("request: %v %v", st, err)
	}
	st, err := s.ConfirmDelete(ctx, c.ID)
	if err != nil || st != PendingSecondConfirm {
		t.Fatalf("first confirm: %v %v", st, err)
	}
	if len(s.All()) != 1 {
		t.Fatalf("single confirmation must not delete")
	}
	if st, err = s.ConfirmDelete(ctx, c.ID); err != nil || st != Confirmed {
		t.Fatalf("second confirm: %v %v", st, err)
	}
	if len(s.All()) != 0 {
		t.Fatalf("client still present")
	}
	stored, _ := cs.Load(ctx)
	if len(stored) != 0 {
		t.Fatalf("delete not persisted: %+v", stored)
	}
}

func TestDeleteCancel(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler(t)
	c, _, _ := s.Save(ctx, model.ClientInput{Name: "A", Address: "a", Date: "2026-10-15"})
	_, _ = s.RequestDelete(c.ID)
	_, _ = s.ConfirmDelete(ctx, c.ID)
	if st := s.CancelDelete(c.ID); st != Idle {
		t.Fatalf("cancel: %v", st)
	}
	if _, err := s.ConfirmDelete(ctx, c.ID); !errors.Is(err, ErrNoPendingDelete) {
		t.Fatalf("confirm after cancel: %v", err)
	}
	if len(s.All()) != 1 {
		t.Fatalf("cancelled delete removed the client")
	}
	if _, err := s.RequestDelete("missing"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("unknown id: %v", err)
	}
}

func TestApplyLocationPersists(t *testing.T) {
	ctx := context.Background()
	s, cs := newTestScheduler(t)
	c, _, _ := s.Save(ctx, model.ClientInput{Name: "A", Address: "a", Date: "2026-10-15"})
	var reasons []ChangeReason
	s.OnChange(func(ch Change) { reasons = append(reasons, ch.Reason) })

	if err := s.ApplyLocation(ctx, c.ID, model.GeoPoint{Lat: -37.8, Lng: 144.9}, "pid"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.ApplyLocation(ctx, "gone", model.GeoPoint{}, ""); err != nil {
		t.Fatalf("apply to deleted client: %v", err)
	}
	stored, _ := cs.Load(ctx)
	if stored[0].Location == nil || stored[0].Location.Lat != -37.8 || stored[0].PlaceID != "pid" {
		t.Fatalf("location not persisted: %+v", stored[0])
	}
	if len(reasons) != 1 || reasons[0] != ReasonLocated {
		t.Fatalf("reasons: %v", reasons)
	}
}

func TestLoadRecoversFromCorruptStorage(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_ = mem.Put(ctx, store.StorageKey, []byte("{broken"))
	s := New(store.NewClientStore(mem), nil, opt.LocaleEN)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := s.All(); len(got) != 0 {
		t.Fatalf("want empty, got %+v", got)
	}
}

func TestReplaceAndImport(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler(t)
	var last Change
	s.OnChange(func(ch Change) { last = ch })

	if err := s.Replace(ctx, []model.Client{{ID: "b", Date: "2026-10-16"}, {ID: "a", Date: "2026-10-15"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if last.Reason != ReasonRemotePull || s.All()[0].ID != "a" {
		t.Fatalf("replace: %+v", last)
	}
	res, err := s.Import(ctx, []model.Client{
		{ID: "a", Name: "renamed", Address: "1 A St", Date: "2026-10-15"},
		{ID: "c", Name: "Cat", Address: " 3 C St ", Date: "2026-10-14"},
	})
	if err != nil || res.Imported != 2 || res.Skipped != 0 {
		t.Fatalf("import: %+v %v", res, err)
	}
	all := s.All()
	if len(all) != 3 || all[0].ID != "c" || all[0].Address != "3 C St" || all[1].Name != "renamed" || last.Reason != ReasonImported {
		t.Fatalf("import result: %+v", all)
	}
}

func TestImportSkipsInvalidRows(t *testing.T) {
	ctx := context.Background()
	s, cs := newTestScheduler(t)
	res, err := s.Import(ctx, []model.Client{
		{ID: "ok", Name: "Ann", Address: "1 A St", Date: "2026-10-15", Time: "09:30"},
		{ID: "words", Name: "Bob", Address: "2 B St", Date: "next tue"},
		{ID: "clock", Name: "Cy", Address: "3 C St", Date: "2026-10-15", Time: "9am"},
		{ID: " ", Name: "Di", Address: "4 D St", Date: "2026-10-15"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 3 {
		t.Fatalf("counts: %+v", res)
	}
	stored, _ := cs.Load(ctx)
	if len(stored) != 1 || stored[0].ID != "ok" {
		t.Fatalf("persisted: %+v", stored)
	}

	calls := 0
	s.OnChange(func(Change) { calls++ })
	res, err = s.Import(ctx, []model.Client{{ID: "x", Date: "soon"}})
	if err != nil || res.Imported != 0 || res.Skipped != 1 || calls != 0 {
		t.Fatalf("all-invalid import: %+v %v calls=%d", res, err, calls)
	}
}

func TestImportKeepsConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _, _ = s.Save(ctx, model.ClientInput{ID: fmt.Sprintf("saved-%d", i), Name: "S", Address: "1 A St", Date: "2026-10-15"})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Import(ctx, []model.Client{{ID: fmt.Sprintf("imported-%d", i), Name: "I", Address: "2 B St", Date: "2026-10-16"}})
		}(i)
	}
	wg.Wait()
	if got := len(s.All()); got != 40 {
		t.Fatalf("want 40 clients, got %d", got)
	}
}

func TestOnChangeListenersRunInOrder(t *testing.T) {
	s, _ := newTestScheduler(t)
	var order []string
	s.OnChange(func(ch Change) { order = append(order, "first:"+string(ch.Reason)) })
	s.OnChange(func(ch Change) { order = append(order, "second:"+string(ch.Reason)) })
	if _, _, err := s.Save(context.Background(), model.ClientInput{Name: "Ann", Address: "1 A St", Date: "2026-10-15"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(order) != 2 || order[0] != "first:created" || order[1] != "second:created" {
		t.Fatalf("listener order: %v", order)
	}
}

func TestReplaceAtRefusesAfterLocalCommit(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()
	remote := []model.Client{{ID: "r1", Name: "Remote", Address: "9 R St", Date: "2026-10-15"}}

	rev := s.Revision()
	if _, _, err := s.Save(ctx, model.ClientInput{Name: "Local", Address: "1 A St", Date: "2026-10-15"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err := s.ReplaceAt(ctx, remote, rev)
	if err != nil || ok {
		t.Fatalf("stale replace applied: %v %v", ok, err)
	}
	if got := s.All(); len(got) != 1 || got[0].Name != "Local" {
		t.Fatalf("clients: %+v", got)
	}

	ok, err = s.ReplaceAt(ctx, remote, s.Revision())
	if err != nil || !ok {
		t.Fatalf("current replace refused: %v %v", ok, err)
	}
	if got := s.All(); len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("clients: %+v", got)
	}
}
