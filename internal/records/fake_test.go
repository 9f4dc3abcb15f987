package records

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vodex/internal/queue"
)

// fakeStore is an in-memory ItemStore and ClockInStore.
type fakeStore struct {
	mu       sync.Mutex
	items    map[primitive.ObjectID]Item
	clockIns map[primitive.ObjectID]ClockIn
	order    []primitive.ObjectID
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:    make(map[primitive.ObjectID]Item),
		clockIns: make(map[primitive.ObjectID]ClockIn),
	}
}

func (f *fakeStore) InsertItem(ctx context.Context, item Item) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return primitive.NilObjectID, f.failWith
	}
	item.ID = primitive.NewObjectID()
	f.items[item.ID] = item
	f.order = append(f.order, item.ID)
	return item.ID, nil
}

func (f *fakeStore) FindItem(ctx context.Context, id primitive.ObjectID) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return Item{}, f.failWith
	}
	item, ok := f.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

func (f *fakeStore) FindItems(ctx context.Context, flt ItemFilter) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []Item
	for _, id := range f.order {
		item, ok := f.items[id]
		if !ok {
			continue
		}
		if flt.Email != nil && item.Email != *flt.Email {
			continue
		}
		if flt.ExpiryFrom != nil && item.ExpiryDate < *flt.ExpiryFrom {
			continue
		}
		if flt.InsertedFrom != nil && item.InsertDate.Before(*flt.InsertedFrom) {
			continue
		}
		if flt.QuantityGTE != nil && item.Quantity < *flt.QuantityGTE {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeStore) CountItemsByEmail(ctx context.Context, limit int64) ([]EmailCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, item := range f.items {
		counts[item.Email]++
	}
	out := make([]EmailCount, 0, len(counts))
	for email, n := range counts {
		out = append(out, EmailCount{Email: email, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateItem(ctx context.Context, id primitive.ObjectID, u ItemUpdate) (UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return UpdateResult{}, nil
	}
	before := item
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Email != nil {
		item.Email = *u.Email
	}
	if u.ItemName != nil {
		item.ItemName = *u.ItemName
	}
	if u.Quantity != nil {
		item.Quantity = *u.Quantity
	}
	if u.ExpiryDate != nil {
		item.ExpiryDate = *u.ExpiryDate
	}
	f.items[id] = item
	if item == before {
		return UpdateResult{Matched: 1}, nil
	}
	return UpdateResult{Matched: 1, Modified: 1}, nil
}

func (f *fakeStore) DeleteItem(ctx context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return 0, nil
	}
	delete(f.items, id)
	return 1, nil
}

func (f *fakeStore) SampleItem(ctx context.Context) (*Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, id := range f.order {
		if item, ok := f.items[id]; ok {
			return &item, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertClockIn(ctx context.Context, rec ClockIn) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = primitive.NewObjectID()
	f.clockIns[rec.ID] = rec
	f.order = append(f.order, rec.ID)
	return rec.ID, nil
}

func (f *fakeStore) FindClockIn(ctx context.Context, id primitive.ObjectID) (ClockIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.clockIns[id]
	if !ok {
		return ClockIn{}, ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) FindClockIns(ctx context.Context, flt ClockInFilter, limit int64) ([]ClockIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ClockIn
	for _, id := range f.order {
		rec, ok := f.clockIns[id]
		if !ok {
			continue
		}
		if flt.Email != nil && rec.Email != *flt.Email {
			continue
		}
		if flt.Location != nil && rec.Location != *flt.Location {
			continue
		}
		if flt.InsertedAfter != nil && !rec.InsertDatetime.After(*flt.InsertedAfter) {
			continue
		}
		out = append(out, rec)
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateClockIn(ctx context.Context, id primitive.ObjectID, u ClockInUpdate) (UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.clockIns[id]
	if !ok {
		return UpdateResult{}, nil
	}
	before := rec
	if u.Email != nil {
		rec.Email = *u.Email
	}
	if u.Location != nil {
		rec.Location = *u.Location
	}
	f.clockIns[id] = rec
	if rec == before {
		return UpdateResult{Matched: 1}, nil
	}
	return UpdateResult{Matched: 1, Modified: 1}, nil
}

func (f *fakeStore) DeleteClockIn(ctx context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clockIns[id]; !ok {
		return 0, nil
	}
	delete(f.clockIns, id)
	return 1, nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evt queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Collection+":"+e.Kind)
	}
	return out
}

var errStoreDown = errors.New("store unreachable")
