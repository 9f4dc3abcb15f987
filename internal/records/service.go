package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vodex/internal/metrics"
	"vodex/internal/queue"
	"vodex/internal/sl"
)

// ItemStore is the persistence the service needs for items.
type ItemStore interface {
	InsertItem(ctx context.Context, item Item) (primitive.ObjectID, error)
	FindItem(ctx context.Context, id primitive.ObjectID) (Item, error)
	FindItems(ctx context.Context, f ItemFilter) ([]Item, error)
	CountItemsByEmail(ctx context.Context, limit int64) ([]EmailCount, error)
	UpdateItem(ctx context.Context, id primitive.ObjectID, u ItemUpdate) (UpdateResult, error)
	DeleteItem(ctx context.Context, id primitive.ObjectID) (int64, error)
	SampleItem(ctx context.Context) (*Item, error)
}

// ClockInStore is the persistence the service needs for clock-in records.
type ClockInStore interface {
	InsertClockIn(ctx context.Context, rec ClockIn) (primitive.ObjectID, error)
	FindClockIn(ctx context.Context, id primitive.ObjectID) (ClockIn, error)
	FindClockIns(ctx context.Context, f ClockInFilter, limit int64) ([]ClockIn, error)
	UpdateClockIn(ctx context.Context, id primitive.ObjectID, u ClockInUpdate) (UpdateResult, error)
	DeleteClockIn(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Publisher receives change events. Failures never fail the request.
type Publisher interface {
	Publish(ctx context.Context, evt queue.Event) error
}

// Service validates requests, runs them against the stores and normalizes results.
type Service struct {
	log      *slog.Logger
	items    ItemStore
	clockIns ClockInStore
	events   Publisher
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a service. events may be nil.
func NewService(log *slog.Logger, items ItemStore, clockIns ClockInStore, events Publisher) *Service {
	return &Service{
		log:      log,
		items:    items,
		clockIns: clockIns,
		events:   events,
		validate: NewValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// timestamp returns the current UTC time at the store's millisecond precision.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) check(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		return FromValidator(err)
	}
	return nil
}

func (s *Service) observe(collection, op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrValidation):
		outcome = "invalid"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.RecordOps.WithLabelValues(collection, op, outcome).Inc()
}

func (s *Service) publish(ctx context.Context, kind, collection string, id primitive.ObjectID) {
	if s.events == nil {
		return
	}
	evt := queue.NewEvent(kind, collection, id.Hex())
	if err := s.events.Publish(ctx, evt); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		s.log.Warn("event publish failed",
			slog.String("kind", kind),
			slog.String("collection", collection),
			slog.String("record_id", evt.RecordID),
			sl.Err(err),
		)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}

// CreateItem validates and stores a new item, stamping insert_date.
func (s *Service) CreateItem(ctx context.Context, in ItemCreate) (view ItemView, err error) {
	const op = "records.CreateItem"
	defer func() { s.observe(CollectionItems, "create", err) }()

	if err := s.check(in); err != nil {
		return ItemView{}, err
	}
	expiry, err := parseDate("expiry_date", in.ExpiryDate)
	if err != nil {
		return ItemView{}, err
	}

	id, err := s.items.InsertItem(ctx, Item{
		Name:       in.Name,
		Email:      in.Email,
		ItemName:   in.ItemName,
		Quantity:   *in.Quantity,
		ExpiryDate: expiry.Format(DateLayout),
		InsertDate: s.timestamp(),
	})
	if err != nil {
		return ItemView{}, fmt.Errorf("%s: insert: %w", op, err)
	}
	stored, err := s.items.FindItem(ctx, id)
	if err != nil {
		return ItemView{}, fmt.Errorf("%s: read back: %w", op, err)
	}
	s.publish(ctx, queue.KindCreated, CollectionItems, id)

	return itemView(stored)
}

// FilterItems returns every item matching the supplied predicates.
func (s *Service) FilterItems(ctx context.Context, p ItemFilterParams) (list ItemList, err error) {
	const op = "records.FilterItems"
	defer func() { s.observe(CollectionItems, "filter", err) }()

	f, err := p.Parse()
	if err != nil {
		return ItemList{}, err
	}
	items, err := s.items.FindItems(ctx, f)
	if err != nil {
		return ItemList{}, fmt.Errorf("%s: %w", op, err)
	}
	views, err := itemViews(items)
	if err != nil {
		return ItemList{}, fmt.Errorf("%s: %w", op, err)
	}
	return ItemList{Items: views, Count: len(views)}, nil
}

// CountItemsByEmail returns the number of items per email, at most AggregateLimit groups.
func (s *Service) CountItemsByEmail(ctx context.Context) (groups []EmailCount, err error) {
	const op = "records.CountItemsByEmail"
	defer func() { s.observe(CollectionItems, "aggregate", err) }()

	groups, err = s.items.CountItemsByEmail(ctx, AggregateLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if groups == nil {
		groups = []EmailCount{}
	}
	return groups, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (view ItemView, err error) {
	const op = "records.GetItem"
	defer func() { s.observe(CollectionItems, "get", err) }()

	oid, err := ParseID(id)
	if err != nil {
		return ItemView{}, err
	}
	item, err := s.items.FindItem(ctx, oid)
	if err != nil {
		return ItemView{}, fmt.Errorf("%s: %w", op, err)
	}
	return itemView(item)
}

// UpdateItem applies the present fields of u and returns the fresh record.
//
// A matched update that changes nothing returns the record as stored; only a
// missing record is ErrNotFound.
func (s *Service) UpdateItem(ctx context.Context, id string, u ItemUpdate) (view ItemView, err error) {
	const op = "records.UpdateItem"
	defer func() { s.observe(CollectionItems, "update", err) }()

	oid, err := ParseID(id)
	if err != nil {
		return ItemView{}, err
	}
	if u.Empty() {
		return ItemView{}, invalid("", "no fields to update")
	}
	if err := s.check(u); err != nil {
		return ItemView{}, err
	}
	if u.ExpiryDate != nil {
		t, err := parseDate("expiry_date", *u.ExpiryDate)
		if err != nil {
			return ItemView{}, err
		}
		normalized := t.Format(DateLayout)
		u.ExpiryDate = &normalized
	}

	if _, err := s.items.FindItem(ctx, oid); err != nil {
		return ItemView{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.items.UpdateItem(ctx, oid, u)
	if err != nil {
		return ItemView{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.Matched == 0 {
		return ItemView{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	fresh, err := s.items.FindItem(ctx, oid)
	if err != nil {
		return ItemView{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.Modified > 0 {
		s.publish(ctx, queue.KindUpdated, CollectionItems, oid)
	}
	return itemView(fresh)
}

// DeleteItem succeeds only when exactly one item was removed.
func (s *Service) DeleteItem(ctx context.Context, id string) (err error) {
	const op = "records.DeleteItem"
	defer func() { s.observe(CollectionItems, "delete", err) }()

	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	n, err := s.items.DeleteItem(ctx, oid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	s.publish(ctx, queue.KindDeleted, CollectionItems, oid)
	return nil
}

// CreateClockIn validates and stores a clock-in, stamping insert_datetime.
func (s *Service) CreateClockIn(ctx context.Context, in ClockInCreate) (view ClockInView, err error) {
	const op = "records.CreateClockIn"
	defer func() { s.observe(CollectionClockIn, "create", err) }()

	if err := s.check(in); err != nil {
		return ClockInView{}, err
	}
	id, err := s.clockIns.InsertClockIn(ctx, ClockIn{
		Email:          in.Email,
		Location:       in.Location,
		InsertDatetime: s.timestamp(),
	})
	if err != nil {
		return ClockInView{}, fmt.Errorf("%s: insert: %w", op, err)
	}
	stored, err := s.clockIns.FindClockIn(ctx, id)
	if err != nil {
		return ClockInView{}, fmt.Errorf("%s: read back: %w", op, err)
	}
	s.publish(ctx, queue.KindCreated, CollectionClockIn, id)

	return clockInView(stored)
}

// FilterClockIns returns at most ClockInFilterLimit matching records.
func (s *Service) FilterClockIns(ctx context.Context, p ClockInFilterParams) (views []ClockInView, err error) {
	const op = "records.FilterClockIns"
	defer func() { s.observe(CollectionClockIn, "filter", err) }()

	f, err := p.Parse()
	if err != nil {
		return nil, err
	}
	recs, err := s.clockIns.FindClockIns(ctx, f, ClockInFilterLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return clockInViews(recs)
}

func (s *Service) GetClockIn(ctx context.Context, id string) (view ClockInView, err error) {
	const op = "records.GetClockIn"
	defer func() { s.observe(CollectionClockIn, "get", err) }()

	oid, err := ParseID(id)
	if err != nil {
		return ClockInView{}, err
	}
	rec, err := s.clockIns.FindClockIn(ctx, oid)
	if err != nil {
		return ClockInView{}, fmt.Errorf("%s: %w", op, err)
	}
	return clockInView(rec)
}

// UpdateClockIn follows the same rules as UpdateItem.
func (s *Service) UpdateClockIn(ctx context.Context, id string, u ClockInUpdate) (view ClockInView, err error) {
	const op = "records.UpdateClockIn"
	defer func() { s.observe(CollectionClockIn, "update", err) }()

	oid, err := ParseID(id)
	if err != nil {
		return ClockInView{}, err
	}
	if u.Empty() {
		return ClockInView{}, invalid("", "no fields to update")
	}
	if err := s.check(u); err != nil {
		return ClockInView{}, err
	}

	if _, err := s.clockIns.FindClockIn(ctx, oid); err != nil {
		return ClockInView{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.clockIns.UpdateClockIn(ctx, oid, u)
	if err != nil {
		return ClockInView{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.Matched == 0 {
		return ClockInView{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	fresh, err := s.clockIns.FindClockIn(ctx, oid)
	if err != nil {
		return ClockInView{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.Modified > 0 {
		s.publish(ctx, queue.KindUpdated, CollectionClockIn, oid)
	}
	return clockInView(fresh)
}

func (s *Service) DeleteClockIn(ctx context.Context, id string) (err error) {
	const op = "records.DeleteClockIn"
	defer func() { s.observe(CollectionClockIn, "delete", err) }()

	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	n, err := s.clockIns.DeleteClockIn(ctx, oid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	s.publish(ctx, queue.KindDeleted, CollectionClockIn, oid)
	return nil
}

// Probe reads one arbitrary item to prove the store answers. A nil view means
// the collection is empty.
func (s *Service) Probe(ctx context.Context) (*ItemView, error) {
	const op = "records.Probe"

	item, err := s.items.SampleItem(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if item == nil {
		return nil, nil
	}
	v, err := itemView(*item)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &v, nil
}
