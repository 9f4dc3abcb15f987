package records

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists items and clock-in records in MongoDB.
type Repository struct {
	items    *mongo.Collection
	clockIns *mongo.Collection
	timeout  time.Duration
}

// NewRepository creates a repo over the two collections. A zero timeout leaves
// the caller's deadline alone.
func NewRepository(items, clockIns *mongo.Collection, timeout time.Duration) *Repository {
	return &Repository{items: items, clockIns: clockIns, timeout: timeout}
}

func (r *Repository) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// InsertItem writes a new item and returns the store-assigned id.
func (r *Repository) InsertItem(ctx context.Context, item Item) (primitive.ObjectID, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	item.ID = primitive.NilObjectID
	res, err := r.items.InsertOne(ctx, item)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedID(res)
}

// FindItem returns ErrNotFound when no document has the id.
func (r *Repository) FindItem(ctx context.Context, id primitive.ObjectID) (Item, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	var item Item
	if err := r.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// FindItems returns every item matching the filter.
func (r *Repository) FindItems(ctx context.Context, f ItemFilter) ([]Item, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	cur, err := r.items.Find(ctx, itemQuery(f))
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CountItemsByEmail groups items by email, returning at most limit groups.
func (r *Repository) CountItemsByEmail(ctx context.Context, limit int64) ([]EmailCount, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	cur, err := r.items.Aggregate(ctx, countByEmailPipeline(limit))
	if err != nil {
		return nil, err
	}
	var out []EmailCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItem applies the present fields of u with $set.
func (r *Repository) UpdateItem(ctx context.Context, id primitive.ObjectID, u ItemUpdate) (UpdateResult, error) {
	return r.update(ctx, r.items, id, itemSet(u))
}

// DeleteItem returns the number of removed documents.
func (r *Repository) DeleteItem(ctx context.Context, id primitive.ObjectID) (int64, error) {
	return r.delete(ctx, r.items, id)
}

// SampleItem returns any one item, or nil if the collection is empty.
func (r *Repository) SampleItem(ctx context.Context) (*Item, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	var item Item
	if err := r.items.FindOne(ctx, bson.D{}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *Repository) InsertClockIn(ctx context.Context, rec ClockIn) (primitive.ObjectID, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	rec.ID = primitive.NilObjectID
	res, err := r.clockIns.InsertOne(ctx, rec)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedID(res)
}

func (r *Repository) FindClockIn(ctx context.Context, id primitive.ObjectID) (ClockIn, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	var rec ClockIn
	if err := r.clockIns.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ClockIn{}, ErrNotFound
		}
		return ClockIn{}, err
	}
	return rec, nil
}

// FindClockIns returns up to limit records matching the filter.
func (r *Repository) FindClockIns(ctx context.Context, f ClockInFilter, limit int64) ([]ClockIn, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	cur, err := r.clockIns.Find(ctx, clockInQuery(f), options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	var recs []ClockIn
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *Repository) UpdateClockIn(ctx context.Context, id primitive.ObjectID, u ClockInUpdate) (UpdateResult, error) {
	return r.update(ctx, r.clockIns, id, clockInSet(u))
}

func (r *Repository) DeleteClockIn(ctx context.Context, id primitive.ObjectID) (int64, error) {
	return r.delete(ctx, r.clockIns, id)
}

func (r *Repository) update(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, set bson.M) (UpdateResult, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (r *Repository) delete(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) (int64, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func insertedID(res *mongo.InsertOneResult) (primitive.ObjectID, error) {
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected inserted id type")
	}
	return id, nil
}

func itemQuery(f ItemFilter) bson.M {
	q := bson.M{}
	if f.Email != nil {
		q["email"] = *f.Email
	}
	if f.ExpiryFrom != nil {
		// expiry_date is stored as YYYY-MM-DD, so string order is date order
		q["expiry_date"] = bson.M{"$gte": *f.ExpiryFrom}
	}
	if f.InsertedFrom != nil {
		q["insert_date"] = bson.M{"$gte": *f.InsertedFrom}
	}
	if f.QuantityGTE != nil {
		q["quantity"] = bson.M{"$gte": *f.QuantityGTE}
	}
	return q
}

func clockInQuery(f ClockInFilter) bson.M {
	q := bson.M{}
	if f.Email != nil {
		q["email"] = *f.Email
	}
	if f.Location != nil {
		q["location"] = *f.Location
	}
	if f.InsertedAfter != nil {
		q["insert_datetime"] = bson.M{"$gt": *f.InsertedAfter}
	}
	return q
}

func countByEmailPipeline(limit int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$email"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$limit", Value: limit}},
	}
}

func itemSet(u ItemUpdate) bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Email != nil {
		set["email"] = *u.Email
	}
	if u.ItemName != nil {
		set["item_name"] = *u.ItemName
	}
	if u.Quantity != nil {
		set["quantity"] = *u.Quantity
	}
	if u.ExpiryDate != nil {
		set["expiry_date"] = *u.ExpiryDate
	}
	return set
}

func clockInSet(u ClockInUpdate) bson.M {
	set := bson.M{}
	if u.Email != nil {
		set["email"] = *u.Email
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	return set
}
