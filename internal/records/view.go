package records

import (
	"errors"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var viewOption = copier.Option{
	Converters: []copier.TypeConverter{{
		SrcType: primitive.ObjectID{},
		DstType: copier.String,
		Fn: func(src interface{}) (interface{}, error) {
			id, ok := src.(primitive.ObjectID)
			if !ok {
				return nil, errors.New("src type not matching")
			}
			return id.Hex(), nil
		},
	}},
}

func itemView(it Item) (ItemView, error) {
	var v ItemView
	if err := copier.CopyWithOption(&v, &it, viewOption); err != nil {
		return ItemView{}, err
	}
	return v, nil
}

func itemViews(items []Item) ([]ItemView, error) {
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		v, err := itemView(it)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func clockInView(c ClockIn) (ClockInView, error) {
	var v ClockInView
	if err := copier.CopyWithOption(&v, &c, viewOption); err != nil {
		return ClockInView{}, err
	}
	return v, nil
}

func clockInViews(recs []ClockIn) ([]ClockInView, error) {
	out := make([]ClockInView, 0, len(recs))
	for _, c := range recs {
		v, err := clockInView(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
