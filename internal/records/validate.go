package records

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	DateLayout,
}

// ParseID converts an external identifier into a store identifier.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, invalid("id", "invalid ID format. Must be a 24-character hex string")
	}
	return oid, nil
}

// parseDate parses a YYYY-MM-DD string into midnight UTC.
func parseDate(field, v string) (time.Time, error) {
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, invalid(field, fmt.Sprintf("invalid %s format. Use YYYY-MM-DD", field))
	}
	return t, nil
}

// parseDatetime accepts RFC 3339, a zone-less ISO timestamp (taken as UTC) or a bare date.
func parseDatetime(field, v string) (time.Time, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalid(field, fmt.Sprintf("invalid %s format. Use ISO-8601", field))
}

// ItemFilterParams are the raw query parameters of an item filter.
type ItemFilterParams struct {
	Email       string `form:"email"`
	ExpiryDate  string `form:"expiry_date"`
	InsertDate  string `form:"insert_date"`
	QuantityGTE string `form:"quantity_gte"`
}

// ItemFilter holds parsed item predicates; nil means unconstrained.
type ItemFilter struct {
	Email        *string
	ExpiryFrom   *string
	InsertedFrom *time.Time
	QuantityGTE  *int
}

// Parse validates every supplied parameter.
func (p ItemFilterParams) Parse() (ItemFilter, error) {
	var f ItemFilter
	if p.Email != "" {
		email := p.Email
		f.Email = &email
	}
	if p.ExpiryDate != "" {
		t, err := parseDate("expiry_date", p.ExpiryDate)
		if err != nil {
			return ItemFilter{}, err
		}
		s := t.Format(DateLayout)
		f.ExpiryFrom = &s
	}
	if p.InsertDate != "" {
		t, err := parseDate("insert_date", p.InsertDate)
		if err != nil {
			return ItemFilter{}, err
		}
		f.InsertedFrom = &t
	}
	if p.QuantityGTE != "" {
		n, err := strconv.Atoi(p.QuantityGTE)
		if err != nil {
			return ItemFilter{}, invalid("quantity_gte", "invalid quantity_gte. Must be an integer")
		}
		f.QuantityGTE = &n
	}
	return f, nil
}

// ClockInFilterParams are the raw query parameters of a clock-in filter.
type ClockInFilterParams struct {
	Email          string `form:"email"`
	Location       string `form:"location"`
	InsertDatetime string `form:"insert_datetime"`
}

type ClockInFilter struct {
	Email         *string
	Location      *string
	InsertedAfter *time.Time
}

func (p ClockInFilterParams) Parse() (ClockInFilter, error) {
	var f ClockInFilter
	if p.Email != "" {
		email := p.Email
		f.Email = &email
	}
	if p.Location != "" {
		loc := p.Location
		f.Location = &loc
	}
	if p.InsertDatetime != "" {
		t, err := parseDatetime("insert_datetime", p.InsertDatetime)
		if err != nil {
			return ClockInFilter{}, err
		}
		f.InsertedAfter = &t
	}
	return f, nil
}

// NewValidator returns a validator that reads gin's binding tags and reports json field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(JSONFieldName)
	return v
}

// JSONFieldName names struct fields after their json tag in validation errors.
func JSONFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// FromValidator converts validator output into a ValidationError for the first failing field.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return invalid(field, field+": field required")
	case "email":
		return invalid(field, field+": value is not a valid email address")
	case "datetime":
		return invalid(field, fmt.Sprintf("invalid %s format. Use YYYY-MM-DD", field))
	case "min":
		return invalid(field, field+": must not be empty")
	default:
		return invalid(field, fmt.Sprintf("%s: failed on %s", field, fe.Tag()))
	}
}
