package lgbm

import (
	"strings"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// Field names an auxiliary per-row column attached to a Dataset.
type Field int

const (
	// FieldLabel is the training target.
	FieldLabel Field = iota
	// FieldWeight holds per-row sample weights.
	FieldWeight
	// FieldInitScore holds per-row starting scores.
	FieldInitScore
	// FieldGroup holds query sizes for ranking data.
	FieldGroup
)

var fieldNames = [...]string{
	FieldLabel:     "label",
	FieldWeight:    "weight",
	FieldInitScore: "init_score",
	FieldGroup:     "group",
}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

func (f Field) valid() bool { return f >= FieldLabel && f <= FieldGroup }

// ParseField maps a field name to a Field. Matching ignores case and "query"
// is accepted for the group field.
func ParseField(name string) (Field, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "query" {
		return FieldGroup, nil
	}
	for i, fn := range fieldNames {
		if fn == n {
			return Field(i), nil
		}
	}
	return 0, errors.NewValidationError("field", "unknown field name", name)
}
