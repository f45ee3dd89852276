// Package rules implements the declarative filter documents behind smart
// folders and the engine that evaluates them against channel attributes.
package rules

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Logic combines the results of a group's conditions, or of the document's
// groups.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Field names a channel attribute a condition tests against.
type Field string

const (
	FieldName         Field = "name"
	FieldGroup        Field = "group"
	FieldCountry      Field = "country"
	FieldLanguage     Field = "language"
	FieldDeclaredID   Field = "declared-identifier"
	FieldIsFavorite   Field = "is-favorite"
	FieldIsHidden     Field = "is-hidden"
	FieldHealthStatus Field = "health-status"
)

// Operator is the comparison applied between a resolved field value and the
// condition's value or value-set.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not-equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not-contains"
	OpStartsWith  Operator = "starts-with"
	OpEndsWith    Operator = "ends-with"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not-in"
	OpIsTrue      Operator = "is-true"
	OpIsFalse     Operator = "is-false"
	OpIsEmpty     Operator = "is-empty"
	OpIsNotEmpty  Operator = "is-not-empty"
)

// Condition is a single leaf predicate. It is pure configuration with no
// behavior of its own.
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// Group reduces its conditions with Logic.
type Group struct {
	Conditions []Condition `json:"conditions"`
	Logic      Logic       `json:"logic"`
}

// FolderRules is the two-level boolean document attached to a smart folder.
type FolderRules struct {
	Groups     []Group `json:"groups"`
	GroupLogic Logic   `json:"groupLogic"`
}

// Encode serializes a rule document for storage as a folder blob.
func Encode(r *FolderRules) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule set: %w", err)
	}
	return data, nil
}

// Decode deserializes a stored rule blob.
func Decode(data []byte) (*FolderRules, error) {
	var r FolderRules
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode rule set: %w", err)
	}
	return &r, nil
}
