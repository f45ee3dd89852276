package rules

import (
	"strings"
)

// Context is one channel's evaluation context: its attributes plus the
// transient user flags and the aggregate health across its streams. Missing
// fields resolve to none, which the operators treat per their polarity.
type Context struct {
	Name         string
	Group        string
	Country      string
	Language     string
	DeclaredID   string
	IsFavorite   bool
	IsHidden     bool
	HealthStatus string // "" when stream context was not loaded
}

// resolve maps a field to its optional string value. Boolean flags render as
// the literal strings "true"/"false"; blank attributes resolve to none.
func (c *Context) resolve(field Field) (string, bool) {
	switch field {
	case FieldName:
		return c.Name, c.Name != ""
	case FieldGroup:
		return c.Group, c.Group != ""
	case FieldCountry:
		return c.Country, c.Country != ""
	case FieldLanguage:
		return c.Language, c.Language != ""
	case FieldDeclaredID:
		return c.DeclaredID, c.DeclaredID != ""
	case FieldIsFavorite:
		return boolString(c.IsFavorite), true
	case FieldIsHidden:
		return boolString(c.IsHidden), true
	case FieldHealthStatus:
		return c.HealthStatus, c.HealthStatus != ""
	default:
		return "", false
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Evaluate reduces a rule document against one channel context.
// AND over an empty list is vacuously true, OR vacuously false.
func Evaluate(doc *FolderRules, ctx *Context) bool {
	return reduce(doc.GroupLogic, len(doc.Groups), func(i int) bool {
		return evaluateGroup(&doc.Groups[i], ctx)
	})
}

func evaluateGroup(g *Group, ctx *Context) bool {
	return reduce(g.Logic, len(g.Conditions), func(i int) bool {
		return evaluateCondition(&g.Conditions[i], ctx)
	})
}

// reduce applies AND/OR short-circuit semantics over n operands.
func reduce(logic Logic, n int, operand func(int) bool) bool {
	if logic == LogicOr {
		for i := 0; i < n; i++ {
			if operand(i) {
				return true
			}
		}
		return false
	}

	// AND is the default for unknown combinators.
	for i := 0; i < n; i++ {
		if !operand(i) {
			return false
		}
	}
	return true
}

// evaluateCondition applies one operator. String comparisons are
// case-insensitive throughout. An absent field never equals a present value,
// disproves positive claims (contains, in, ...) and trivially satisfies their
// negations.
func evaluateCondition(c *Condition, ctx *Context) bool {
	value, present := ctx.resolve(c.Field)
	value = strings.ToLower(value)
	want := strings.ToLower(c.Value)

	switch c.Operator {
	case OpEquals:
		return present && value == want
	case OpNotEquals:
		return !present || value != want
	case OpContains:
		return present && strings.Contains(value, want)
	case OpNotContains:
		return !present || !strings.Contains(value, want)
	case OpStartsWith:
		return present && strings.HasPrefix(value, want)
	case OpEndsWith:
		return present && strings.HasSuffix(value, want)
	case OpIn:
		return present && inSet(value, c.Values)
	case OpNotIn:
		return !present || !inSet(value, c.Values)
	case OpIsTrue:
		return present && value == "true"
	case OpIsFalse:
		return present && value == "false"
	case OpIsEmpty:
		return !present || strings.TrimSpace(value) == ""
	case OpIsNotEmpty:
		return present && strings.TrimSpace(value) != ""
	default:
		return false
	}
}

func inSet(value string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(value, s) {
			return true
		}
	}
	return false
}

// Filter applies a rule document to a collection, preserving input order.
// The context provider runs once per item so callers can batch whatever
// auxiliary lookups (favorites, hidden, streams) they need.
func Filter[T any](doc *FolderRules, items []T, contextFor func(T) *Context) []T {
	matched := make([]T, 0, len(items))
	for _, item := range items {
		if Evaluate(doc, contextFor(item)) {
			matched = append(matched, item)
		}
	}
	return matched
}
