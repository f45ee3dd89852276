package rules

import (
	"testing"
)

func cond(field Field, op Operator, value string) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

func singleRule(c Condition) *FolderRules {
	return &FolderRules{
		GroupLogic: LogicAnd,
		Groups: []Group{
			{Logic: LogicAnd, Conditions: []Condition{c}},
		},
	}
}

func TestEvaluateEmptyDocuments(t *testing.T) {
	ctx := &Context{Name: "CNN"}

	andDoc := &FolderRules{GroupLogic: LogicAnd}
	if !Evaluate(andDoc, ctx) {
		t.Error("AND over an empty group list must be vacuously true")
	}

	orDoc := &FolderRules{GroupLogic: LogicOr}
	if Evaluate(orDoc, ctx) {
		t.Error("OR over an empty group list must be vacuously false")
	}

	andGroup := &FolderRules{GroupLogic: LogicAnd, Groups: []Group{{Logic: LogicAnd}}}
	if !Evaluate(andGroup, ctx) {
		t.Error("AND over an empty condition list must be vacuously true")
	}

	orGroup := &FolderRules{GroupLogic: LogicAnd, Groups: []Group{{Logic: LogicOr}}}
	if Evaluate(orGroup, ctx) {
		t.Error("OR over an empty condition list must be vacuously false")
	}
}

func TestOperatorTruthTable(t *testing.T) {
	present := &Context{Name: "Sky Sports News", Group: "Sports"}
	absent := &Context{Name: "Sky Sports News"} // group missing

	cases := []struct {
		name string
		cond Condition
		ctx  *Context
		want bool
	}{
		{"equals match", cond(FieldGroup, OpEquals, "sports"), present, true},
		{"equals case-insensitive", cond(FieldGroup, OpEquals, "SPORTS"), present, true},
		{"equals mismatch", cond(FieldGroup, OpEquals, "news"), present, false},
		{"equals absent field", cond(FieldGroup, OpEquals, "sports"), absent, false},
		{"not-equals mismatch", cond(FieldGroup, OpNotEquals, "news"), present, true},
		{"not-equals match", cond(FieldGroup, OpNotEquals, "sports"), present, false},
		{"not-equals absent field", cond(FieldGroup, OpNotEquals, "sports"), absent, true},

		{"contains match", cond(FieldName, OpContains, "sports"), present, true},
		{"contains mismatch", cond(FieldName, OpContains, "movies"), present, false},
		{"contains absent field", cond(FieldGroup, OpContains, "sp"), absent, false},
		{"not-contains mismatch", cond(FieldName, OpNotContains, "movies"), present, true},
		{"not-contains absent field", cond(FieldGroup, OpNotContains, "sp"), absent, true},

		{"starts-with match", cond(FieldName, OpStartsWith, "sky"), present, true},
		{"starts-with mismatch", cond(FieldName, OpStartsWith, "bbc"), present, false},
		{"starts-with absent field", cond(FieldGroup, OpStartsWith, "sp"), absent, false},
		{"ends-with match", cond(FieldName, OpEndsWith, "news"), present, true},
		{"ends-with absent field", cond(FieldGroup, OpEndsWith, "ts"), absent, false},

		{"is-empty on absent field", cond(FieldGroup, OpIsEmpty, ""), absent, true},
		{"is-empty on present field", cond(FieldGroup, OpIsEmpty, ""), present, false},
		{"is-not-empty on present field", cond(FieldGroup, OpIsNotEmpty, ""), present, true},
		{"is-not-empty on absent field", cond(FieldGroup, OpIsNotEmpty, ""), absent, false},
	}

	for _, c := range cases {
		got := Evaluate(singleRule(c.cond), c.ctx)
		if got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSetMembershipOperators(t *testing.T) {
	ctx := &Context{Country: "UK"}
	noCountry := &Context{}

	inCond := Condition{Field: FieldCountry, Operator: OpIn, Values: []string{"uk", "us"}}
	if !Evaluate(singleRule(inCond), ctx) {
		t.Error("in should match a set member case-insensitively")
	}
	if Evaluate(singleRule(inCond), noCountry) {
		t.Error("in should be false for an absent field")
	}

	notInCond := Condition{Field: FieldCountry, Operator: OpNotIn, Values: []string{"de", "fr"}}
	if !Evaluate(singleRule(notInCond), ctx) {
		t.Error("not-in should be true for a non-member")
	}
	if !Evaluate(singleRule(notInCond), noCountry) {
		t.Error("not-in should be true for an absent field")
	}
}

func TestBooleanFlagOperators(t *testing.T) {
	fav := &Context{IsFavorite: true}
	notFav := &Context{IsFavorite: false}

	if !Evaluate(singleRule(cond(FieldIsFavorite, OpIsTrue, "")), fav) {
		t.Error("is-true should match a set favorite flag")
	}
	if Evaluate(singleRule(cond(FieldIsFavorite, OpIsTrue, "")), notFav) {
		t.Error("is-true should not match an unset favorite flag")
	}
	if !Evaluate(singleRule(cond(FieldIsFavorite, OpIsFalse, "")), notFav) {
		t.Error("is-false should match an unset favorite flag")
	}

	// Boolean flags render as literal strings, so equals works too.
	if !Evaluate(singleRule(cond(FieldIsHidden, OpEquals, "false")), fav) {
		t.Error("equals against 'false' should match an unset hidden flag")
	}
}

func TestHealthStatusDegradesToAbsent(t *testing.T) {
	// When stream context is omitted for performance, health conditions see
	// an absent field.
	noHealth := &Context{Name: "CNN"}

	if Evaluate(singleRule(cond(FieldHealthStatus, OpEquals, "ok")), noHealth) {
		t.Error("Missing health context must not equal 'ok'")
	}
	if !Evaluate(singleRule(cond(FieldHealthStatus, OpIsEmpty, "")), noHealth) {
		t.Error("Missing health context should count as empty")
	}

	withHealth := &Context{Name: "CNN", HealthStatus: "ok"}
	if !Evaluate(singleRule(cond(FieldHealthStatus, OpEquals, "OK")), withHealth) {
		t.Error("Health status comparison should be case-insensitive")
	}
}

func TestGroupCombinators(t *testing.T) {
	ctx := &Context{Name: "BBC One", Group: "Entertainment", Country: "UK"}

	doc := &FolderRules{
		GroupLogic: LogicOr,
		Groups: []Group{
			{
				Logic: LogicAnd,
				Conditions: []Condition{
					cond(FieldGroup, OpEquals, "sports"), // false
					cond(FieldCountry, OpEquals, "uk"),   // true
				},
			},
			{
				Logic: LogicOr,
				Conditions: []Condition{
					cond(FieldName, OpStartsWith, "bbc"), // true
					cond(FieldGroup, OpEquals, "news"),   // false
				},
			},
		},
	}

	// First group: AND(false, true) = false; second: OR(true, false) = true;
	// document: OR(false, true) = true.
	if !Evaluate(doc, ctx) {
		t.Error("Expected OR of groups to match")
	}

	doc.GroupLogic = LogicAnd
	if Evaluate(doc, ctx) {
		t.Error("Expected AND of groups not to match")
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	type ch struct {
		name  string
		group string
	}
	channels := []ch{
		{"Alpha News", "News"},
		{"Beta Sports", "Sports"},
		{"Gamma News", "News"},
		{"Delta Movies", "Movies"},
	}

	doc := singleRule(cond(FieldGroup, OpEquals, "news"))

	matched := Filter(doc, channels, func(c ch) *Context {
		return &Context{Name: c.name, Group: c.group}
	})

	if len(matched) != 2 {
		t.Fatalf("Expected 2 matches, got: %d", len(matched))
	}
	if matched[0].name != "Alpha News" || matched[1].name != "Gamma News" {
		t.Errorf("Filter must preserve input order, got: %v", matched)
	}
}

func TestRuleDocumentRoundTrip(t *testing.T) {
	doc := &FolderRules{
		GroupLogic: LogicOr,
		Groups: []Group{
			{
				Logic: LogicAnd,
				Conditions: []Condition{
					{Field: FieldGroup, Operator: OpEquals, Value: "Sports"},
					{Field: FieldCountry, Operator: OpIn, Values: []string{"UK", "US"}},
				},
			},
		},
	}

	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.GroupLogic != LogicOr {
		t.Errorf("Expected group logic OR, got: %s", decoded.GroupLogic)
	}
	if len(decoded.Groups) != 1 || len(decoded.Groups[0].Conditions) != 2 {
		t.Fatalf("Unexpected decoded structure: %+v", decoded)
	}
	if decoded.Groups[0].Conditions[1].Values[1] != "US" {
		t.Errorf("Value set did not survive the round trip: %+v", decoded.Groups[0].Conditions[1])
	}
}
