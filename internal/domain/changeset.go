package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Field identifies one editable field of a Project.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCategory    Field = "category"
	FieldTechStack   Field = "tech_stack"
	FieldRepoURL     Field = "repo_url"
	FieldDemoURL     Field = "demo_url"
	FieldCourse      Field = "course"
	FieldSemester    Field = "semester"
)

// ValueKind tags which arm of FieldValue is populated.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindList   ValueKind = "list"
)

type fieldSpec struct {
	Label string
	Kind  ValueKind
	get   func(*Project) FieldValue
	set   func(*Project, FieldValue)
}

// fieldOrder fixes the iteration order for diffing and rendering.
var fieldOrder = []Field{
	FieldTitle,
	FieldDescription,
	FieldCategory,
	FieldTechStack,
	FieldRepoURL,
	FieldDemoURL,
	FieldCourse,
	FieldSemester,
}

var fieldRegistry = map[Field]fieldSpec{
	FieldTitle: {
		Label: "Title", Kind: KindString,
		get: func(p *Project) FieldValue { return StringValue(p.Title) },
		set: func(p *Project, v FieldValue) { p.Title = v.Str },
	},
	FieldDescription: {
		Label: "Description", Kind: KindString,
		get: func(p *Project) FieldValue { return StringValue(p.Description) },
		set: func(p *Project, v FieldValue) { p.Description = v.Str },
	},
	FieldCategory: {
		Label: "Category", Kind: KindString,
		get: func(p *Project) FieldValue { return StringValue(p.Category) },
		set: func(p *Project, v FieldValue) { p.Category = v.Str },
	},
	FieldTechStack: {
		// Lists compare whole-value and order-sensitive; a reorder in the
		// editor counts as a change.
		Label: "Tech Stack", Kind: KindList,
		get: func(p *Project) FieldValue { return ListValue(p.TechStack) },
		set: func(p *Project, v FieldValue) { p.TechStack = StringList(v.List) },
	},
	FieldRepoURL: {
		Label: "Repository URL", Kind: KindString,
		get: func(p *Project) FieldValue { return StringValue(p.RepoURL) },
		set: func(p *Project, v FieldValue) { p.RepoURL = v.Str },
	},
	FieldDemoURL: {
		Label: "Demo URL", Kind: KindString,
		get: func(p *Project) FieldValue { return StringValue(p.DemoURL) },
		set: func(p *Project, v FieldValue) { p.DemoURL = v.Str },
	},
	FieldCourse: {
		Label: "Course", Kind: KindString,
		get: func(p *Project) FieldValue { return StringValue(p.Course) },
		set: func(p *Project, v FieldValue) { p.Course = v.Str },
	},
	FieldSemester: {
		Label: "Semester", Kind: KindString,
		get: func(p *Project) FieldValue { return StringValue(p.Semester) },
		set: func(p *Project, v FieldValue) { p.Semester = v.Str },
	},
}

// KnownField reports whether f exists on the canonical record.
func KnownField(f Field) bool {
	_, ok := fieldRegistry[f]
	return ok
}

// FieldLabel returns the human label for a field, or the raw identifier for
// unknown fields.
func FieldLabel(f Field) string {
	if spec, ok := fieldRegistry[f]; ok {
		return spec.Label
	}
	return string(f)
}

// FieldValue is a tagged union holding either a string or a string list,
// depending on Kind.
type FieldValue struct {
	Kind ValueKind `json:"kind"`
	Str  string    `json:"str,omitempty"`
	List []string  `json:"list,omitempty"`
}

func StringValue(s string) FieldValue {
	return FieldValue{Kind: KindString, Str: s}
}

func ListValue(l []string) FieldValue {
	return FieldValue{Kind: KindList, List: l}
}

// Equal compares two values. Lists are compared element-wise in order.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindString {
		return v.Str == o.Str
	}
	if len(v.List) != len(o.List) {
		return false
	}
	for i := range v.List {
		if v.List[i] != o.List[i] {
			return false
		}
	}
	return true
}

// Render formats a value for proposal descriptions. Lists join with commas,
// strings longer than 50 characters truncate to 47 plus an ellipsis.
// Lengths are counted in runes so multibyte values never split mid-character.
func (v FieldValue) Render() string {
	s := v.Str
	if v.Kind == KindList {
		s = strings.Join(v.List, ", ")
	}
	if runes := []rune(s); len(runes) > 50 {
		return string(runes[:47]) + "..."
	}
	return s
}

// FieldChange is one entry of a ChangeSet: the baseline value observed at
// diff time and the proposed replacement.
type FieldChange struct {
	Field Field      `json:"field"`
	Old   FieldValue `json:"old"`
	New   FieldValue `json:"new"`
}

// ChangeSet is an ordered list of field changes, one entry per field.
type ChangeSet []FieldChange

// Fields returns the changed field identifiers in changeset order.
func (cs ChangeSet) Fields() []Field {
	fields := make([]Field, 0, len(cs))
	for _, c := range cs {
		fields = append(fields, c.Field)
	}
	return fields
}

// Validate checks that every entry references a known field, carries the
// field's value kind on both sides, and appears at most once.
func (cs ChangeSet) Validate() error {
	seen := make(map[Field]bool, len(cs))
	for _, c := range cs {
		spec, ok := fieldRegistry[c.Field]
		if !ok {
			return fmt.Errorf("unknown field %q", c.Field)
		}
		if c.Old.Kind != spec.Kind || c.New.Kind != spec.Kind {
			return fmt.Errorf("field %q expects %s values", c.Field, spec.Kind)
		}
		if seen[c.Field] {
			return fmt.Errorf("field %q appears more than once", c.Field)
		}
		seen[c.Field] = true
	}
	return nil
}

// ApplyTo writes every entry's new value onto the project. Callers are
// responsible for persisting the result atomically.
func (cs ChangeSet) ApplyTo(p *Project) {
	for _, c := range cs {
		if spec, ok := fieldRegistry[c.Field]; ok {
			spec.set(p, c.New)
		}
	}
}

// DetectChanges computes a fresh field-level diff of draft against baseline.
// A field edited earlier but reverted to its baseline value produces no entry.
func DetectChanges(baseline, draft *Project) ChangeSet {
	var cs ChangeSet
	for _, f := range fieldOrder {
		spec := fieldRegistry[f]
		oldV := spec.get(baseline)
		newV := spec.get(draft)
		if !oldV.Equal(newV) {
			cs = append(cs, FieldChange{Field: f, Old: oldV, New: newV})
		}
	}
	return cs
}

// ColumnUpdates maps changeset entries onto column updates for the projects
// table. Field identifiers match column names by construction.
func (cs ChangeSet) ColumnUpdates() map[string]any {
	updates := make(map[string]any, len(cs)+2)
	for _, c := range cs {
		if c.New.Kind == KindList {
			updates[string(c.Field)] = StringList(c.New.List)
		} else {
			updates[string(c.Field)] = c.New.Str
		}
	}
	return updates
}

// StringList stores a []string as a jsonb column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("cannot scan %T into StringList", src)
}

// Value / Scan let GORM persist a ChangeSet as a jsonb column.
func (cs ChangeSet) Value() (driver.Value, error) {
	if cs == nil {
		cs = ChangeSet{}
	}
	return json.Marshal(cs)
}

func (cs *ChangeSet) Scan(src any) error {
	if src == nil {
		*cs = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, cs)
	case string:
		return json.Unmarshal([]byte(v), cs)
	}
	return fmt.Errorf("cannot scan %T into ChangeSet", src)
}
