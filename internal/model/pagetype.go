package model

import "fmt"

// QuestionType identifies a Lesson page type. Its value is the numeric
// page-type code stored with the page.
type QuestionType int

const (
	// TypeUnknown is returned for codes and names missing from the registry.
	TypeUnknown      QuestionType = 0
	TypeShortAnswer  QuestionType = 1
	TypeTrueFalse    QuestionType = 2
	TypeMultiChoice  QuestionType = 3
	TypeMatching     QuestionType = 5
	TypeNumerical    QuestionType = 8
	TypeEssay        QuestionType = 10
	TypeLessonPage   QuestionType = 20
	TypeBranchEnd    QuestionType = 21
	TypeClusterStart QuestionType = 30
	TypeClusterEnd   QuestionType = 31
)

var pageTypes = [...]struct {
	name string
	typ  QuestionType
}{
	{"shortanswer", TypeShortAnswer},
	{"truefalse", TypeTrueFalse},
	{"multichoice", TypeMultiChoice},
	{"matching", TypeMatching},
	{"numerical", TypeNumerical},
	{"essay", TypeEssay},
	{"lessonpage", TypeLessonPage},
	{"endofbranch", TypeBranchEnd},
	{"cluster", TypeClusterStart},
	{"endofcluster", TypeClusterEnd},
}

// QuestionTypes returns every registered page type in registry order.
func QuestionTypes() []QuestionType {
	out := make([]QuestionType, 0, len(pageTypes))
	for _, pt := range pageTypes {
		out = append(out, pt.typ)
	}
	return out
}

// CodeOf returns the page-type code registered for name, or 0.
func CodeOf(name string) int {
	for _, pt := range pageTypes {
		if pt.name == name {
			return int(pt.typ)
		}
	}
	return 0
}

// TypeOf returns the page type for code, or TypeUnknown.
func TypeOf(code int) QuestionType {
	for _, pt := range pageTypes {
		if int(pt.typ) == code {
			return pt.typ
		}
	}
	return TypeUnknown
}

// TypeNamed is TypeOf(CodeOf(name)).
func TypeNamed(name string) QuestionType {
	return TypeOf(CodeOf(name))
}

// IsPlainPage reports whether code is the plain lesson content page.
func IsPlainPage(code int) bool {
	return code == int(TypeLessonPage)
}

// Code returns the numeric page-type code.
func (t QuestionType) Code() int { return int(t) }

// String returns the registry name, or "unknown".
func (t QuestionType) String() string {
	for _, pt := range pageTypes {
		if pt.typ == t {
			return pt.name
		}
	}
	return "unknown"
}

// IsQuestion reports whether t is one of the six graded question types.
func (t QuestionType) IsQuestion() bool {
	switch t {
	case TypeShortAnswer, TypeTrueFalse, TypeMultiChoice, TypeMatching, TypeNumerical, TypeEssay:
		return true
	}
	return false
}

// MarshalText writes the registry name.
func (t QuestionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts a registry name.
func (t *QuestionType) UnmarshalText(text []byte) error {
	typ := TypeNamed(string(text))
	if typ == TypeUnknown {
		return fmt.Errorf("unknown page type %q", text)
	}
	*t = typ
	return nil
}
