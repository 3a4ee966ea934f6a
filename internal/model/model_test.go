package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPageTypeRoundTrip(t *testing.T) {
	for _, typ := range QuestionTypes() {
		t.Run(typ.String(), func(t *testing.T) {
			if got := TypeOf(CodeOf(typ.String())); got != typ {
				t.Errorf("TypeOf(CodeOf(%q)) = %v, want %v", typ.String(), got, typ)
			}
			if got := TypeOf(typ.Code()); got != typ {
				t.Errorf("TypeOf(%d) = %v, want %v", typ.Code(), got, typ)
			}
		})
	}
}

func TestPageTypeCodes(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"shortanswer", 1},
		{"truefalse", 2},
		{"multichoice", 3},
		{"matching", 5},
		{"numerical", 8},
		{"essay", 10},
		{"lessonpage", 20},
		{"endofbranch", 21},
		{"cluster", 30},
		{"endofcluster", 31},
		{"calculated", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := CodeOf(tt.name); got != tt.want {
			t.Errorf("CodeOf(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestTypeOfUnknown(t *testing.T) {
	for _, code := range []int{0, 4, 99, -1} {
		if got := TypeOf(code); got != TypeUnknown {
			t.Errorf("TypeOf(%d) = %v, want TypeUnknown", code, got)
		}
	}
	if TypeUnknown.String() != "unknown" {
		t.Errorf("TypeUnknown.String() = %q", TypeUnknown.String())
	}
}

func TestIsPlainPage(t *testing.T) {
	if !IsPlainPage(20) {
		t.Error("IsPlainPage(20) = false, want true")
	}
	for _, code := range []int{1, 3, 21, 30, 0} {
		if IsPlainPage(code) {
			t.Errorf("IsPlainPage(%d) = true, want false", code)
		}
	}
}

func TestJumpTarget(t *testing.T) {
	tests := []struct {
		name      string
		jump      JumpTarget
		wantNamed bool
		wantKnown bool
		wantStr   string
	}{
		{"this page", Named(JumpThisPage), true, true, "thispage"},
		{"next page", JumpFromCode(-1), true, true, "nextpage"},
		{"previous page", Named(JumpPreviousPage), true, true, "previouspage"},
		{"end of lesson", JumpFromCode(-9), true, true, "endoflesson"},
		{"legacy negative code", JumpFromCode(-50), true, false, "-50"},
		{"page id", PageID(7), false, false, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.jump.IsNamed(); got != tt.wantNamed {
				t.Errorf("IsNamed() = %v, want %v", got, tt.wantNamed)
			}
			if _, ok := tt.jump.NamedJump(); ok != tt.wantKnown {
				t.Errorf("NamedJump() ok = %v, want %v", ok, tt.wantKnown)
			}
			if got := tt.jump.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}

	id, ok := PageID(7).PageID()
	if !ok || id != 7 {
		t.Errorf("PageID(7).PageID() = %d, %v", id, ok)
	}
}

func TestParseJumpFragment(t *testing.T) {
	tests := []struct {
		fragment string
		want     int64
		ok       bool
	}{
		{"previouspage", -40, true},
		{"thispage", 0, true},
		{"12", 12, true},
		{"-9", -9, true},
		{"somewhere", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseJumpFragment(tt.fragment)
		if ok != tt.ok || (ok && got.Code() != tt.want) {
			t.Errorf("ParseJumpFragment(%q) = %d, %v; want %d, %v", tt.fragment, got.Code(), ok, tt.want, tt.ok)
		}
	}
}

func TestQuestionJSON(t *testing.T) {
	raw := `{"type":"multichoice","title":"Q1","stem":"<p>Pick</p>",
		"answers":[{"text":"A","score":1,"jump":"nextpage"},{"text":"B","score":0,"jump":12}]}`
	var q Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if q.Type != TypeMultiChoice {
		t.Errorf("Type = %v, want multichoice", q.Type)
	}
	if n, ok := q.Answers[0].Jump.NamedJump(); !ok || n != JumpNextPage {
		t.Errorf("answer 0 jump = %v", q.Answers[0].Jump)
	}
	if id, ok := q.Answers[1].Jump.PageID(); !ok || id != 12 {
		t.Errorf("answer 1 jump = %v", q.Answers[1].Jump)
	}

	out, err := json.Marshal(q.Answers[0])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"text":"A","score":1,"jump":"nextpage"}`; string(out) != want {
		t.Errorf("Marshal = %s, want %s", out, want)
	}

	if err := json.Unmarshal([]byte(`{"type":"calculated","title":"x"}`), &q); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestTypedAnswerViews(t *testing.T) {
	a := func(text string) Answer { return Answer{Text: text} }

	tf := Question{Type: TypeTrueFalse, Answers: []Answer{a("True"), a("False")}}
	view, err := tf.TrueFalseAnswers()
	if err != nil {
		t.Fatalf("TrueFalseAnswers: %v", err)
	}
	if view.Correct.Text != "True" || view.Incorrect.Text != "False" {
		t.Errorf("unexpected view %+v", view)
	}
	tf.Answers = tf.Answers[:1]
	if _, err := tf.TrueFalseAnswers(); !errors.Is(err, ErrInvalidQuestion) {
		t.Errorf("expected ErrInvalidQuestion, got %v", err)
	}

	m := Question{Type: TypeMatching, Answers: []Answer{a("ok"), a("no"), a("p1"), a("p2")}}
	mv, err := m.MatchingAnswers()
	if err != nil {
		t.Fatalf("MatchingAnswers: %v", err)
	}
	if len(mv.Pairs) != 2 || mv.Pairs[0].Text != "p1" {
		t.Errorf("unexpected pairs %+v", mv.Pairs)
	}
	m.Answers = m.Answers[:2]
	if _, err := m.MatchingAnswers(); !errors.Is(err, ErrInvalidQuestion) {
		t.Errorf("expected ErrInvalidQuestion, got %v", err)
	}

	e := Question{Type: TypeEssay}
	if _, err := e.EssayAnswer(); !errors.Is(err, ErrInvalidQuestion) {
		t.Errorf("expected ErrInvalidQuestion, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{"valid", Question{Type: TypeEssay, Title: "Essay"}, false},
		{"missing title", Question{Type: TypeEssay}, true},
		{"unknown type", Question{Type: QuestionType(4), Title: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidQuestion) {
				t.Errorf("expected ErrInvalidQuestion, got %v", err)
			}
		})
	}
}
