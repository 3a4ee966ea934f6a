package model

import (
	"fmt"
	"time"
)

// WildcardAnswer is the Lesson marker for the catch-all "all other answers"
// response of short-answer and numerical pages.
const WildcardAnswer = "@#wronganswer#@"

// ImageHandling selects how the renderer treats images in page content.
type ImageHandling string

const (
	// ImagesEmbedded inlines local images as base64 data URIs.
	ImagesEmbedded ImageHandling = "embedded"
	// ImagesReferenced leaves image URLs untouched.
	ImagesReferenced ImageHandling = "referenced"
)

// Lesson is a Lesson activity: an ordered set of pages.
type Lesson struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer is one candidate response of a question page. Score is the raw
// Lesson score, not a normalized grade.
type Answer struct {
	Text     string     `json:"text"`
	Score    float64    `json:"score"`
	Feedback string     `json:"feedback,omitempty"`
	Jump     JumpTarget `json:"jump"`
}

// Question is a Lesson page. Plain content pages are questions with a
// non-question Type; their answers are branch buttons.
type Question struct {
	ID           int64        `json:"id,omitempty"`
	LessonID     int64        `json:"lesson_id,omitempty"`
	Type         QuestionType `json:"type" validate:"pagetype"`
	Title        string       `json:"title" validate:"required,max=255"`
	Stem         string       `json:"stem"`
	Answers      []Answer     `json:"answers,omitempty" validate:"dive"`
	SingleAnswer bool         `json:"single_answer,omitempty"`
}

// TrueFalseAnswers is the fixed shape of a true/false question.
type TrueFalseAnswers struct {
	Correct   Answer
	Incorrect Answer
}

// MatchingAnswers is the fixed shape of a matching question: two feedback
// carriers followed by the match pairs (Text matched to Feedback).
type MatchingAnswers struct {
	Correct   Answer
	Incorrect Answer
	Pairs     []Answer
}

// TrueFalseAnswers returns the typed view of a true/false question.
func (q Question) TrueFalseAnswers() (TrueFalseAnswers, error) {
	if len(q.Answers) != 2 {
		return TrueFalseAnswers{}, fmt.Errorf("%w: truefalse needs exactly 2 answers, got %d",
			ErrInvalidQuestion, len(q.Answers))
	}
	return TrueFalseAnswers{Correct: q.Answers[0], Incorrect: q.Answers[1]}, nil
}

// MatchingAnswers returns the typed view of a matching question.
func (q Question) MatchingAnswers() (MatchingAnswers, error) {
	if len(q.Answers) < 3 {
		return MatchingAnswers{}, fmt.Errorf("%w: matching needs 2 feedback answers and at least 1 pair, got %d answers",
			ErrInvalidQuestion, len(q.Answers))
	}
	return MatchingAnswers{
		Correct:   q.Answers[0],
		Incorrect: q.Answers[1],
		Pairs:     q.Answers[2:],
	}, nil
}

// EssayAnswer returns the single scoring answer of an essay question.
func (q Question) EssayAnswer() (Answer, error) {
	if len(q.Answers) != 1 {
		return Answer{}, fmt.Errorf("%w: essay needs exactly 1 answer, got %d",
			ErrInvalidQuestion, len(q.Answers))
	}
	return q.Answers[0], nil
}

// ConvertConfig holds runtime conversion parameters set via CLI flags.
type ConvertConfig struct {
	Lang          string        // UI and label language
	ImageHandling ImageHandling // embedded or referenced
	ImageDir      string        // base directory for embedded images
	PluginName    string        // passed to the renderer
}
