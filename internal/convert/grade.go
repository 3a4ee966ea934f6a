package convert

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pavelanni/lessonword/internal/model"
)

// GradedAnswer pairs an answer with its percentage grade (-100..100).
type GradedAnswer struct {
	Answer model.Answer
	Grade  float64
}

// Grading is the result of grading one question. DefaultMark is the raw
// score that maps to 100%.
type Grading struct {
	DefaultMark float64
	Answers     []GradedAnswer
}

// ComputeGrades normalizes the raw answer scores of q into percentage
// grades, using the rules of its question type.
func ComputeGrades(q model.Question) (Grading, error) {
	b, ok := behaviors[q.Type]
	if !ok {
		return Grading{Answers: ungraded(q.Answers)}, nil
	}
	return b.grade(q)
}

func ungraded(answers []model.Answer) []GradedAnswer {
	out := make([]GradedAnswer, len(answers))
	for i, a := range answers {
		out[i] = GradedAnswer{Answer: a}
	}
	return out
}

func gradeMultiChoice(q model.Question) (Grading, error) {
	if len(q.Answers) == 0 {
		return Grading{}, fmt.Errorf("%w: multichoice has no answers", model.ErrInvalidQuestion)
	}
	var mark float64
	incorrect := 0
	for _, a := range q.Answers {
		if a.Score > 0 {
			mark += a.Score
		} else {
			incorrect++
		}
	}
	if !q.SingleAnswer && incorrect == 0 {
		return Grading{}, fmt.Errorf("%w: multi-answer multichoice needs at least one incorrect answer to weight",
			model.ErrInvalidQuestion)
	}

	g := Grading{DefaultMark: mark, Answers: make([]GradedAnswer, len(q.Answers))}
	for i, a := range q.Answers {
		var grade float64
		switch {
		case q.SingleAnswer && a.Score > 0:
			grade = 100
		case q.SingleAnswer:
			grade = 0
		case a.Score > 0:
			grade = a.Score / mark * 100
		default:
			grade = -100 / float64(incorrect)
		}
		g.Answers[i] = GradedAnswer{Answer: a, Grade: grade}
	}
	return g, nil
}

// gradeBest grades short-answer and numerical pages against the best answer.
func gradeBest(q model.Question) (Grading, error) {
	if len(q.Answers) == 0 {
		return Grading{}, fmt.Errorf("%w: %s has no answers", model.ErrInvalidQuestion, q.Type)
	}
	mark := q.Answers[0].Score
	for _, a := range q.Answers[1:] {
		mark = math.Max(mark, a.Score)
	}

	g := Grading{DefaultMark: mark, Answers: make([]GradedAnswer, len(q.Answers))}
	for i, a := range q.Answers {
		var grade float64
		switch {
		case mark <= 0:
			grade = 0
		case a.Score == mark:
			grade = 100
		case a.Score > 0:
			grade = a.Score / mark * 100
		}
		g.Answers[i] = GradedAnswer{Answer: a, Grade: grade}
	}
	return g, nil
}

func gradeTrueFalse(q model.Question) (Grading, error) {
	tf, err := q.TrueFalseAnswers()
	if err != nil {
		return Grading{}, err
	}
	return Grading{
		DefaultMark: tf.Correct.Score,
		Answers: []GradedAnswer{
			{Answer: tf.Correct, Grade: 100},
			{Answer: tf.Incorrect, Grade: 0},
		},
	}, nil
}

func gradeEssay(q model.Question) (Grading, error) {
	a, err := q.EssayAnswer()
	if err != nil {
		return Grading{}, err
	}
	return Grading{DefaultMark: a.Score, Answers: []GradedAnswer{{Answer: a}}}, nil
}

// gradeMatching carries no per-answer grade: matching is all or nothing.
func gradeMatching(q model.Question) (Grading, error) {
	m, err := q.MatchingAnswers()
	if err != nil {
		return Grading{}, err
	}
	return Grading{DefaultMark: m.Correct.Score, Answers: ungraded(q.Answers)}, nil
}

// formatNumber renders a grade or mark with at most seven decimals.
func formatNumber(f float64) string {
	r := math.Round(f*1e7) / 1e7
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
