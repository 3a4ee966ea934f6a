// Package qxml models the Moodle Question XML dialect exchanged between the
// converter and the markup renderer.
package qxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoQuestion is returned when a document has no question element.
var ErrNoQuestion = errors.New("no question element")

// Container wraps a quiz with the localized labels the renderer needs.
type Container struct {
	XMLName xml.Name `xml:"container"`
	Quiz    Quiz     `xml:"quiz"`
	Labels  Labels   `xml:"moodlelabels"`
}

// Quiz is a list of questions.
type Quiz struct {
	XMLName   xml.Name   `xml:"quiz"`
	Questions []Question `xml:"question"`
}

// Labels carries localized strings keyed by name.
type Labels struct {
	Data []Label `xml:"data"`
}

// Label is one localized string.
type Label struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

// Get returns the label value for name, or name itself.
func (l Labels) Get(name string) string {
	for _, d := range l.Data {
		if d.Name == name {
			return d.Value
		}
	}
	return name
}

// FormattedText is a text element with a format attribute.
type FormattedText struct {
	Format string `xml:"format,attr,omitempty"`
	Text   string `xml:"text"`
}

// Question is a single question element.
type Question struct {
	XMLName           xml.Name       `xml:"question"`
	Type              string         `xml:"type,attr"`
	Name              *FormattedText `xml:"name"`
	QuestionText      *FormattedText `xml:"questiontext"`
	DefaultGrade      string         `xml:"defaultgrade,omitempty"`
	Single            string         `xml:"single,omitempty"`
	UseCase           string         `xml:"usecase,omitempty"`
	CorrectFeedback   *FormattedText `xml:"correctfeedback"`
	IncorrectFeedback *FormattedText `xml:"incorrectfeedback"`
	GraderInfo        *FormattedText `xml:"graderinfo"`
	Answers           []Answer       `xml:"answer"`
	Subquestions      []Subquestion  `xml:"subquestion"`
}

// Answer is an answer element with its grade as a percentage fraction.
type Answer struct {
	Fraction  string         `xml:"fraction,attr"`
	Format    string         `xml:"format,attr,omitempty"`
	Text      string         `xml:"text"`
	Tolerance string         `xml:"tolerance,omitempty"`
	Feedback  *FormattedText `xml:"feedback"`
}

// Subquestion is a matching pair.
type Subquestion struct {
	Format string `xml:"format,attr,omitempty"`
	Text   string `xml:"text"`
	Answer string `xml:"answer>text"`
}

// FindQuestion walks the document to the first question element and
// decodes it, wherever it is nested.
func FindQuestion(doc string) (*Question, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, ErrNoQuestion
		}
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(se.Name.Local, "question") {
			continue
		}
		var q Question
		if err := dec.DecodeElement(&q, &se); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		return &q, nil
	}
}

// ParseContainer decodes a container document.
func ParseContainer(doc string) (*Container, error) {
	var c Container
	if err := xml.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("decode container: %w", err)
	}
	return &c, nil
}

// Marshal encodes v with an XML header.
func Marshal(v any) (string, error) {
	b, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(b), nil
}
