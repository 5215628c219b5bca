// Package quiz holds the multiple-choice question model shared by the
// authoring and play flows.
package quiz

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PrefixRight marks an authored answer as correct.
	PrefixRight = "right "
	// PrefixWrong marks an authored answer as incorrect.
	PrefixWrong = "wrong "

	prefixLen = 6
)

// ErrAnswerPrefix is returned when an authored answer lacks a right/wrong prefix.
var ErrAnswerPrefix = errors.New("quiz: answer must start with 'right ' or 'wrong '")

// Answer is one choice of a question.
type Answer struct {
	Text    string `json:"answer"`
	Correct bool   `json:"correct"`
}

// Question is a multiple-choice question with answers in display order.
type Question struct {
	Text    string   `json:"question"`
	Answers []Answer `json:"answers"`
}

// ParseAnswer turns an authoring message into an Answer. Text after the
// six-byte prefix is kept verbatim, surrounding whitespace included.
func ParseAnswer(raw string) (Answer, error) {
	switch {
	case strings.HasPrefix(raw, PrefixRight):
		return Answer{Text: raw[prefixLen:], Correct: true}, nil
	case strings.HasPrefix(raw, PrefixWrong):
		return Answer{Text: raw[prefixLen:], Correct: false}, nil
	}
	return Answer{}, ErrAnswerPrefix
}

// HasCorrectAnswer reports whether at least one answer is flagged correct.
func (q Question) HasCorrectAnswer() bool {
	for _, a := range q.Answers {
		if a.Correct {
			return true
		}
	}
	return false
}

// AnswerAt resolves a 1-based index as shown to users.
func (q Question) AnswerAt(index int) (Answer, bool) {
	i := index - 1
	if i < 0 || i >= len(q.Answers) {
		return Answer{}, false
	}
	return q.Answers[i], true
}

// Clone returns a copy that shares no backing array with q.
func (q Question) Clone() Question {
	out := Question{Text: q.Text}
	if q.Answers != nil {
		out.Answers = append([]Answer(nil), q.Answers...)
	}
	return out
}

// Format renders the question the way it is asked in a chat.
func (q Question) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You have asked for a question. Here is your question: %s\n", q.Text)
	b.WriteString("You have the following possibilities to answer:\n")
	for i, a := range q.Answers {
		fmt.Fprintf(&b, "Write !answer %d to answer: %s\n", i+1, a.Text)
	}
	return b.String()
}
