package llm

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxQuestionLen = 2000

var (
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrQuestionTooLong  = errors.New("question is too long")
	ErrQuestionRejected = errors.New("question looks like an instruction override")
)

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`forget\s+(everything|all)|new\s+instructions)`,
)

// ValidateQuestion trims a user question and rejects empty, oversized or
// prompt-override questions.
func ValidateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	switch {
	case q == "":
		return "", ErrEmptyQuestion
	case utf8.RuneCountInString(q) > maxQuestionLen:
		return "", ErrQuestionTooLong
	case injectionPattern.MatchString(q):
		return "", ErrQuestionRejected
	}
	return q, nil
}

var codeBlockRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// cleanResponse trims model output and unwraps a response that arrived as a
// single fenced code block.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
