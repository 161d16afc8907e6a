package models

import "strings"

// Question is a registration survey question with the registrant's answer.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Mentions reports whether the question text contains any of words, case-insensitively.
func (q Question) Mentions(words ...string) bool {
	text := strings.ToLower(q.Question)
	for _, w := range words {
		if strings.Contains(text, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
