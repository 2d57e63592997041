package evaluator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
)

type MessageSanitizer struct {
	maxFieldLength    int
	maxOutcomesLength int
}

func NewMessageSanitizer() *MessageSanitizer {
	return &MessageSanitizer{
		maxFieldLength:    1000, // chars per question or outcome
		maxOutcomesLength: 3000, // chars of outcomes per course
	}
}

var injectionPatterns = []string{
	"ignore previous instructions",
	"ignore all previous",
	"disregard previous",
	"forget everything",
	"new instructions:",
	"system:",
	"assistant:",
	"[SYSTEM]",
	"[INST]",
	"[/INST]",
	"</s>",
	"<|im_start|>",
	"<|im_end|>",
	"<|endoftext|>",
	"<system>",
	"</system>",
	"<assistant>",
	"</assistant>",
}

// injectionRegexp matches every pattern case-insensitively on the original
// text, so offsets never depend on how lowercasing changes byte lengths.
var injectionRegexp = func() *regexp.Regexp {
	alts := make([]string, len(injectionPatterns))
	for i, p := range injectionPatterns {
		alts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}()

// Truncate keeps the head and tail of overly long text. Lengths count
// characters, and cuts never split a multi-byte character.
func (s *MessageSanitizer) Truncate(content string) string {
	if utf8.RuneCountInString(content) <= s.maxFieldLength {
		return content
	}

	const marker = " [...] "
	runes := []rune(content)
	keepStart := s.maxFieldLength * 6 / 10
	keepEnd := s.maxFieldLength - keepStart - len(marker)

	return string(runes[:keepStart]) + marker + string(runes[len(runes)-keepEnd:])
}

// Sanitize neutralizes prompt injection markers, case-insensitively.
func (s *MessageSanitizer) Sanitize(content string) string {
	return injectionRegexp.ReplaceAllLiteralString(content, "[SANITIZED]")
}

func (s *MessageSanitizer) Prepare(content string) string {
	return s.Truncate(s.Sanitize(strings.TrimSpace(content)))
}

// PrepareCourses returns sanitized copies of courses. Learning outcomes past
// the per-course budget are dropped; the courses themselves never are, since
// the judge must see every code.
func (s *MessageSanitizer) PrepareCourses(courses []domain.AggregatedCourse) []domain.AggregatedCourse {
	out := make([]domain.AggregatedCourse, 0, len(courses))
	for _, c := range courses {
		course := c
		course.SubjectName = s.Prepare(c.SubjectName)

		total := 0
		outcomes := make([]domain.LearningOutcome, 0, len(c.AllLearningOutcomes))
		for _, lo := range c.AllLearningOutcomes {
			name := s.Prepare(lo.Name)
			total += utf8.RuneCountInString(name)
			if total > s.maxOutcomesLength {
				break
			}
			outcomes = append(outcomes, domain.LearningOutcome{ID: lo.ID, Name: name})
		}
		course.AllLearningOutcomes = outcomes

		out = append(out, course)
	}
	return out
}
