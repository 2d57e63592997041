package comparison

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/logging"
	"github.com/chainguard-dev/clog"
)

// MismatchError reports that the judge result does not hold exactly one
// usable verdict per course of the sample.
type MismatchError struct {
	QueryLogID     string
	MissingCodes   []string
	DuplicateCodes []string
	InvalidCodes   []string
}

func (e *MismatchError) Error() string {
	var parts []string
	if len(e.MissingCodes) > 0 {
		parts = append(parts, "missing verdicts for "+strings.Join(e.MissingCodes, ", "))
	}
	if len(e.DuplicateCodes) > 0 {
		parts = append(parts, "duplicate verdicts for "+strings.Join(e.DuplicateCodes, ", "))
	}
	if len(e.InvalidCodes) > 0 {
		parts = append(parts, "invalid verdicts for "+strings.Join(e.InvalidCodes, ", "))
	}
	return fmt.Sprintf("judge result for sample %s: %s", e.QueryLogID, strings.Join(parts, "; "))
}

// CompareSample pairs every course of the sample with its judge verdict. It
// never guesses: any course without exactly one PASS/FAIL verdict fails the
// whole sample with a *MismatchError.
func CompareSample(sample domain.EvaluationSample, result domain.JudgeResult) (domain.SampleEvaluationRecord, error) {
	byCode := make(map[string]domain.JudgeVerdict, len(result.Verdicts))
	seen := make(map[string]int, len(result.Verdicts))
	for _, v := range result.Verdicts {
		seen[v.Code]++
		if _, ok := byCode[v.Code]; !ok {
			byCode[v.Code] = v
		}
	}

	mismatch := &MismatchError{QueryLogID: sample.QueryLogID}
	for _, course := range sample.Courses {
		v, ok := byCode[course.SubjectCode]
		switch {
		case !ok:
			mismatch.MissingCodes = append(mismatch.MissingCodes, course.SubjectCode)
		case seen[course.SubjectCode] > 1:
			mismatch.DuplicateCodes = append(mismatch.DuplicateCodes, course.SubjectCode)
		case !v.Verdict.Valid():
			mismatch.InvalidCodes = append(mismatch.InvalidCodes, course.SubjectCode)
		}
	}
	if len(mismatch.MissingCodes)+len(mismatch.DuplicateCodes)+len(mismatch.InvalidCodes) > 0 {
		return domain.SampleEvaluationRecord{}, mismatch
	}

	record := domain.SampleEvaluationRecord{
		QueryLogID: sample.QueryLogID,
		Question:   sample.Question,
		Courses:    make([]domain.ComparisonRecord, 0, len(sample.Courses)),
		TokenUsage: result.TokenUsage,
	}
	for _, course := range sample.Courses {
		record.Courses = append(record.Courses, compareCourse(course, byCode[course.SubjectCode]))
	}

	return record, nil
}

func compareCourse(course domain.AggregatedCourse, verdict domain.JudgeVerdict) domain.ComparisonRecord {
	action, reason := course.SystemAction, course.SystemReason
	if action == "" {
		action = MapScoreToAction(course.SystemScore)
		reason = fmt.Sprintf("Score %d - %s", course.SystemScore, action)
	}

	outcomes := make([]string, 0, len(course.AllLearningOutcomes))
	for _, lo := range course.AllLearningOutcomes {
		outcomes = append(outcomes, lo.Name)
	}

	agreementType := DetermineAgreementType(action, verdict.Verdict)

	return domain.ComparisonRecord{
		SubjectCode:   course.SubjectCode,
		SubjectName:   course.SubjectName,
		Outcomes:      outcomes,
		MatchedSkills: course.MatchedSkills,
		System: domain.SystemDecision{
			Score:  course.SystemScore,
			Action: action,
			Reason: reason,
		},
		Judge: domain.JudgeDecision{
			Verdict: verdict.Verdict,
			Reason:  verdict.Reason,
		},
		Agreement:     agreementType.IsAgreement(),
		AgreementType: agreementType,
	}
}

// UnexpectedCodes returns verdict codes that match no course of the sample.
func UnexpectedCodes(sample domain.EvaluationSample, result domain.JudgeResult) []string {
	known := make(map[string]bool, len(sample.Courses))
	for _, c := range sample.Courses {
		known[c.SubjectCode] = true
	}

	var extra []string
	for _, v := range result.Verdicts {
		if !known[v.Code] {
			extra = append(extra, v.Code)
		}
	}
	return extra
}

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compare runs CompareSample and logs the outcome. Coverage violations are
// logged at critical level before the error is returned.
func (e *Engine) Compare(ctx context.Context, sample domain.EvaluationSample, result domain.JudgeResult) (domain.SampleEvaluationRecord, error) {
	record, err := CompareSample(sample, result)

	var mismatch *MismatchError
	if errors.As(err, &mismatch) {
		logging.Critical(ctx, "judge verdicts do not cover sample",
			"query_log_id", mismatch.QueryLogID,
			"missing_codes", mismatch.MissingCodes,
			"duplicate_codes", mismatch.DuplicateCodes,
			"invalid_codes", mismatch.InvalidCodes,
			"courses", len(sample.Courses),
			"verdicts", len(result.Verdicts),
		)
		return record, err
	}
	if err != nil {
		return record, err
	}

	if extra := UnexpectedCodes(sample, result); len(extra) > 0 {
		clog.FromContext(ctx).With("query_log_id", sample.QueryLogID).
			With("codes", extra).
			Warn("Judge returned verdicts for unknown courses")
	}

	return record, nil
}
