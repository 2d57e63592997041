// Package comparison reconciles graded filter decisions with binary judge
// verdicts.
package comparison

import (
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
)

// MapScoreToAction drops score 0 and keeps 1 through 3. Scores outside 0-3
// are rejected when the test set is loaded.
func MapScoreToAction(score domain.Score) domain.Action {
	if score <= 0 {
		return domain.ActionDrop
	}
	return domain.ActionKeep
}

func DetermineAgreementType(action domain.Action, verdict domain.Verdict) domain.AgreementType {
	switch {
	case action == domain.ActionDrop && verdict == domain.VerdictFail:
		return domain.AgreementBothDrop
	case action == domain.ActionKeep && verdict == domain.VerdictPass:
		return domain.AgreementBothKeep
	case action == domain.ActionDrop:
		return domain.AgreementConservativeDrop
	default:
		return domain.AgreementExploratoryDelta
	}
}
