package meta

import (
	"testing"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepLadder(t *testing.T) {
	courses := []domain.ComparisonRecord{
		comparisonRecord("A", 0, domain.VerdictFail),
		comparisonRecord("B", 1, domain.VerdictFail),
		comparisonRecord("C", 2, domain.VerdictPass),
		comparisonRecord("D", 3, domain.VerdictPass),
	}

	rows := Sweep(courses, DefaultThresholds())
	require.Len(t, rows, 4)

	keepAll, top := rows[0], rows[3]
	assert.Equal(t, "keepAll", keepAll.Label)
	assert.Equal(t, 4, keepAll.CoursesKept)
	assert.InDelta(t, 0.5, keepAll.Precision.Value, 1e-9)
	assert.Equal(t, 1.0, keepAll.Recall.Value)

	assert.Equal(t, "score>=3", top.Label)
	assert.Equal(t, 1, top.CoursesKept)
	assert.Equal(t, 1.0, top.Precision.Value)
	assert.Equal(t, 0.5, top.Recall.Value)
	assert.InDelta(t, 2.0/3.0, top.F1, 1e-9)
}

func TestSweepMonotonic(t *testing.T) {
	var courses []domain.ComparisonRecord
	for s := domain.Score(0); s <= domain.MaxScore; s++ {
		// Pass probability rises with the score: s passes out of 3.
		for i := 0; i < 3; i++ {
			v := domain.VerdictFail
			if i < int(s) {
				v = domain.VerdictPass
			}
			courses = append(courses, comparisonRecord("c", s, v))
		}
	}

	rows := Sweep(courses, DefaultThresholds())
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i].Precision.Value, rows[i-1].Precision.Value, rows[i].Label)
		assert.LessOrEqual(t, rows[i].Recall.Value, rows[i-1].Recall.Value, rows[i].Label)
	}
}

func TestSweepNoPasses(t *testing.T) {
	courses := []domain.ComparisonRecord{
		comparisonRecord("A", 3, domain.VerdictFail),
	}

	rows := Sweep(courses, []Threshold{{Label: "keepAll"}})

	assert.Equal(t, domain.Ratio{Value: 0, Numerator: 0, Denominator: 1}, rows[0].Precision)
	assert.Equal(t, domain.Ratio{}, rows[0].Recall)
	assert.Zero(t, rows[0].F1)
}
