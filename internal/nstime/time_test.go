package nstime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeArithmetic(t *testing.T) {
	start := NewTime[AudioSample](100)
	d := NewDuration[AudioSample](50)

	assert.Equal(t, int64(150), start.Plus(d).Value())
	assert.Equal(t, int64(50), start.Plus(d).MinusTime(start).Value())
	assert.True(t, start.Less(start.Plus(d)))
	assert.True(t, start.Plus(d).Greater(start))
}

func TestIntervalConstructionRejectsNegativeDuration(t *testing.T) {
	assert.Panics(t, func() {
		NewInterval(NewTime[AudioSample](0), NewDuration[AudioSample](-1))
	})
}

func TestIntervalIntersect(t *testing.T) {
	a := NewInterval(NewTime[AudioSample](0), NewDuration[AudioSample](10))
	b := NewInterval(NewTime[AudioSample](5), NewDuration[AudioSample](10))

	result := a.Intersect(b)
	require.False(t, result.IsEmpty())
	assert.Equal(t, int64(5), result.InitialTime().Value())
	assert.Equal(t, int64(5), result.IntervalDuration().Value())
}

func TestIntervalIntersectDisjointIsEmpty(t *testing.T) {
	a := NewInterval(NewTime[AudioSample](0), NewDuration[AudioSample](5))
	b := NewInterval(NewTime[AudioSample](10), NewDuration[AudioSample](5))

	assert.True(t, a.Intersect(b).IsEmpty())
}

func TestIntervalContains(t *testing.T) {
	iv := NewInterval(NewTime[AudioSample](10), NewDuration[AudioSample](5))

	assert.True(t, iv.Contains(NewTime[AudioSample](10)))
	assert.True(t, iv.Contains(NewTime[AudioSample](14)))
	assert.False(t, iv.Contains(NewTime[AudioSample](15)))
	assert.False(t, iv.Contains(NewTime[AudioSample](9)))
}

func TestIntervalSubintervalStartingAtRejectsOutOfRangeOffset(t *testing.T) {
	iv := NewInterval(NewTime[AudioSample](0), NewDuration[AudioSample](5))
	assert.Panics(t, func() {
		iv.SubintervalStartingAt(NewDuration[AudioSample](6))
	})
}

func TestContinuousDurationRejectsNegative(t *testing.T) {
	assert.Panics(t, func() {
		NewContinuousDuration[Beat](-0.5)
	})
}
