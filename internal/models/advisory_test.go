package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAdvisory_ValidPayload(t *testing.T) {
	a := ParseAdvisory([]byte(`{"advisory_level":"warning","confidence_adjustment":-5,"notes":"earnings this week"}`))
	assert.Equal(t, AdvisoryWarning, a.Level)
	assert.Equal(t, -5, a.ConfidenceAdjustment)
	assert.Equal(t, "earnings this week", a.Notes)
}

func TestParseAdvisory_ClampsAdjustment(t *testing.T) {
	a := ParseAdvisory([]byte(`{"advisory_level":"info","confidence_adjustment":50}`))
	assert.Equal(t, 10, a.ConfidenceAdjustment)

	a = ParseAdvisory([]byte(`{"advisory_level":"info","confidence_adjustment":-50}`))
	assert.Equal(t, -10, a.ConfidenceAdjustment)
}

func TestParseAdvisory_GarbageYieldsUnavailable(t *testing.T) {
	assert.Equal(t, AdvisoryUnavailable, ParseAdvisory([]byte(`not json at all`)).Level)
	assert.Equal(t, AdvisoryUnavailable, ParseAdvisory([]byte(`{"advisory_level":"approve_everything"}`)).Level)
}
