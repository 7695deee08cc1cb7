package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalStatuses(t *testing.T) {
	terminal := []JobStatus{JobStatusFailed, JobStatusValidated, JobStatusSubmitted}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), string(s))
	}
	open := []JobStatus{JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusValidating, JobStatusSubmitting}
	for _, s := range open {
		assert.False(t, s.Terminal(), string(s))
	}
}

func TestInFlightStatuses(t *testing.T) {
	assert.True(t, JobStatusProcessing.InFlight())
	assert.True(t, JobStatusValidating.InFlight())
	assert.True(t, JobStatusSubmitting.InFlight())
	assert.False(t, JobStatusPending.InFlight())
	assert.False(t, JobStatusCompleted.InFlight())
	assert.False(t, JobStatusFailed.InFlight())
}

func TestIsPrimaryArtifact(t *testing.T) {
	assert.True(t, IsPrimaryArtifact("i_investigation.txt"))
	assert.True(t, IsPrimaryArtifact("isatab_output.txt"))
	assert.False(t, IsPrimaryArtifact("s_study.txt"))
	assert.False(t, IsPrimaryArtifact("a_assay.txt"))
	assert.False(t, IsPrimaryArtifact("notes.txt"))
}
