package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserBook(t *testing.T) {
	ub, err := NewUserBook(1, 2, StatusWantToRead)
	require.NoError(t, err)
	assert.Nil(t, ub.StartedAt)

	reading, err := NewUserBook(1, 3, StatusCurrentlyReading)
	require.NoError(t, err)
	assert.NotNil(t, reading.StartedAt, "CURRENTLY_READING démarre la lecture")

	_, err = NewUserBook(1, 4, "READING_MAYBE")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestChangeStatus_Milestones(t *testing.T) {
	ub, err := NewUserBook(1, 2, StatusWantToRead)
	require.NoError(t, err)

	require.NoError(t, ub.ChangeStatus(StatusCurrentlyReading, ""))
	require.NotNil(t, ub.StartedAt)
	started := *ub.StartedAt

	// started_at posé une seule fois
	require.NoError(t, ub.ChangeStatus(StatusWantToRead, ""))
	require.NoError(t, ub.ChangeStatus(StatusCurrentlyReading, ""))
	assert.Equal(t, started, *ub.StartedAt)

	require.NoError(t, ub.ChangeStatus(StatusRead, ""))
	assert.NotNil(t, ub.FinishedAt)
	assert.Nil(t, ub.DNFDate)
}

func TestChangeStatus_ReadWithoutStartBackfillsStartedAt(t *testing.T) {
	ub, err := NewUserBook(1, 2, StatusWantToRead)
	require.NoError(t, err)

	require.NoError(t, ub.ChangeStatus(StatusRead, ""))
	assert.NotNil(t, ub.StartedAt)
	assert.NotNil(t, ub.FinishedAt)
}

func TestChangeStatus_DNF(t *testing.T) {
	ub, err := NewUserBook(1, 2, StatusCurrentlyReading)
	require.NoError(t, err)

	require.NoError(t, ub.ChangeStatus(StatusDidNotFinish, "trop long"))
	assert.NotNil(t, ub.DNFDate)
	assert.Equal(t, "trop long", ub.DNFReason)
	assert.Nil(t, ub.FinishedAt)
}

func TestApplyProgress(t *testing.T) {
	ub, err := NewUserBook(1, 2, StatusCurrentlyReading)
	require.NoError(t, err)

	// pagesRead relatif
	require.NoError(t, ub.ApplyProgress(MethodPhysical, 30, 0, nil))
	assert.Equal(t, 30, ub.CurrentPage)

	require.NoError(t, ub.ApplyProgress(MethodEbook, 20, 0, nil))
	assert.Equal(t, 50, ub.CurrentPage)

	// endPage absolu prime
	require.NoError(t, ub.ApplyProgress(MethodPhysical, 10, 0, intPtr(200)))
	assert.Equal(t, 200, ub.CurrentPage)

	// minutes converties en secondes
	require.NoError(t, ub.ApplyProgress(MethodAudiobook, 0, 45, nil))
	assert.Equal(t, 45*60, ub.CurrentSeconds)

	assert.ErrorIs(t, ub.ApplyProgress(MethodPhysical, -1, 0, nil), ErrInvalidProgress)
	assert.ErrorIs(t, ub.ApplyProgress(MethodPhysical, 0, 0, intPtr(-3)), ErrInvalidProgress)
}

func TestApplyProgress_AudiobookLeavesPageAlone(t *testing.T) {
	ub, err := NewUserBook(1, 2, StatusCurrentlyReading)
	require.NoError(t, err)
	require.NoError(t, ub.ApplyProgress(MethodPhysical, 0, 0, intPtr(120)))

	// Une session audio avec une page de fin renseignée ne déplace pas le signet.
	require.NoError(t, ub.ApplyProgress(MethodAudiobook, 0, 30, intPtr(300)))
	assert.Equal(t, 120, ub.CurrentPage)
	assert.Equal(t, 30*60, ub.CurrentSeconds)
}

func TestEffectiveOverrides(t *testing.T) {
	ub, err := NewUserBook(1, 2, StatusCurrentlyReading)
	require.NoError(t, err)

	assert.Equal(t, 320, ub.EffectivePageCount(320))

	ub.PageCountOverride = intPtr(410)
	assert.Equal(t, 410, ub.EffectivePageCount(320))
}
