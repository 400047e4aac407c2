package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNewReadingSession_Validation(t *testing.T) {
	tests := []struct {
		name        string
		method      ReadingMethod
		pagesRead   int
		minutesRead int
		startPage   *int
		endPage     *int
		wantErr     error
	}{
		{
			name:      "physical with pages",
			method:    MethodPhysical,
			pagesRead: 20,
		},
		{
			name:    "physical with end page only",
			method:  MethodPhysical,
			endPage: intPtr(120),
		},
		{
			name:    "physical with nothing read",
			method:  MethodPhysical,
			wantErr: ErrInvalidSession,
		},
		{
			name:        "audiobook with minutes",
			method:      MethodAudiobook,
			minutesRead: 45,
		},
		{
			name:      "audiobook without minutes",
			method:    MethodAudiobook,
			pagesRead: 30,
			wantErr:   ErrInvalidSession,
		},
		{
			name:      "end page before start page",
			method:    MethodEbook,
			pagesRead: 10,
			startPage: intPtr(100),
			endPage:   intPtr(90),
			wantErr:   ErrInvalidSession,
		},
		{
			name:      "end page equals start page",
			method:    MethodEbook,
			pagesRead: 10,
			startPage: intPtr(50),
			endPage:   intPtr(50),
			wantErr:   ErrInvalidSession,
		},
		{
			name:      "negative pages",
			method:    MethodPhysical,
			pagesRead: -5,
			wantErr:   ErrInvalidSession,
		},
		{
			name:    "unknown method",
			method:  "BRAILLE",
			wantErr: ErrInvalidMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := NewReadingSession(1, 2, tt.method, tt.pagesRead, tt.minutesRead, tt.startPage, tt.endPage, time.Time{}, "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), sess.UserID)
			assert.False(t, sess.SessionDate.IsZero(), "défaut = maintenant")
		})
	}
}

func TestNewReadingSession_RejectsFarFuture(t *testing.T) {
	future := time.Now().UTC().Add(48 * time.Hour)

	_, err := NewReadingSession(1, 2, MethodPhysical, 10, 0, nil, nil, future, "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestReadingSession_Day(t *testing.T) {
	sess, err := NewReadingSession(1, 2, MethodEbook, 10, 0, nil, nil,
		time.Date(2025, 3, 14, 23, 50, 0, 0, time.UTC), "")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), sess.Day())
}
