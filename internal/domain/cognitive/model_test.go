package cognitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alzcare/alzcare/internal/platform/apperr"
)

func TestSessionFinish(t *testing.T) {
	score, spent := 9, 40

	s := &Session{Status: SessionInProgress}
	require.NoError(t, s.Finish(SessionCompleted, &score, &spent, fixedNow))
	assert.Equal(t, SessionCompleted, s.Status)
	assert.Equal(t, fixedNow, *s.CompletedAt)
	assert.Equal(t, fixedNow, *s.EndedAt)

	s = &Session{Status: SessionInProgress}
	require.NoError(t, s.Finish(SessionAbandoned, &score, &spent, fixedNow))
	assert.Nil(t, s.Score, "abandoning keeps no score")
	assert.Nil(t, s.CompletedAt)
	assert.Equal(t, 40, *s.TimeSpentSeconds)

	s = &Session{Status: SessionInProgress}
	err := s.Finish(SessionInProgress, nil, nil, fixedNow)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, SessionInProgress, s.Status)

	s = &Session{Status: SessionCompleted}
	assert.True(t, apperr.IsConflict(s.Finish(SessionAbandoned, nil, nil, fixedNow)))
}

func TestParseEnums_CaseInsensitive(t *testing.T) {
	typ, err := ParseActivityType(" attention ")
	require.NoError(t, err)
	assert.Equal(t, TypeAttention, typ)

	d, err := ParseDifficulty("Medium")
	require.NoError(t, err)
	assert.Equal(t, DifficultyMedium, d)

	_, err = ParseSessionStatus("paused")
	assert.True(t, apperr.IsValidation(err))
}
