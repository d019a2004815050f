package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonNullScoreDistinguishesNullFromZero(t *testing.T) {
	var unscored, zero JsonNullScore
	require.NoError(t, json.Unmarshal([]byte("null"), &unscored))
	require.NoError(t, json.Unmarshal([]byte("0"), &zero))

	assert.False(t, unscored.Valid)
	assert.Nil(t, unscored.Ptr())
	assert.True(t, zero.Valid)
	require.NotNil(t, zero.Ptr())
	assert.Equal(t, 0.0, *zero.Ptr())

	out, err := json.Marshal(Prompt{QualityScore: NewScore(7.25)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"qualityScore":7.3`)

	out, err = json.Marshal(Prompt{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"qualityScore":null`)
}

func TestJsonNullString(t *testing.T) {
	var s JsonNullString
	require.NoError(t, json.Unmarshal([]byte(`"notes"`), &s))
	assert.Equal(t, NewJsonNullString("notes"), s)
	assert.Error(t, json.Unmarshal([]byte(`12`), &s))
	assert.False(t, NewJsonNullString("").Valid)
}
