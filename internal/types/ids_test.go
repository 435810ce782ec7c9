package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID()
	require.NoError(t, id.Validate())
	assert.NotEqual(t, NewID(), id)
}

func TestParseID(t *testing.T) {
	id := NewID()

	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("")
	assert.Error(t, err)

	_, err = ParseID("not-a-uuid")
	assert.Error(t, err)
}

func TestIDJSONRoundTrip(t *testing.T) {
	id := NewID()

	data, err := json.Marshal(id)
	require.NoError(t, err)

	var out ID
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, id, out)
}

func TestIDUnmarshalAcceptsStepIdentifiers(t *testing.T) {
	// Planner-produced step IDs are short strings, not UUIDs.
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`"1"`), &id))
	assert.Equal(t, ID("1"), id)
	assert.False(t, id.IsZero())
}
