package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawEvent(t *testing.T) {
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	t.Run("snapshot with two hospitals", func(t *testing.T) {
		data := []byte(`{"timestamp":"2025-11-09T23:52:26","data":{"Toronto General (University Health Network)":"2 hr 22 min","Mount Sinai Hospital":"Not available"}}`)
		raw := RawEvent{Value: data, Headers: map[string]string{"source": "hlwiw"}}

		obs, err := ParseRawEvent(raw, loc)
		require.NoError(t, err)
		require.Len(t, obs, 2)

		expected := time.Date(2025, 11, 9, 23, 52, 26, 0, loc)
		byName := map[string]RawObservation{}
		for _, o := range obs {
			byName[o.HospitalName] = o
			assert.Equal(t, "hlwiw", o.SourceID)
			assert.True(t, expected.Equal(o.CollectedAt))
		}
		assert.Equal(t, "2 hr 22 min", byName["Toronto General (University Health Network)"].WaitText)
		assert.Equal(t, "Not available", byName["Mount Sinai Hospital"].WaitText)
	})

	t.Run("source field wins over header", func(t *testing.T) {
		data := []byte(`{"timestamp":"2025-11-09 23:52:26","source":"er_watch","data":{"Mount Sinai Hospital":"45 min"}}`)
		raw := RawEvent{Value: data, Headers: map[string]string{"source": "hlwiw"}}

		obs, err := ParseRawEvent(raw, loc)
		require.NoError(t, err)
		require.Len(t, obs, 1)
		assert.Equal(t, "er_watch", obs[0].SourceID)
	})

	t.Run("unparseable timestamp falls back to message time", func(t *testing.T) {
		msgTime := time.Date(2025, 11, 10, 4, 52, 26, 0, time.UTC)
		data := []byte(`{"timestamp":"last tuesday","data":{"Mount Sinai Hospital":"45 min"}}`)
		raw := RawEvent{Value: data, Timestamp: msgTime}

		obs, err := ParseRawEvent(raw, loc)
		require.NoError(t, err)
		require.Len(t, obs, 1)
		assert.True(t, msgTime.Equal(obs[0].CollectedAt))
		assert.Equal(t, loc, obs[0].CollectedAt.Location())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRawEvent(RawEvent{Value: []byte("{invalid")}, loc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse raw snapshot")
	})

	t.Run("empty snapshot", func(t *testing.T) {
		_, err := ParseRawEvent(RawEvent{Value: []byte(`{"timestamp":"2025-11-09T23:52:26","data":{}}`)}, loc)
		require.Error(t, err)
	})
}
