package migrations

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_Embedded(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)

	assert.Equal(t, []uint{1, 2}, versions)
}

func TestSource_InitSchema(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	r, identifier, err := src.ReadUp(1)
	require.NoError(t, err)
	defer r.Close()
	body, err := io.ReadAll(r)
	require.NoError(t, err)

	assert.Equal(t, "init", identifier)
	assert.Contains(t, string(body), "WHERE status = 'approved'")
	assert.Contains(t, string(body), "UNIQUE (user_id, date, todo_item)")
}

func TestSource_EveryVersionHasDown(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	versions, err := Versions()
	require.NoError(t, err)
	for _, v := range versions {
		r, _, err := src.ReadDown(v)
		require.NoError(t, err, "version %d", v)
		r.Close()
	}
}

func TestCountBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to uint
		want     int
	}{
		{"fresh database", 0, 2, 2},
		{"one pending", 1, 2, 1},
		{"up to date", 2, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := countBetween(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
