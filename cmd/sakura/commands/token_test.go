package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreated(t *testing.T) {
	got, err := parseCreated("2021-04-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseCreated("2021-04-01T09:30:00+09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 4, 1, 0, 30, 0, 0, time.UTC), got.UTC())

	_, err = parseCreated("last spring")
	assert.Error(t, err)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0f8fad5b", shortID("0f8fad5b-d9cb-469f-a165-70867728950e"))
	assert.Equal(t, "w1", shortID("w1"))
}
