package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()
	assert.NotEqual(t, a, b)
	assert.NoError(t, uuid.Validate(a))
	assert.Len(t, a, 36)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "6ba7b810", Short("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.Equal(t, "abc", Short("abc"))
}

func TestMatch(t *testing.T) {
	ids := []string{
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"6ba7b811-9dad-11d1-80b4-00c04fd430c8",
		"f47ac10b-58cc-4372-a567-0e02b2c3d479",
	}

	got, err := Match("f47a", ids)
	require.NoError(t, err)
	assert.Equal(t, ids[2], got)

	got, err = Match("6BA7B810", ids)
	require.NoError(t, err)
	assert.Equal(t, ids[0], got, "prefix match is case-insensitive")

	got, err = Match(ids[1], ids)
	require.NoError(t, err)
	assert.Equal(t, ids[1], got)
}

func TestMatch_Errors(t *testing.T) {
	ids := []string{
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"6ba7b811-9dad-11d1-80b4-00c04fd430c8",
	}

	_, err := Match("6ba7", ids)
	var amb *AmbiguousError
	require.ErrorAs(t, err, &amb)
	assert.Len(t, amb.Matches, 2)
	assert.Contains(t, err.Error(), "6ba7b810, 6ba7b811")

	_, err = Match("zzz", ids)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = Match("  ", ids)
	assert.Error(t, err)
}
