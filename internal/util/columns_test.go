package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLettersToIndex(t *testing.T) {
	cases := map[string]int{
		"A":   0,
		"B":   1,
		"Z":   25,
		"AA":  26,
		"AZ":  51,
		"BA":  52,
		"ZZ":  701,
		"AAA": 702,
		"b":   1,
	}
	for letters, want := range cases {
		got, err := ColumnLettersToIndex(letters)
		require.NoError(t, err, letters)
		assert.Equal(t, want, got, letters)
	}
}

func TestColumnLettersRoundTrip(t *testing.T) {
	// ZZZZZZ is the largest six letter designator.
	limit, err := ColumnLettersToIndex("ZZZZZZ")
	require.NoError(t, err)
	require.Equal(t, 321272405, limit)

	probe := []int{0, 1, 25, 26, 27, 701, 702, 18277, 18278, 475253, 475254, limit - 1, limit}
	for i := 0; i < 2000; i++ {
		probe = append(probe, i)
	}
	for _, idx := range probe {
		letters := IndexToColumnLetters(idx)
		require.LessOrEqual(t, len(letters), 6)
		back, err := ColumnLettersToIndex(letters)
		require.NoError(t, err)
		require.Equal(t, idx, back, letters)
	}
}

func TestColumnLettersToIndexRejects(t *testing.T) {
	for _, bad := range []string{"", "A1", "航段", "-"} {
		_, err := ColumnLettersToIndex(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsColumnDesignator(t *testing.T) {
	assert.True(t, IsColumnDesignator("B"))
	assert.True(t, IsColumnDesignator("ab"))
	assert.True(t, IsColumnDesignator("XFD"))
	assert.False(t, IsColumnDesignator("ABCD"))
	assert.False(t, IsColumnDesignator("航段"))
	assert.False(t, IsColumnDesignator("Fuel Price"))
	assert.False(t, IsColumnDesignator(""))
}
