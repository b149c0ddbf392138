package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString_KnownGoodPairs(t *testing.T) {
	knownGood := map[string]string{
		"01Q36000000RXX5": "01Q36000000RXX5EAO",
		"005360000016xkG": "005360000016xkGAAQ",
		"01I36000002zD9R": "01I36000002zD9REAU",
		"0013600001ohPTp": "0013600001ohPTpAAM",
		"0033600001gyv5B": "0033600001gyv5BAAQ",
	}

	for id15, id18 := range knownGood {
		got, err := FromString(id15)
		require.NoError(t, err)
		assert.Equal(t, id18, got.String())

		fromLong, err := FromString(id18)
		require.NoError(t, err)
		assert.Equal(t, id18, fromLong.String())
		assert.True(t, got.Equal(fromLong))
	}
}

func TestFromString_RejectsMalformedInput(t *testing.T) {
	for _, bad := range []string{"", "test", "01Q36000000RXX", "01Q36000000RXX55", "01Q36000000RXX-"} {
		_, err := FromString(bad)
		assert.Error(t, err)
	}
}

func TestID_Prefix(t *testing.T) {
	id := MustFromString("001000000000000")
	assert.Equal(t, "001", id.Prefix())
}

func TestID_EqualString(t *testing.T) {
	id := MustFromString("001000000000000")

	assert.True(t, id.EqualString("001000000000000"))
	assert.True(t, id.EqualString(id.String()))
	assert.False(t, id.EqualString("not-an-id"))
}

func TestID_RoundTripIdempotent(t *testing.T) {
	id, err := FromString("005360000016xkG")
	require.NoError(t, err)

	again, err := FromString(id.String())
	require.NoError(t, err)
	assert.Equal(t, id.String(), again.String())
	assert.Equal(t, id.String()[:15], "005360000016xkG")
}

func TestID_HashableInMap(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 400; i++ {
		id := MustFromString("001000000000000")
		_ = id
	}

	a := MustFromString("001000000000001")
	b := MustFromString("001000000000001")
	seen[a] = true
	assert.True(t, seen[b])
}
