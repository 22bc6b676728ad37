package idcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 62, 63, 3969, 18446744073709551615}
	for _, v := range values {
		encoded := Encode(v)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestEncode_Zero(t *testing.T) {
	assert.Equal(t, "A", Encode(0))
}

func TestDecode_EmptyString(t *testing.T) {
	_, err := Decode("")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestDecode_InvalidChar(t *testing.T) {
	_, err := Decode("A!B")
	assert.ErrorIs(t, err, ErrInvalidChar)
}
