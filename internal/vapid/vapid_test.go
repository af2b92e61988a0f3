package vapid

import (
	"encoding/base64"
	"testing"
	
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicKey = "BEl62iUYgUivxIkv69yViEuiBIa-Ib9-SkvMeAtA3LFgDzkrxZJjSgSnfckjBJuBkr3qBUYIHBQFLXYp5Nksh8U"

func TestNormalizePadsToMultipleOfFour(t *testing.T) {
	for _, input := range []string{"", "a", "ab", "abc", "abcd", "abcde", "a-_b", "a-_bc"} {
		normalized := Normalize(input)
		assert.Zero(t, len(normalized)%4, "input %q", input)
		assert.NotContains(t, normalized, "-")
		assert.NotContains(t, normalized, "_")
	}
}

func TestNormalizeTranslatesURLAlphabet(t *testing.T) {
	assert.Equal(t, "+/+/", Normalize("-_-_"))
	assert.Equal(t, "ab+/", Normalize("ab-/"))
	assert.Equal(t, "YQ==", Normalize("YQ"))
	assert.Equal(t, "YWI=", Normalize("YWI"))
}

func TestDecodeApplicationServerKeyRoundTrip(t *testing.T) {
	for _, input := range []string{testPublicKey, "YQ", "YWI", "YWJj", "-_8", "_-_-"} {
		raw, err := DecodeApplicationServerKey(input)
		require.NoError(t, err, "input %q", input)
		
		assert.Equal(t, Normalize(input), base64.StdEncoding.EncodeToString(raw))
	}
}

func TestDecodeApplicationServerKeyP256Point(t *testing.T) {
	raw, err := DecodeApplicationServerKey(testPublicKey)
	require.NoError(t, err)
	
	assert.Len(t, raw, 65)
	assert.Equal(t, byte(0x04), raw[0])
	assert.Equal(t, testPublicKey, EncodeApplicationServerKey(raw))
}

func TestDecodeApplicationServerKeyMalformed(t *testing.T) {
	_, err := DecodeApplicationServerKey("a")
	assert.Error(t, err)
	
	_, err = DecodeApplicationServerKey("not base64!")
	assert.Error(t, err)
}
