package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetCachesHandle(t *testing.T) {
	r := NewRegistry()

	first, err := r.Get(Go)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := r.Get(Go)
	require.NoError(t, err)
	assert.Same(t, first, second, "grammar handle must be cached for process lifetime (P1)")
}

func TestRegistry_UnknownLanguage(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(Language("COBOL"))
	require.Error(t, err)

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, Language("COBOL"), unavailable.Language)
}

func TestRegistry_CompoundBundleVariants(t *testing.T) {
	r := NewRegistry()

	ts, err := r.Get(TypeScript)
	require.NoError(t, err)
	tsx, err := r.Get(TSX)
	require.NoError(t, err)

	assert.NotSame(t, ts, tsx, "TypeScript and TSX are distinct variants of the same bundle")
}

func TestDetectLanguage(t *testing.T) {
	lang, ok := DetectLanguage(".go")
	require.True(t, ok)
	assert.Equal(t, Go, lang)

	_, ok = DetectLanguage(".unknown")
	assert.False(t, ok)
}
