package replicate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractURLString(t *testing.T) {
	result, err := Extract("https://replicate.delivery/out.png")
	require.NoError(t, err)

	assert.Equal(t, KindURL, result.Kind)
	assert.Equal(t, "https://replicate.delivery/out.png", result.URL)
}

func TestExtractDataURI(t *testing.T) {
	result, err := Extract("data:image/webp;base64,UklGRg==")
	require.NoError(t, err)

	assert.Equal(t, KindBytes, result.Kind)
	assert.Equal(t, "image/webp", result.ContentType)
	assert.NotEmpty(t, result.Bytes)
}

func TestExtractStringSlice(t *testing.T) {
	result, err := Extract([]string{"https://replicate.delivery/a.png", "https://replicate.delivery/b.png"})
	require.NoError(t, err)

	assert.Equal(t, "https://replicate.delivery/a.png", result.URL)
}

func TestExtractAnySlice(t *testing.T) {
	result, err := Extract([]any{"not-a-url", "https://replicate.delivery/out.png"})
	require.NoError(t, err)

	assert.Equal(t, "https://replicate.delivery/out.png", result.URL)
}

func TestExtractNestedMap(t *testing.T) {
	output := map[string]any{
		"images": []any{
			map[string]any{"url": "https://replicate.delivery/out.png"},
		},
	}

	result, err := Extract(output)
	require.NoError(t, err)
	assert.Equal(t, "https://replicate.delivery/out.png", result.URL)
}

func TestExtractGarbage(t *testing.T) {
	_, err := Extract(map[string]any{"status": "succeeded"})
	assert.Error(t, err)

	_, err = Extract(42)
	assert.Error(t, err)

	_, err = Extract(nil)
	assert.Error(t, err)
}

func TestExtractMalformedDataURI(t *testing.T) {
	_, err := Extract("data:image/png;base64")
	assert.Error(t, err)

	_, err = Extract("data:image/png;base64,%%%")
	assert.Error(t, err)
}

func TestIsOverloaded(t *testing.T) {
	assert.True(t, IsOverloaded(errors.New("E003: throttled")))
	assert.True(t, IsOverloaded(errors.New("model is temporarily Unavailable")))
	assert.True(t, IsOverloaded(errors.New("model under high demand, try later")))

	assert.False(t, IsOverloaded(errors.New("invalid input")))
	assert.False(t, IsOverloaded(nil))
}
