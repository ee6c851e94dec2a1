package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateImagePath(t *testing.T) {
	width := 200
	height := 300

	key, err := GenerateImagePath("logo", &width, &height)
	require.NoError(t, err)
	require.Equal(t, "logo-200w-300h", key)

	key, err = GenerateImagePath("logo", &width, nil)
	require.NoError(t, err)
	require.Equal(t, "logo-200w-nullh", key)

	key, err = GenerateImagePath("logo", nil, &height)
	require.NoError(t, err)
	require.Equal(t, "logo-nullw-300h", key)
}

func TestGenerateImagePathDistinctKeys(t *testing.T) {
	a, b := 200, 300

	keys := map[string]bool{}
	for _, dims := range [][2]*int{
		{&a, &b},
		{&b, &a},
		{&a, nil},
		{nil, &a},
	} {
		key, err := GenerateImagePath("logo", dims[0], dims[1])
		require.NoError(t, err)
		require.False(t, keys[key], "key %q generated twice", key)
		keys[key] = true
	}
}

func TestGenerateImagePathRejectsBadInput(t *testing.T) {
	width := 200
	zero := 0
	negative := -5
	tooBig := MaxImageDimension + 1

	cases := []struct {
		name   string
		image  string
		width  *int
		height *int
	}{
		{"empty name", "", &width, &width},
		{"blank name", "   ", &width, &width},
		{"both dimensions absent", "logo", nil, nil},
		{"zero dimension", "logo", &zero, &width},
		{"negative dimension", "logo", &width, &negative},
		{"oversized dimension", "logo", &tooBig, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateImagePath(tc.image, tc.width, tc.height)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestImagePathFromURL(t *testing.T) {
	key, err := ImagePathFromURL("https://cdn.example.com/chainboard-assets/logo-200w-300h")
	require.NoError(t, err)
	require.Equal(t, "logo-200w-300h", key)

	key, err = ImagePathFromURL("https://cdn.example.com/chainboard-assets/logo-200w-nullh/")
	require.NoError(t, err)
	require.Equal(t, "logo-200w-nullh", key)
}

func TestImagePathFromURLRoundTrip(t *testing.T) {
	width := 640

	key, err := GenerateImagePath("banner", &width, nil)
	require.NoError(t, err)

	extracted, err := ImagePathFromURL("https://cdn.example.com/chainboard-assets/" + key)
	require.NoError(t, err)
	require.Equal(t, key, extracted)
}

func TestImagePathFromURLRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"not a url",
		"/relative/path/logo-200w-300h",
		"https://",
	} {
		_, err := ImagePathFromURL(raw)
		require.ErrorIs(t, err, ErrInvalidArgument, "url %q", raw)
	}
}
