package storage

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvidenceKey(t *testing.T) {
	key, err := EvidenceKey(4, 17, "image/png")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(key, "evidence/tournament_4/match_17/"))
	require.True(t, strings.HasSuffix(key, ".png"))
	id := strings.TrimSuffix(strings.TrimPrefix(key, "evidence/tournament_4/match_17/"), ".png")
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	other, err := EvidenceKey(4, 17, "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestEvidenceKey_RejectsUnknownType(t *testing.T) {
	_, err := EvidenceKey(1, 1, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
}

func TestPublicURL(t *testing.T) {
	base, err := url.Parse("https://cdn.example.com/media/")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/media/evidence/a.png", publicURL(base, "evidence/a.png"))
	assert.Equal(t, "https://cdn.example.com/media/evidence/a.png", publicURL(base, "/evidence/a.png"))
	assert.Empty(t, publicURL(base, ""))
	assert.Empty(t, publicURL(nil, "evidence/a.png"))
}

func TestCloudflareR2UploaderConfig_Enabled(t *testing.T) {
	cfg := CloudflareR2UploaderConfig{AccountID: "a", AccessKeyID: "b", SecretAccessKey: "c", BucketName: "d"}
	assert.False(t, cfg.Enabled())

	cfg.PublicBaseURL = "https://cdn.example.com/"
	assert.True(t, cfg.Enabled())
}
