package storage

import (
	"context"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvidenceKey(t *testing.T) {
	key := EvidenceKey(3, 17, ".png")
	assert.Regexp(t, regexp.MustCompile(`^evidence/pyramid_3/match_17/[0-9a-f-]{36}\.png$`), key)

	assert.Regexp(t, `\.pdf$`, EvidenceKey(1, 1, "pdf"))
	assert.NotEqual(t, EvidenceKey(1, 1, ".pdf"), EvidenceKey(1, 1, ".pdf"))
}

func TestPublicURL(t *testing.T) {
	base, err := url.Parse("https://cdn.example.com/ladder")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/ladder/evidence/a.png", publicURL(base, "evidence/a.png"))
	assert.Equal(t, "https://cdn.example.com/ladder/evidence/a.png", publicURL(base, "/evidence/a.png"))
	assert.Equal(t, "", publicURL(base, ""))
	assert.Equal(t, "", publicURL(nil, "evidence/a.png"))
}

func TestNewCloudflareR2Uploader_RequiresConfig(t *testing.T) {
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{AccountID: "acc"})
	assert.Error(t, err)
}
