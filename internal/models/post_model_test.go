package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{PostStatusDraft, PostStatusScheduled},
		{PostStatusDraft, PostStatusPublished},
		{PostStatusDraft, PostStatusFailed},
		{PostStatusScheduled, PostStatusPublished},
		{PostStatusScheduled, PostStatusDraft},
		{PostStatusScheduled, PostStatusScheduled}, // reschedule
		{PostStatusScheduled, PostStatusFailed},
		{PostStatusFailed, PostStatusScheduled},
		{PostStatusFailed, PostStatusPublished},
		{PostStatusFailed, PostStatusFailed},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	rejected := []struct{ from, to string }{
		{PostStatusPublished, PostStatusDraft},
		{PostStatusPublished, PostStatusScheduled},
		{PostStatusPublished, PostStatusPublished},
		{PostStatusPublished, PostStatusFailed},
		{PostStatusDraft, PostStatusDraft},
		{PostStatusFailed, PostStatusDraft},
	}
	for _, tc := range rejected {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestPublishedIsTerminal(t *testing.T) {
	for _, to := range []string{PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusFailed} {
		assert.False(t, CanTransition(PostStatusPublished, to))
	}
}

func TestValidPostStatus(t *testing.T) {
	for _, s := range []string{PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusFailed} {
		assert.True(t, ValidPostStatus(s))
	}
	assert.False(t, ValidPostStatus("posted"))
	assert.False(t, ValidPostStatus(""))
	assert.False(t, ValidPostStatus("SCHEDULED"))
}

func TestValidVisibility(t *testing.T) {
	assert.True(t, ValidVisibility(VisibilityPublic))
	assert.True(t, ValidVisibility(VisibilityConnections))
	assert.False(t, ValidVisibility("public"))
	assert.False(t, ValidVisibility("FRIENDS"))
}

func TestValidUploadStatus(t *testing.T) {
	for _, s := range []string{UploadStatusPending, UploadStatusUploaded, UploadStatusFailed} {
		assert.True(t, ValidUploadStatus(s))
	}
	assert.False(t, ValidUploadStatus("done"))
}
