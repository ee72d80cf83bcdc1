package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamErrorTransient(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{500, true},
		{502, true},
		{503, true},
		{429, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{422, false},
	}
	for _, tc := range tests {
		e := &UpstreamError{Op: "createPost", StatusCode: tc.status}
		assert.Equal(t, tc.transient, e.Transient(), "status %d", tc.status)
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&UpstreamError{StatusCode: 503}))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", &UpstreamError{StatusCode: 500})))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(&url.Error{Op: "Post", URL: "https://api.linkedin.com", Err: errors.New("connection refused")}))

	assert.False(t, IsTransient(&UpstreamError{StatusCode: 400}))
	assert.False(t, IsTransient(errors.New("some other failure")))
	assert.False(t, IsTransient(NewValidation("bad input")))
}

func TestIsValidation(t *testing.T) {
	err := NewValidation("body cannot be empty")
	assert.True(t, IsValidation(err))
	assert.True(t, IsValidation(fmt.Errorf("creating post: %w", err)))
	assert.False(t, IsValidation(errors.New("not validation")))
	assert.Equal(t, "body cannot be empty", err.Error())
}
