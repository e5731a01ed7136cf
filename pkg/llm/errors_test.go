package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/senselib/senselib/pkg/llm"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "transient error",
			err:  llm.Transient("chat", 503, errors.New("service unavailable")),
			want: true,
		},
		{
			name: "fatal error",
			err:  llm.Fatal("chat", 401, errors.New("unauthorized")),
			want: false,
		},
		{
			name: "wrapped transient",
			err:  fmt.Errorf("summarize chunk 3: %w", llm.Transient("chat", 502, errors.New("bad gateway"))),
			want: true,
		},
		{
			name: "context canceled",
			err:  context.Canceled,
			want: false,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("malformed response"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llm.IsTransient(tt.err))
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("upstream failure")

	assert.True(t, llm.IsTransient(llm.ClassifyStatus("embed", 500, cause)))
	assert.True(t, llm.IsTransient(llm.ClassifyStatus("embed", 503, cause)))
	assert.True(t, llm.IsTransient(llm.ClassifyStatus("embed", 429, cause)))
	assert.True(t, llm.IsTransient(llm.ClassifyStatus("embed", 408, cause)))
	assert.False(t, llm.IsTransient(llm.ClassifyStatus("embed", 400, cause)))
	assert.False(t, llm.IsTransient(llm.ClassifyStatus("embed", 404, cause)))
}

func TestTransientErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := llm.Transient("embed", 0, cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "embed")
}
