package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authkeeper/internal/model"
)

func TestConsumeAndReplace(t *testing.T) {
	ctx := context.Background()

	t.Run("replaced", func(t *testing.T) {
		var seen string
		next, err := consumeAndReplace(ctx, func(_ context.Context, next string) (int64, error) {
			seen = next
			return 1, nil
		})
		require.NoError(t, err)
		assert.Equal(t, seen, next)
		assert.True(t, isSecretShape(next))
	})

	t.Run("nothing consumed", func(t *testing.T) {
		next, err := consumeAndReplace(ctx, func(context.Context, string) (int64, error) {
			return 0, nil
		})
		require.ErrorIs(t, err, model.ErrInvalidCredential)
		assert.Empty(t, next)
	})

	t.Run("store failure", func(t *testing.T) {
		_, err := consumeAndReplace(ctx, func(context.Context, string) (int64, error) {
			return 0, assert.AnError
		})
		require.ErrorIs(t, err, model.ErrStore)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("fresh value every time", func(t *testing.T) {
		replace := func(context.Context, string) (int64, error) { return 1, nil }
		a, err := consumeAndReplace(ctx, replace)
		require.NoError(t, err)
		b, err := consumeAndReplace(ctx, replace)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestIsSecretShape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "uuid v4", in: uuid.NewString(), want: true},
		{name: "empty", in: "", want: false},
		{name: "garbage", in: "not-a-token", want: false},
		{name: "uuid v1 shape", in: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", want: false},
		{name: "upper case", in: "F47AC10B-58CC-4372-A567-0E02B2C3D479", want: false},
		{name: "braced", in: "{f47ac10b-58cc-4372-a567-0e02b2c3d479}", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSecretShape(tt.in))
		})
	}
}
