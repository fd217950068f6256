package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		in       string
		wantAddr string
		wantPass string
		wantDB   int
		wantTLS  bool
	}{
		{"redis://:mypassword@redis:6379/1", "redis:6379", "mypassword", 1, false},
		{"rediss://:s3cret@redis.example.com:6380/2", "redis.example.com:6380", "s3cret", 2, true},
		{"redis:6379", "redis:6379", "", 0, false},
		{"", "localhost:6379", "", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			opts, err := Options(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAddr, opts.Addr)
			assert.Equal(t, tc.wantPass, opts.Password)
			assert.Equal(t, tc.wantDB, opts.DB)
			assert.Equal(t, tc.wantTLS, opts.TLSConfig != nil)
			require.NotNil(t, opts.MaintNotificationsConfig)
		})
	}
}

func TestOptions_Invalid(t *testing.T) {
	_, err := Options("redis://host:6379/notadb")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), addr)
	assert.ErrorContains(t, err, "redis ping")
}
