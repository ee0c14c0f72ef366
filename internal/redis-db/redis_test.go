package redis_db

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected *redis.Options
		wantErr  bool
	}{
		{
			name:     "simple docker style",
			url:      "redis:6379",
			expected: &redis.Options{Addr: "redis:6379"},
		},
		{
			name: "redis url with password",
			url:  "redis://:password123@localhost:6379",
			expected: &redis.Options{
				Addr:     "localhost:6379",
				Password: "password123",
			},
		},
		{
			name:     "bare hostname with port",
			url:      "cache.internal:6380",
			expected: &redis.Options{Addr: "cache.internal:6380"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected.Addr, got.Addr)
			assert.Equal(t, tt.expected.Password, got.Password)
		})
	}
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient([]string{})
	assert.Error(t, err)

	client, err := NewRedisClient([]string{"localhost:6379"})
	assert.NoError(t, err)
	assert.NotNil(t, client.Client())

	client, err = NewRedisClient([]string{"localhost:6379", "localhost:6380"})
	assert.NoError(t, err)
	assert.NotNil(t, client.Client())
}
