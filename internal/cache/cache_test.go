package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGet(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", time.Minute)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	v, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, v, "a miss returns the zero value")
}

func TestExpiry(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", -time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok, "expired entries must not be served")
}
