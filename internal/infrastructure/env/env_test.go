package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetters(t *testing.T) {
	t.Setenv("ROOMLINK_TEST_STRING", "value")
	t.Setenv("ROOMLINK_TEST_INT", "12")
	t.Setenv("ROOMLINK_TEST_BAD_INT", "twelve")
	t.Setenv("ROOMLINK_TEST_BOOL", "true")
	t.Setenv("ROOMLINK_TEST_DURATION", "1500ms")

	assert.Equal(t, "value", GetString("ROOMLINK_TEST_STRING", "x"))
	assert.Equal(t, "x", GetString("ROOMLINK_TEST_MISSING", "x"))
	assert.Equal(t, 12, GetInt("ROOMLINK_TEST_INT", 0))
	assert.Equal(t, 3, GetInt("ROOMLINK_TEST_BAD_INT", 3))
	assert.True(t, GetBool("ROOMLINK_TEST_BOOL", false))
	assert.Equal(t, 1500*time.Millisecond, GetDuration("ROOMLINK_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetDuration("ROOMLINK_TEST_MISSING", time.Second))
}
