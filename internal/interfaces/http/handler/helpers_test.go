package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("accepts RFC 3339", func(t *testing.T) {
		got, err := parseDate("2026-08-10T14:30:00Z")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC), got)
	})

	t.Run("accepts bare date", func(t *testing.T) {
		got, err := parseDate("2026-08-10")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("rejects other formats", func(t *testing.T) {
		_, err := parseDate("10/08/2026")
		assert.Error(t, err)

		_, err = parseDate("not-a-date")
		assert.Error(t, err)
	})
}

func TestParseDateRange(t *testing.T) {
	t.Run("both empty", func(t *testing.T) {
		from, to, err := parseDateRange("", "")
		require.NoError(t, err)
		assert.Nil(t, from)
		assert.Nil(t, to)
	})

	t.Run("both set", func(t *testing.T) {
		from, to, err := parseDateRange("2026-01-01", "2026-06-30")
		require.NoError(t, err)
		require.NotNil(t, from)
		require.NotNil(t, to)
		assert.True(t, from.Before(*to))
	})

	t.Run("invalid from", func(t *testing.T) {
		_, _, err := parseDateRange("bogus", "2026-06-30")
		assert.Error(t, err)
	})

	t.Run("invalid to", func(t *testing.T) {
		_, _, err := parseDateRange("2026-01-01", "bogus")
		assert.Error(t, err)
	})
}

func TestActorID(t *testing.T) {
	t.Run("resolves authenticated user", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/", nil)
		userID := uuid.New()
		setJWTContext(c, userID)

		got := actorID(c)
		require.NotNil(t, got)
		assert.Equal(t, userID, *got)
	})

	t.Run("nil for unauthenticated caller", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/", nil)

		assert.Nil(t, actorID(c))
	})
}

func TestToDecimalHelpers(t *testing.T) {
	d := toDecimal(3500000.50)
	assert.Equal(t, "3500000.5", d.String())

	p := toDecimalPtr(0.025)
	require.NotNil(t, p)
	assert.Equal(t, "0.025", p.String())
}
