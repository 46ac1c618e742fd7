package rest

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

func testContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestParseWindowQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantDays  int
		wantKind  domain.AggregateKind
		expectErr bool
	}{
		{
			name:     "defaults",
			query:    "",
			wantDays: 30,
			wantKind: domain.AggregateKindStreams,
		},
		{
			name:     "explicit days and kind",
			query:    "days=90&kind=followers",
			wantDays: 90,
			wantKind: domain.AggregateKindFollowers,
		},
		{
			name:     "days capped at a year",
			query:    "days=5000",
			wantDays: MAX_WINDOW_DAYS,
			wantKind: domain.AggregateKindStreams,
		},
		{
			name:      "zero days rejected",
			query:     "days=0",
			expectErr: true,
		},
		{
			name:      "unknown kind rejected",
			query:     "kind=listeners",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ParseWindowQuery(testContext(t, tt.query))
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantDays, params.Days)
			require.Equal(t, tt.wantKind, params.AggregateKind())
		})
	}
}

func TestParseTopDeltasQuery(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		params, day, err := ParseTopDeltasQuery(testContext(t, "day=2026-01-15&limit=5"))
		require.NoError(t, err)
		require.Equal(t, 5, params.Limit)
		require.Equal(t, "2026-01-15", day.String())
	})

	t.Run("day required", func(t *testing.T) {
		_, _, err := ParseTopDeltasQuery(testContext(t, "limit=5"))
		require.Error(t, err)
	})

	t.Run("malformed day rejected", func(t *testing.T) {
		_, _, err := ParseTopDeltasQuery(testContext(t, "day=15-01-2026"))
		require.Error(t, err)
	})

	t.Run("limit defaulted and capped", func(t *testing.T) {
		params, _, err := ParseTopDeltasQuery(testContext(t, "day=2026-01-15"))
		require.NoError(t, err)
		require.Equal(t, 10, params.Limit)

		params, _, err = ParseTopDeltasQuery(testContext(t, "day=2026-01-15&limit=9999"))
		require.NoError(t, err)
		require.Equal(t, MAX_TOP_LIMIT, params.Limit)
	})
}

func TestParseTopShareQuery(t *testing.T) {
	params, err := ParseTopShareQuery(testContext(t, ""))
	require.NoError(t, err)
	require.Equal(t, 30, params.Days)
	require.Equal(t, 10, params.Limit)

	_, err = ParseTopShareQuery(testContext(t, "limit=-1"))
	require.Error(t, err)
}
