package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hachrisjordan/award-itin-engine/internal/logging"
	"github.com/hachrisjordan/award-itin-engine/internal/metrics"
)

func noopLogger() logging.Logger {
	return logging.Context(context.Background())
}

func TestRouteMetricsHandler_DefaultsLimitTo20(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT route_key, count, day_count, first_seen").
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"route_key", "count", "day_count", "first_seen"}).
			AddRow("JFK-LHR", int64(10), int64(2), time.Now().UTC().Add(-24*time.Hour)))

	h := NewRouteMetricsHandler(metrics.New(db), noopLogger())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/internal/route-metrics", nil)

	h.Handle(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteMetricsHandler_HonorsLimitQueryParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT route_key, count, day_count, first_seen").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"route_key", "count", "day_count", "first_seen"}))

	h := NewRouteMetricsHandler(metrics.New(db), noopLogger())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/internal/route-metrics?limit=5", nil)

	h.Handle(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteMetricsHandler_QueryErrorReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT route_key, count, day_count, first_seen").
		WithArgs(20).
		WillReturnError(assert.AnError)

	h := NewRouteMetricsHandler(metrics.New(db), noopLogger())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/internal/route-metrics", nil)

	h.Handle(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
