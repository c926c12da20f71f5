package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/routes/graph"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
)

type emptyReader struct{}

func (emptyReader) GetRecord(context.Context, string) (*models.Record, error) {
	return &models.Record{RecordID: "DESC_1"}, nil
}

func (emptyReader) GetEntity(context.Context, models.EntityType, string) (*models.Entity, error) {
	return &models.Entity{}, nil
}

func (emptyReader) GetRelationships(context.Context, models.EntityType, string) ([]models.Relationship, error) {
	return nil, nil
}

func (emptyReader) SamplePeople(context.Context, int) ([]models.PersonOverview, error) {
	return nil, nil
}

func TestNewServer(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := NewServer(Options{ServiceName: "bramble", MetricsEnabled: true},
		health.NewChecker("test"), graph.NewHandler(emptyReader{}, logger), logger)

	for _, path := range []string{"/api/v1/health/live", "/api/v1/records/DESC_1", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records/DESC_1", nil))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
