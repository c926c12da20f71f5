package graph

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	graphpkg "github.com/Ramsey-B/bramble/pkg/graph"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// Reader is the read side of the graph used by the API
type Reader interface {
	GetRecord(ctx context.Context, recordID string) (*models.Record, error)
	GetEntity(ctx context.Context, entityType models.EntityType, canonicalText string) (*models.Entity, error)
	GetRelationships(ctx context.Context, entityType models.EntityType, canonicalText string) ([]models.Relationship, error)
	SamplePeople(ctx context.Context, limit int) ([]models.PersonOverview, error)
}

// Handler handles graph read API endpoints
type Handler struct {
	reader Reader
	logger ectologger.Logger
}

// NewHandler creates a new graph handler
func NewHandler(reader Reader, logger ectologger.Logger) *Handler {
	return &Handler{
		reader: reader,
		logger: logger,
	}
}

// Register registers the graph routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/records/:recordId", h.GetRecord)
	g.GET("/entities/:entityType/:canonicalText", h.GetEntity)
	g.GET("/entities/:entityType/:canonicalText/relationships", h.GetRelationships)
	g.GET("/graph/people", h.SamplePeople)
}

// GetRecord returns one record node
// @Summary Get record
// @Tags Records
// @Produce json
// @Param recordId path string true "Record ID"
// @Success 200 {object} models.Record
// @Failure 404 {object} httperror.HTTPError
// @Failure 502 {object} httperror.HTTPError
// @Router /api/v1/records/{recordId} [get]
func (h *Handler) GetRecord(c echo.Context) error {
	ctx := c.Request().Context()

	recordID := c.Param("recordId")
	if recordID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "record id is required")
	}

	record, err := h.reader.GetRecord(ctx, recordID)
	if err != nil {
		return notFound(err, "record not found")
	}

	return c.JSON(http.StatusOK, record)
}

// GetEntity returns one entity node
// @Summary Get entity
// @Tags Entities
// @Produce json
// @Param entityType path string true "person, organization or location"
// @Param canonicalText path string true "Canonical text"
// @Success 200 {object} models.Entity
// @Failure 400 {object} httperror.HTTPError
// @Failure 404 {object} httperror.HTTPError
// @Router /api/v1/entities/{entityType}/{canonicalText} [get]
func (h *Handler) GetEntity(c echo.Context) error {
	ctx := c.Request().Context()

	entityType, canonicalText, err := entityParams(c)
	if err != nil {
		return err
	}

	entity, err := h.reader.GetEntity(ctx, entityType, canonicalText)
	if err != nil {
		return notFound(err, entityType.PublicName()+" not found")
	}

	return c.JSON(http.StatusOK, entity)
}

// RelationshipsResponse lists the edges of one entity
type RelationshipsResponse struct {
	EntityType    string                `json:"entity_type"`
	CanonicalText string                `json:"canonical_text"`
	Relationships []models.Relationship `json:"relationships"`
}

// GetRelationships returns every edge touching an entity
// @Summary List entity relationships
// @Tags Entities
// @Produce json
// @Param entityType path string true "person, organization or location"
// @Param canonicalText path string true "Canonical text"
// @Success 200 {object} RelationshipsResponse
// @Failure 400 {object} httperror.HTTPError
// @Router /api/v1/entities/{entityType}/{canonicalText}/relationships [get]
func (h *Handler) GetRelationships(c echo.Context) error {
	ctx := c.Request().Context()

	entityType, canonicalText, err := entityParams(c)
	if err != nil {
		return err
	}

	rels, err := h.reader.GetRelationships(ctx, entityType, canonicalText)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, RelationshipsResponse{
		EntityType:    entityType.PublicName(),
		CanonicalText: canonicalText,
		Relationships: rels,
	})
}

// SamplePeople returns the people overview
// @Summary Sample people
// @Tags Graph
// @Produce json
// @Param limit query int false "Maximum rows (default 20)"
// @Success 200 {array} models.PersonOverview
// @Router /api/v1/graph/people [get]
func (h *Handler) SamplePeople(c echo.Context) error {
	ctx := c.Request().Context()

	limit := graphpkg.DefaultSampleLimit
	if c.QueryParam("limit") != "" {
		var parsed int
		if err := echo.QueryParamsBinder(c).Int("limit", &parsed).BindError(); err != nil || parsed <= 0 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	people, err := h.reader.SamplePeople(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, people)
}

func entityParams(c echo.Context) (models.EntityType, string, error) {
	entityType, err := models.ParseEntityType(c.Param("entityType"))
	if err != nil {
		return "", "", httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	canonicalText, err := url.PathUnescape(c.Param("canonicalText"))
	if err != nil || canonicalText == "" {
		return "", "", httperror.NewHTTPError(http.StatusBadRequest, "canonical text is required")
	}
	return entityType, canonicalText, nil
}

func notFound(err error, message string) error {
	if errors.Is(err, graphpkg.ErrNotFound) {
		return httperror.NewHTTPError(http.StatusNotFound, message)
	}
	return err
}
