package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/model"
	"github.com/logvault/logvault/internal/repository"
	"github.com/logvault/logvault/internal/response"
)

// SourceHandler handles the collector source registry under /sources.
type SourceHandler struct {
	Repo   *repository.SourceRepository
	Logger zerolog.Logger
}

type sourceRequest struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Configuration json.RawMessage `json:"configuration"`
}

// ListTypes returns the known collector kinds (GET /sources/types).
func (h *SourceHandler) ListTypes(c echo.Context) error {
	return response.OK(c, map[string]any{"types": model.SourceTypes}, "")
}

// List returns all registered sources (GET /sources).
func (h *SourceHandler) List(c echo.Context) error {
	list, err := h.Repo.List(c.Request().Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("list sources failed")
		return response.InternalError(c, "failed to list sources", err.Error())
	}
	if list == nil {
		list = []model.Source{}
	}
	return response.OK(c, map[string]any{"sources": list}, "")
}

// Get returns one source (GET /sources/:id).
func (h *SourceHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "invalid source id", err.Error())
	}
	src, err := h.Repo.GetByID(c.Request().Context(), id)
	if err != nil {
		h.Logger.Error().Err(err).Stringer("id", id).Msg("get source failed")
		return response.InternalError(c, "failed to fetch source", err.Error())
	}
	if src == nil {
		return response.NotFound(c, "source not found", "no source with id "+id.String())
	}
	return response.OK(c, src, "")
}

// Create registers a source (POST /sources).
func (h *SourceHandler) Create(c echo.Context) error {
	req, err := bindSourceRequest(c)
	if err != nil {
		return response.BadRequest(c, "invalid source", err.Error())
	}

	src := model.Source{
		Name:          req.Name,
		Type:          req.Type,
		Configuration: req.Configuration,
	}
	if err := h.Repo.Create(c.Request().Context(), &src); err != nil {
		h.Logger.Error().Err(err).Str("name", src.Name).Msg("create source failed")
		return response.InternalError(c, "failed to create source", err.Error())
	}
	h.Logger.Info().Str("principal", principalFrom(c)).Stringer("id", src.ID).Msg("source created")
	return response.Created(c, src, "Source created")
}

// Update replaces a source definition (PUT /sources/:id).
func (h *SourceHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "invalid source id", err.Error())
	}
	req, err := bindSourceRequest(c)
	if err != nil {
		return response.BadRequest(c, "invalid source", err.Error())
	}

	src := model.Source{
		ID:            id,
		Name:          req.Name,
		Type:          req.Type,
		Configuration: req.Configuration,
	}
	if err := h.Repo.Update(c.Request().Context(), &src); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return response.NotFound(c, "source not found", "no source with id "+id.String())
		}
		h.Logger.Error().Err(err).Stringer("id", id).Msg("update source failed")
		return response.InternalError(c, "failed to update source", err.Error())
	}
	return response.OK(c, src, "Source updated")
}

// Delete removes a source (DELETE /sources/:id).
func (h *SourceHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "invalid source id", err.Error())
	}
	deleted, err := h.Repo.Delete(c.Request().Context(), id)
	if err != nil {
		h.Logger.Error().Err(err).Stringer("id", id).Msg("delete source failed")
		return response.InternalError(c, "failed to delete source", err.Error())
	}
	if !deleted {
		return response.NotFound(c, "source not found", "no source with id "+id.String())
	}
	h.Logger.Info().Str("principal", principalFrom(c)).Stringer("id", id).Msg("source deleted")
	return response.NoContent(c)
}

func bindSourceRequest(c echo.Context) (sourceRequest, error) {
	var req sourceRequest
	if err := c.Bind(&req); err != nil {
		return sourceRequest{}, err
	}
	if req.Name == "" {
		return sourceRequest{}, fmt.Errorf("missing 'name'")
	}
	if !slices.Contains(model.SourceTypes, req.Type) {
		return sourceRequest{}, fmt.Errorf("unknown source type %q", req.Type)
	}
	if len(req.Configuration) == 0 {
		req.Configuration = json.RawMessage(`{}`)
	}
	return req, nil
}
