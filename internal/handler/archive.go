package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/response"
	"github.com/logvault/logvault/internal/storage"
)

// ArchiveHandler exposes the cold-storage batch archive. The client is nil
// when archival is not configured; endpoints then report that instead of
// failing.
type ArchiveHandler struct {
	Client *storage.ArchiveClient
	Logger zerolog.Logger
}

// List returns archived batch objects (GET /archive).
func (h *ArchiveHandler) List(c echo.Context) error {
	if h.Client == nil {
		return response.OK(c, map[string]any{"objects": []storage.ObjectInfo{}}, "archive not configured")
	}
	prefix := c.QueryParam("prefix")
	if prefix == "" {
		prefix = "batches/"
	}
	list, err := h.Client.List(c.Request().Context(), prefix)
	if err != nil {
		h.Logger.Error().Err(err).Str("prefix", prefix).Msg("list archive failed")
		return response.InternalError(c, "failed to list archive", err.Error())
	}
	if list == nil {
		list = []storage.ObjectInfo{}
	}
	return response.OK(c, map[string]any{"objects": list}, "")
}

// Content returns the entries of one archived batch (GET /archive/content?key=).
func (h *ArchiveHandler) Content(c echo.Context) error {
	if h.Client == nil {
		return response.BadRequest(c, "archive not configured", "archive not configured")
	}
	key := c.QueryParam("key")
	if key == "" {
		return response.BadRequest(c, "missing key", "query param key is required")
	}
	entries, err := h.Client.GetBatch(c.Request().Context(), key)
	if err != nil {
		h.Logger.Error().Err(err).Str("key", key).Msg("get archive content failed")
		return response.InternalError(c, "failed to fetch archived batch", err.Error())
	}
	return response.OK(c, map[string]any{"logs": entries, "key": key}, "")
}
