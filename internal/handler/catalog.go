package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hall-reservation/internal/middleware"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/service"
)

// CatalogHandler serves halls and resources.  Writes purge the cached
// catalogue reads when a Redis client is configured.
type CatalogHandler struct {
	Catalog     *service.CatalogService
	Redis       *redis.Client
	CachePrefix string
}

func NewCatalogHandler(cat *service.CatalogService, rdb *redis.Client, cachePrefix string) *CatalogHandler {
	return &CatalogHandler{Catalog: cat, Redis: rdb, CachePrefix: cachePrefix}
}

func (h *CatalogHandler) purge(ctx context.Context) {
	if err := middleware.PurgeCache(ctx, h.Redis, h.CachePrefix); err != nil {
		log.Printf("cache: purge %s failed: %v", h.CachePrefix, err)
	}
}

type hallReq struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type resourceCreateReq struct {
	Name string `json:"name"`
}

// ListHalls handles GET /halls and GET /admin/halls.
func (h *CatalogHandler) ListHalls(c echo.Context) error {
	halls, err := h.Catalog.ListHalls(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]hallOut, 0, len(halls))
	for _, hall := range halls {
		out = append(out, toHallOut(hall))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateHall handles POST /admin/halls.
func (h *CatalogHandler) CreateHall(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req hallReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	hall, err := h.Catalog.CreateHall(c.Request().Context(), a, req.Name, req.Capacity)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusCreated, toHallOut(hall))
}

// UpdateHall handles PUT /admin/halls/:id.
func (h *CatalogHandler) UpdateHall(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req hallReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	hall, err := h.Catalog.UpdateHall(c.Request().Context(), a, id, req.Name, req.Capacity)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusOK, toHallOut(hall))
}

// ListResources handles GET /resources and GET /admin/resources.
func (h *CatalogHandler) ListResources(c echo.Context) error {
	list, err := h.Catalog.ListResources(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]resourceOut, 0, len(list))
	for _, r := range list {
		out = append(out, resourceOut{ID: r.ID, Name: r.Name})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateResource handles POST /admin/resources.
func (h *CatalogHandler) CreateResource(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req resourceCreateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.Catalog.CreateResource(c.Request().Context(), a, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusCreated, resourceOutFrom(res))
}

// DeleteResource handles DELETE /admin/resources/:id.
func (h *CatalogHandler) DeleteResource(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Catalog.DeleteResource(c.Request().Context(), a, id); err != nil {
		return writeError(c, err)
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"message": "Resource deleted successfully"})
}

func resourceOutFrom(r *model.Resource) resourceOut {
	return resourceOut{ID: r.ID, Name: r.Name}
}
