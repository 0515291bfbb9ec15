package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storefront/shop-api/internal/api/metrics"
	"github.com/storefront/shop-api/internal/core/ports"
)

type TagHandler struct {
	tags ports.TagService
}

func NewTagHandler(tags ports.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

type tagRequest struct {
	Title string `json:"title" validate:"required"`
}

// List returns every tag.
//
// @Summary      List tags
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Tag
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /tags [get]
func (h *TagHandler) List(c echo.Context) error {
	tags, err := h.tags.ListTags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

// Get returns one tag.
//
// @Summary      Get a tag
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Tag ID"
// @Success      200  {object}  domain.Tag
// @Failure      404  {object}  map[string]string
// @Router       /tags/{id} [get]
func (h *TagHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	tag, err := h.tags.GetTag(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

// Create adds a tag.
//
// @Summary      Create a tag
// @Tags         tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      tagRequest  true  "Tag"
// @Success      201   {object}  domain.Tag
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /tags [post]
func (h *TagHandler) Create(c echo.Context) error {
	var req tagRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tag, err := h.tags.CreateTag(c.Request().Context(), req.Title)
	if err != nil {
		return err
	}

	metrics.CatalogMutationsTotal.WithLabelValues("tag", "create").Inc()
	return c.JSON(http.StatusCreated, tag)
}

// Update renames a tag.
//
// @Summary      Rename a tag
// @Tags         tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int         true  "Tag ID"
// @Param        body  body      tagRequest  true  "Tag"
// @Success      200   {object}  domain.Tag
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /tags/{id} [patch]
func (h *TagHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req tagRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tag, err := h.tags.UpdateTag(c.Request().Context(), id, req.Title)
	if err != nil {
		return err
	}

	metrics.CatalogMutationsTotal.WithLabelValues("tag", "update").Inc()
	return c.JSON(http.StatusOK, tag)
}

// Delete removes a tag and detaches it from every product.
//
// @Summary      Delete a tag
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Tag ID"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  map[string]string
// @Router       /tags/{id} [delete]
func (h *TagHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.tags.DeleteTag(c.Request().Context(), id); err != nil {
		return err
	}

	metrics.CatalogMutationsTotal.WithLabelValues("tag", "delete").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "tag deleted"})
}
