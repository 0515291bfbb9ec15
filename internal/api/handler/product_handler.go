package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/storefront/shop-api/internal/api/metrics"
	"github.com/storefront/shop-api/internal/core/ports"
)

type ProductHandler struct {
	products ports.ProductService
}

func NewProductHandler(products ports.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

type createProductRequest struct {
	Title       string           `json:"title"       validate:"required"`
	Price       *decimal.Decimal `json:"price"       validate:"required"`
	Description string           `json:"description"`
	References  int              `json:"references"  validate:"gte=0"`
	Tags        []string         `json:"tags"`
}

type updateProductRequest struct {
	Title       *string          `json:"title"       validate:"omitempty,min=1"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	References  *int             `json:"references"  validate:"omitempty,gte=0"`
	Tags        *[]string        `json:"tags"`
}

// List returns one page of the catalog.
//
// @Summary      List products
// @Description  Without tags only products in stock are listed. tags is a comma separated list of tag titles.
// @Tags         products
// @Produce      json
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        pageSize  query     int     false  "Page size (default 10)"
// @Param        tags      query     string  false  "Comma separated tag titles"
// @Success      200       {object}  ports.ListProductsResult
// @Failure      400       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /products [get]
func (h *ProductHandler) List(c echo.Context) error {
	var page, pageSize int
	if err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("pageSize", &pageSize).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "page and pageSize must be integers")
	}

	res, err := h.products.ListProducts(c.Request().Context(), ports.ListProductsInput{
		Page:     page,
		PageSize: pageSize,
		Tags:     splitTags(c.QueryParam("tags")),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Get returns a product with its tags.
//
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  domain.Product
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.products.GetProduct(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Create adds a product. Every tag title must already exist.
//
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createProductRequest  true  "Product"
// @Success      201   {object}  domain.Product
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /products [post]
func (h *ProductHandler) Create(c echo.Context) error {
	var req createProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := h.products.CreateProduct(c.Request().Context(), ports.CreateProductInput{
		Title:       req.Title,
		Price:       *req.Price,
		Description: req.Description,
		References:  req.References,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}

	metrics.CatalogMutationsTotal.WithLabelValues("product", "create").Inc()
	return c.JSON(http.StatusCreated, p)
}

// Update applies a partial update. A tags field replaces the whole tag set.
//
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                   true  "Product ID"
// @Param        body  body      updateProductRequest  true  "Fields to change"
// @Success      200   {object}  domain.Product
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /products/{id} [patch]
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := h.products.UpdateProduct(c.Request().Context(), id, ports.UpdateProductInput{
		Title:       req.Title,
		Price:       req.Price,
		Description: req.Description,
		References:  req.References,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}

	metrics.CatalogMutationsTotal.WithLabelValues("product", "update").Inc()
	return c.JSON(http.StatusOK, p)
}

// Delete removes a product.
//
// @Summary      Delete a product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.products.DeleteProduct(c.Request().Context(), id); err != nil {
		return err
	}

	metrics.CatalogMutationsTotal.WithLabelValues("product", "delete").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "product deleted"})
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

