package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type CatalogService interface {
	FindProduct(ctx context.Context, id int64) (*entity.Product, error)
	List(ctx context.Context) ([]*entity.Product, error)
	ListByFilter(ctx context.Context, f usecase.ProductFilter) ([]*entity.Product, error)
	Recommend(ctx context.Context, userID int64) ([]*entity.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) error
	Create(ctx context.Context, in usecase.ProductInput, img *usecase.Upload) (*entity.Product, error)
	Update(ctx context.Context, id int64, in usecase.ProductInput, img *usecase.Upload) (*entity.Product, error)
	Patch(ctx context.Context, id int64, patch usecase.ProductPatch) (*entity.Product, error)
	Delete(ctx context.Context, id int64) error
}

const maxImageBytes = 5 << 20

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

type ProductHandler struct {
	catalog CatalogService
}

func NewProductHandler(catalog CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

func (h *ProductHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	list, err := h.catalog.List(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usecase.NewProductViews(list))
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	p, err := h.catalog.FindProduct(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usecase.NewProductView(p))
}

// Search handler: ?name=<substring>&category=<category>
func (h *ProductHandler) Search(c *gin.Context) {
	var req searchReq
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, invalidField("query", "malformed query"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	list, err := h.catalog.ListByFilter(ctx, usecase.ProductFilter{
		Name:     strings.TrimSpace(req.Name),
		Category: entity.Category(req.Category),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usecase.NewProductViews(list))
}

func (h *ProductHandler) Recommend(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	list, err := h.catalog.Recommend(ctx, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usecase.NewProductViews(list))
}

// Create handler (admin): multipart form with an optional "image" file
func (h *ProductHandler) Create(c *gin.Context) {
	in, img, err := productForm(c)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	p, err := h.catalog.Create(ctx, in, img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Location", c.Request.URL.Path+"/"+strconv.FormatInt(p.ID, 10))
	c.JSON(http.StatusCreated, usecase.NewProductView(p))
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	in, img, err := productForm(c)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	p, err := h.catalog.Update(ctx, id, in, img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usecase.NewProductView(p))
}

// AdjustStock handler (admin): "stock" is a delta, negative for write-offs.
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var req stockReq
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := h.catalog.AdjustStock(ctx, id, req.Stock); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) Patch(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var req patchProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, invalidField("body", "malformed JSON body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(c, err)
		return
	}

	patch := usecase.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	if req.Category != nil {
		cat := entity.Category(*req.Category)
		patch.Category = &cat
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	p, err := h.catalog.Patch(ctx, id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usecase.NewProductView(p))
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := h.catalog.Delete(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func productForm(c *gin.Context) (usecase.ProductInput, *usecase.Upload, error) {
	var req productReq
	if err := bind(c, &req); err != nil {
		return usecase.ProductInput{}, nil, err
	}
	if err := req.validate(); err != nil {
		return usecase.ProductInput{}, nil, err
	}
	in, err := req.input()
	if err != nil {
		return usecase.ProductInput{}, nil, err
	}
	img, err := readImage(c)
	if err != nil {
		return usecase.ProductInput{}, nil, err
	}
	return in, img, nil
}

// readImage returns the optional "image" part of a multipart request.
func readImage(c *gin.Context) (*usecase.Upload, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, invalidField("image", "unreadable upload")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExts[ext] {
		return nil, invalidField("image", "image must be jpg, png, gif or webp")
	}
	if fh.Size > maxImageBytes {
		return nil, invalidField("image", "image must be at most 5MB")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, invalidField("image", "unreadable upload")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, invalidField("image", "unreadable upload")
	}
	if len(data) > maxImageBytes {
		return nil, invalidField("image", "image must be at most 5MB")
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, invalidField("image", "file is not an image")
	}
	return &usecase.Upload{Data: data, ContentType: ct, Ext: ext}, nil
}
