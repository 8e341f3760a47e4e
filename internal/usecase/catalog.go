package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
)

const imageContainer = "products"

type ProductInput struct {
	Name        string
	Description string
	Category    entity.Category
	Price       decimal.Decimal
	Stock       int
}

// ProductPatch carries only the fields to change.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *entity.Category
	Price       *decimal.Decimal
	Stock       *int
}

type Upload struct {
	Data        []byte
	ContentType string
	Ext         string // with leading dot
}

type Catalog struct {
	products ProductRepo
	files    FileStorage
}

func NewCatalog(products ProductRepo, files FileStorage) *Catalog {
	return &Catalog{products: products, files: files}
}

func (uc *Catalog) FindProduct(ctx context.Context, id int64) (*entity.Product, error) {
	return uc.products.GetByID(ctx, id)
}

func (uc *Catalog) List(ctx context.Context) ([]*entity.Product, error) {
	return uc.products.List(ctx, ProductFilter{})
}

func (uc *Catalog) ListByFilter(ctx context.Context, f ProductFilter) ([]*entity.Product, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, entity.ErrInvalidCategory
	}
	f.Name = strings.TrimSpace(f.Name)
	return uc.products.List(ctx, f)
}

// Recommend lists the category the user has bought most of. No history means no recommendations.
func (uc *Catalog) Recommend(ctx context.Context, userID int64) ([]*entity.Product, error) {
	cat, ok, err := uc.products.TopCategoryForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*entity.Product{}, nil
	}
	return uc.products.List(ctx, ProductFilter{Category: cat})
}

// AdjustStock adds delta (negative to remove) to a product's stock.
func (uc *Catalog) AdjustStock(ctx context.Context, id int64, delta int) error {
	if delta == 0 {
		return fmt.Errorf("%w: stock delta must not be zero", entity.ErrInvalidRequest)
	}
	return uc.products.AdjustStock(ctx, id, delta)
}

func (uc *Catalog) Create(ctx context.Context, in ProductInput, img *Upload) (*entity.Product, error) {
	if err := checkProductInput(in); err != nil {
		return nil, err
	}
	p := &entity.Product{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		Stock:       in.Stock,
	}
	if img != nil {
		ref, err := uc.saveImage(ctx, img)
		if err != nil {
			return nil, err
		}
		p.Image = ref
	}
	if err := uc.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the descriptive fields; stock is left to AdjustStock.
func (uc *Catalog) Update(ctx context.Context, id int64, in ProductInput, img *Upload) (*entity.Product, error) {
	if err := checkProductInput(in); err != nil {
		return nil, err
	}
	p, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Category = in.Category
	p.Price = in.Price

	// the old image goes only once the row points at the new one
	prev := p.Image
	if img != nil {
		ref, err := uc.saveImage(ctx, img)
		if err != nil {
			return nil, err
		}
		p.Image = ref
	}
	if err := uc.products.Update(ctx, p); err != nil {
		if p.Image != prev {
			uc.dropImage(ctx, id, p.Image)
		}
		return nil, err
	}
	if p.Image != prev && prev != "" {
		uc.dropImage(ctx, id, prev)
	}
	return p, nil
}

func (uc *Catalog) Patch(ctx context.Context, id int64, patch ProductPatch) (*entity.Product, error) {
	p, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in := ProductInput{Name: p.Name, Description: p.Description, Category: p.Category, Price: p.Price, Stock: p.Stock}
	if patch.Name != nil {
		in.Name = *patch.Name
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}
	if patch.Category != nil {
		in.Category = *patch.Category
	}
	if patch.Price != nil {
		in.Price = *patch.Price
	}
	if patch.Stock != nil {
		in.Stock = *patch.Stock
	}
	if err := checkProductInput(in); err != nil {
		return nil, err
	}
	p.Name, p.Description, p.Category, p.Price, p.Stock = in.Name, in.Description, in.Category, in.Price, in.Stock
	if err := uc.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *Catalog) Delete(ctx context.Context, id int64) error {
	p, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.products.Delete(ctx, id); err != nil {
		return err
	}
	if p.Image != "" {
		uc.dropImage(ctx, id, p.Image)
	}
	return nil
}

// dropImage removes a stored image; failures only leave an orphan file behind.
func (uc *Catalog) dropImage(ctx context.Context, productID int64, ref string) {
	if err := uc.files.Delete(ctx, ref, imageContainer); err != nil {
		logging.FromCtx(ctx).Warn("delete product image", "product_id", productID, "image", ref, "err", err)
	}
}

func (uc *Catalog) saveImage(ctx context.Context, img *Upload) (string, error) {
	ref, err := uc.files.Save(ctx, img.Data, img.ContentType, img.Ext, imageContainer, uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return ref, nil
}

func checkProductInput(in ProductInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", entity.ErrInvalidRequest)
	case len(in.Name) > 256:
		return fmt.Errorf("%w: name is longer than 256 characters", entity.ErrInvalidRequest)
	case in.Category != "" && !in.Category.Valid():
		return entity.ErrInvalidCategory
	case in.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", entity.ErrInvalidRequest)
	case in.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", entity.ErrInvalidRequest)
	}
	return nil
}
