package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"shopsphere/internal/assets"
	"shopsphere/internal/models"
	"shopsphere/internal/service"
)

// CatalogHandler serves categories, brands and shipping options.
type CatalogHandler struct {
	catalog *service.CatalogService
	present presenter
}

func NewCatalogHandler(catalog *service.CatalogService, resolver assets.Resolver) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, present: presenter{resolver: resolver}}
}

type CategoryRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Slug         string `json:"slug" validate:"required,max=120"`
	Description  string `json:"description"`
	Icon         string `json:"icon" validate:"max=50"`
	ParentID     *int   `json:"parent_id" validate:"omitempty,gt=0"`
	IsActive     *bool  `json:"is_active"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
	Featured     bool   `json:"featured"`
}

type BrandRequest struct {
	Name        string      `json:"name" validate:"required,max=100"`
	Slug        string      `json:"slug" validate:"required,max=120"`
	Description string      `json:"description"`
	Website     string      `json:"website" validate:"omitempty,url"`
	Logo        *assets.Ref `json:"logo"`
	IsActive    *bool       `json:"is_active"`
	IsFeatured  bool        `json:"is_featured"`
}

type ShippingOptionRequest struct {
	Name                  string              `json:"name" validate:"required,max=100"`
	Description           string              `json:"description"`
	Price                 decimal.Decimal     `json:"price"`
	EstimatedDaysMin      int                 `json:"estimated_days_min" validate:"gte=0"`
	EstimatedDaysMax      int                 `json:"estimated_days_max" validate:"gtefield=EstimatedDaysMin"`
	IsActive              *bool               `json:"is_active"`
	IsDefault             bool                `json:"is_default"`
	FreeShippingThreshold decimal.NullDecimal `json:"free_shipping_threshold"`
	Regions               string              `json:"regions"`
	DisplayOrder          int                 `json:"display_order" validate:"gte=0"`
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "get categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) RootCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.RootCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "get root categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) FeaturedCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.FeaturedCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "get featured categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.catalog.CategoryTree(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "get category tree")
		return
	}

	writeJSON(w, http.StatusOK, tree)
}

func (h *CatalogHandler) Category(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.Category(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err, "get category")
		return
	}

	writeJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) Subcategories(w http.ResponseWriter, r *http.Request) {
	children, err := h.catalog.Subcategories(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err, "get subcategories")
		return
	}
	if children == nil {
		children = []models.Category{}
	}

	writeJSON(w, http.StatusOK, children)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	c := &models.Category{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		Icon:         req.Icon,
		ParentID:     req.ParentID,
		IsActive:     boolOr(req.IsActive, true),
		DisplayOrder: req.DisplayOrder,
		Featured:     req.Featured,
	}
	if err := h.catalog.CreateCategory(r.Context(), c); err != nil {
		writeServiceError(w, r, err, "create category")
		return
	}

	w.Header().Set("Location", "/categories/"+c.Slug)
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) FeaturedBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.catalog.FeaturedBrands(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "get featured brands")
		return
	}

	writeJSON(w, http.StatusOK, h.present.brands(brands))
}

func (h *CatalogHandler) Brands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.catalog.Brands(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "get brands")
		return
	}

	writeJSON(w, http.StatusOK, h.present.brands(brands))
}

func (h *CatalogHandler) Brand(w http.ResponseWriter, r *http.Request) {
	brand, err := h.catalog.Brand(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err, "get brand")
		return
	}

	writeJSON(w, http.StatusOK, h.present.brand(*brand))
}

func (h *CatalogHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var req BrandRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	b := &models.Brand{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Website:     req.Website,
		Logo:        req.Logo,
		IsActive:    boolOr(req.IsActive, true),
		IsFeatured:  req.IsFeatured,
	}
	if err := h.catalog.CreateBrand(r.Context(), b); err != nil {
		writeServiceError(w, r, err, "create brand")
		return
	}

	w.Header().Set("Location", "/brands/"+b.Slug)
	writeJSON(w, http.StatusCreated, h.present.brand(*b))
}

func (h *CatalogHandler) ShippingOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.catalog.ShippingOptions(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "get shipping options")
		return
	}

	writeJSON(w, http.StatusOK, presentShipping(options))
}

// AvailableShipping prices the active options for ?total=.
func (h *CatalogHandler) AvailableShipping(w http.ResponseWriter, r *http.Request) {
	total := decimal.Zero
	if v := r.URL.Query().Get("total"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid query", map[string]string{"total": "Enter a non-negative number."})
			return
		}
		total = d
	}

	options, err := h.catalog.AvailableShipping(r.Context(), total)
	if err != nil {
		writeServiceError(w, r, err, "get shipping options")
		return
	}

	writeJSON(w, http.StatusOK, presentShipping(options))
}

func (h *CatalogHandler) CreateShippingOption(w http.ResponseWriter, r *http.Request) {
	var req ShippingOptionRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	o := &models.ShippingOption{
		Name:                  req.Name,
		Description:           req.Description,
		Price:                 req.Price,
		EstimatedDaysMin:      req.EstimatedDaysMin,
		EstimatedDaysMax:      req.EstimatedDaysMax,
		IsActive:              boolOr(req.IsActive, true),
		IsDefault:             req.IsDefault,
		FreeShippingThreshold: req.FreeShippingThreshold,
		Regions:               req.Regions,
		DisplayOrder:          req.DisplayOrder,
	}
	if err := h.catalog.CreateShippingOption(r.Context(), o); err != nil {
		writeServiceError(w, r, err, "create shipping option")
		return
	}

	writeJSON(w, http.StatusCreated, presentShipping([]models.ShippingOption{*o})[0])
}
