package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"shopsphere/internal/assets"
	"shopsphere/internal/models"
	"shopsphere/internal/repository"
	"shopsphere/internal/service"
)

type ProductHandler struct {
	catalog *service.CatalogService
	present presenter
}

func NewProductHandler(catalog *service.CatalogService, resolver assets.Resolver) *ProductHandler {
	return &ProductHandler{catalog: catalog, present: presenter{resolver: resolver}}
}

type ProductRequest struct {
	Name              string              `json:"name" validate:"required,max=200"`
	Slug              string              `json:"slug" validate:"required,max=220"`
	SKU               string              `json:"sku" validate:"required,max=50"`
	Description       string              `json:"description"`
	ShortDescription  string              `json:"short_description" validate:"max=300"`
	ProductType       models.ProductType  `json:"product_type" validate:"omitempty,oneof=physical digital"`
	Price             decimal.Decimal     `json:"price"`
	ComparePrice      decimal.NullDecimal `json:"compare_price"`
	Stock             int                 `json:"stock" validate:"gte=0"`
	LowStockThreshold *int                `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	IsAvailable       *bool               `json:"is_available"`
	CategoryID        *int                `json:"category_id"`
	BrandID           *int                `json:"brand_id"`
	Weight            decimal.NullDecimal `json:"weight"`
	Dimensions        string              `json:"dimensions" validate:"max=100"`
	Featured          bool                `json:"featured"`
	IsNew             bool                `json:"is_new"`
	IsBestseller      bool                `json:"is_bestseller"`
}

func (req ProductRequest) product(id int) *models.Product {
	p := &models.Product{
		ID:                id,
		Name:              req.Name,
		Slug:              req.Slug,
		SKU:               req.SKU,
		Description:       req.Description,
		ShortDescription:  req.ShortDescription,
		ProductType:       req.ProductType,
		Price:             req.Price,
		ComparePrice:      req.ComparePrice,
		Stock:             req.Stock,
		LowStockThreshold: 5,
		IsAvailable:       true,
		CategoryID:        req.CategoryID,
		BrandID:           req.BrandID,
		Weight:            req.Weight,
		Dimensions:        req.Dimensions,
		Featured:          req.Featured,
		IsNew:             req.IsNew,
		IsBestseller:      req.IsBestseller,
	}
	if p.ProductType == "" {
		p.ProductType = models.ProductPhysical
	}
	if req.LowStockThreshold != nil {
		p.LowStockThreshold = *req.LowStockThreshold
	}
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}
	return p
}

type ImageRequest struct {
	Image        assets.Ref `json:"image"`
	AltText      string     `json:"alt_text" validate:"max=200"`
	IsPrimary    bool       `json:"is_primary"`
	DisplayOrder int        `json:"display_order" validate:"gte=0"`
}

type SpecificationRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Value        string `json:"value" validate:"required,max=200"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

func queryBool(r *http.Request, key string) *bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func queryDecimal(r *http.Request, key string) (decimal.NullDecimal, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

func parseProductQuery(r *http.Request) (service.ProductQuery, map[string]string) {
	q := r.URL.Query()
	pq := service.ProductQuery{
		Category:     q.Get("category"),
		Brand:        q.Get("brand"),
		Search:       q.Get("search"),
		Ordering:     repository.ProductOrdering(q.Get("ordering")),
		Featured:     queryBool(r, "featured"),
		IsNew:        queryBool(r, "is_new"),
		IsBestseller: queryBool(r, "is_bestseller"),
	}
	if b := queryBool(r, "in_stock"); b != nil {
		pq.InStock = *b
	}
	if b := queryBool(r, "on_sale"); b != nil {
		pq.OnSale = *b
	}

	problems := map[string]string{}
	var err error
	if pq.MinPrice, err = queryDecimal(r, "min_price"); err != nil {
		problems["min_price"] = "Enter a number."
	}
	if pq.MaxPrice, err = queryDecimal(r, "max_price"); err != nil {
		problems["max_price"] = "Enter a number."
	}
	if pq.Limit, err = queryInt(r, "limit"); err != nil {
		problems["limit"] = "Enter a non-negative whole number."
	}
	if pq.Offset, err = queryInt(r, "offset"); err != nil {
		problems["offset"] = "Enter a non-negative whole number."
	}
	return pq, problems
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q, problems := parseProductQuery(r)
	if len(problems) > 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid query", problems)
		return
	}

	products, err := h.catalog.Products(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err, "get products")
		return
	}

	writeJSON(w, http.StatusOK, h.present.products(products))
}

// shelf adapts a fixed homepage listing to a handler.
func (h *ProductHandler) shelf(load func(context.Context) ([]models.Product, error), what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := load(r.Context())
		if err != nil {
			writeServiceError(w, r, err, what)
			return
		}

		writeJSON(w, http.StatusOK, h.present.products(products))
	}
}

func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	h.shelf(h.catalog.FeaturedProducts, "get featured products")(w, r)
}

func (h *ProductHandler) NewArrivals(w http.ResponseWriter, r *http.Request) {
	h.shelf(h.catalog.NewArrivals, "get new arrivals")(w, r)
}

func (h *ProductHandler) Bestsellers(w http.ResponseWriter, r *http.Request) {
	h.shelf(h.catalog.Bestsellers, "get bestsellers")(w, r)
}

func (h *ProductHandler) OnSale(w http.ResponseWriter, r *http.Request) {
	h.shelf(h.catalog.OnSale, "get products on sale")(w, r)
}

func (h *ProductHandler) Related(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.RelatedProducts(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err, "get related products")
		return
	}

	writeJSON(w, http.StatusOK, h.present.products(products))
}

func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Product(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err, "get product")
		return
	}

	writeJSON(w, http.StatusOK, h.present.product(product))
}

func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.AllProducts(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "get products")
		return
	}

	writeJSON(w, http.StatusOK, h.present.products(products))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	p := req.product(0)
	if err := h.catalog.CreateProduct(r.Context(), p); err != nil {
		writeServiceError(w, r, err, "create product")
		return
	}

	w.Header().Set("Location", "/products/"+p.Slug)
	writeJSON(w, http.StatusCreated, h.present.product(p))
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "product")
	if !ok {
		return
	}

	var req ProductRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	p := req.product(id)
	if err := h.catalog.UpdateProduct(r.Context(), p); err != nil {
		writeServiceError(w, r, err, "update product")
		return
	}

	writeJSON(w, http.StatusOK, h.present.product(p))
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "product")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "delete product")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *ProductHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "product")
	if !ok {
		return
	}

	var req ImageRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}
	if req.Image.IsZero() {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid input", map[string]string{"image": "This field is required."})
		return
	}

	img := &models.ProductImage{
		ProductID:    id,
		Image:        req.Image,
		AltText:      req.AltText,
		IsPrimary:    req.IsPrimary,
		DisplayOrder: req.DisplayOrder,
	}
	if err := h.catalog.AddImage(r.Context(), img); err != nil {
		writeServiceError(w, r, err, "add product image")
		return
	}

	writeJSON(w, http.StatusCreated, h.present.image(*img))
}

func (h *ProductHandler) AddSpecification(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "product")
	if !ok {
		return
	}

	var req SpecificationRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	spec := &models.ProductSpecification{
		ProductID:    id,
		Name:         req.Name,
		Value:        req.Value,
		DisplayOrder: req.DisplayOrder,
	}
	if err := h.catalog.AddSpecification(r.Context(), spec); err != nil {
		writeServiceError(w, r, err, "add product specification")
		return
	}

	writeJSON(w, http.StatusCreated, spec)
}

func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "product")
	if !ok {
		return
	}

	var req service.StockAdjustment
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	op, err := h.catalog.AdjustStock(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err, "adjust stock")
		return
	}

	writeJSON(w, http.StatusCreated, op)
}

func (h *ProductHandler) StockHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "product")
	if !ok {
		return
	}

	ops, err := h.catalog.StockHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "get stock history")
		return
	}

	writeJSON(w, http.StatusOK, nonNil(ops))
}
