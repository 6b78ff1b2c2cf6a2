// Package repotest provides an in-memory repository.Store for service and
// handler tests. Transactions are serialised and rolled back by restoring a
// snapshot of the data taken when WithTx starts.
package repotest

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"shopsphere/internal/models"
	"shopsphere/internal/repository"
)

type data struct {
	nextID int

	products      map[int]models.Product
	images        map[int]models.ProductImage
	specs         map[int]models.ProductSpecification
	categories    map[int]models.Category
	brands        map[int]models.Brand
	shipping      map[int]models.ShippingOption
	orders        map[int]models.Order
	items         map[int]models.OrderItem
	payments      map[int]models.Payment
	reviews       map[int]models.Review
	wishlist      map[int]models.WishlistItem
	notifications map[int]models.Notification
	stockOps      map[int]models.StockOperation
}

func newData() *data {
	return &data{
		products:      map[int]models.Product{},
		images:        map[int]models.ProductImage{},
		specs:         map[int]models.ProductSpecification{},
		categories:    map[int]models.Category{},
		brands:        map[int]models.Brand{},
		shipping:      map[int]models.ShippingOption{},
		orders:        map[int]models.Order{},
		items:         map[int]models.OrderItem{},
		payments:      map[int]models.Payment{},
		reviews:       map[int]models.Review{},
		wishlist:      map[int]models.WishlistItem{},
		notifications: map[int]models.Notification{},
		stockOps:      map[int]models.StockOperation{},
	}
}

func (d *data) clone() *data {
	return &data{
		nextID:        d.nextID,
		products:      maps.Clone(d.products),
		images:        maps.Clone(d.images),
		specs:         maps.Clone(d.specs),
		categories:    maps.Clone(d.categories),
		brands:        maps.Clone(d.brands),
		shipping:      maps.Clone(d.shipping),
		orders:        maps.Clone(d.orders),
		items:         maps.Clone(d.items),
		payments:      maps.Clone(d.payments),
		reviews:       maps.Clone(d.reviews),
		wishlist:      maps.Clone(d.wishlist),
		notifications: maps.Clone(d.notifications),
		stockOps:      maps.Clone(d.stockOps),
	}
}

func (d *data) id() int {
	d.nextID++
	return d.nextID
}

type state struct {
	mu   sync.Mutex
	txMu sync.Mutex
	d    *data
}

type Store struct {
	st *state
	tx bool
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{d: newData()}}
}

func (s *Store) Products() repository.ProductRepository               { return productRepo{s.st} }
func (s *Store) Categories() repository.CategoryRepository            { return categoryRepo{s.st} }
func (s *Store) Brands() repository.BrandRepository                   { return brandRepo{s.st} }
func (s *Store) ShippingOptions() repository.ShippingOptionRepository { return shippingRepo{s.st} }
func (s *Store) Orders() repository.OrderRepository                   { return orderRepo{s.st} }
func (s *Store) Payments() repository.PaymentRepository               { return paymentRepo{s.st} }
func (s *Store) Reviews() repository.ReviewRepository                 { return reviewRepo{s.st} }
func (s *Store) Wishlist() repository.WishlistRepository              { return wishlistRepo{s.st} }
func (s *Store) Notifications() repository.NotificationRepository     { return notificationRepo{s.st} }
func (s *Store) StockOperations() repository.StockOperationRepository {
	return stockOperationRepo{s.st}
}

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.st.txMu.Lock()
	defer s.st.txMu.Unlock()

	s.st.mu.Lock()
	snapshot := s.st.d.clone()
	s.st.mu.Unlock()

	if err := fn(&Store{st: s.st, tx: true}); err != nil {
		s.st.mu.Lock()
		s.st.d = snapshot
		s.st.mu.Unlock()
		return err
	}

	return nil
}

func (st *state) lock() (*data, func()) {
	st.mu.Lock()
	return st.d, st.mu.Unlock
}

func sorted[T any](m map[int]T, keep func(T) bool, less func(a, b T) int) []T {
	var out []T
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, less)
	return out
}

type productRepo struct{ st *state }

func (r productRepo) Create(_ context.Context, p *models.Product) error {
	if p.Name == "" || p.Slug == "" || p.SKU == "" || !p.Price.IsPositive() || p.Stock < 0 {
		return fmt.Errorf("%w: invalid product", repository.ErrInvalidInput)
	}
	if p.ProductType == "" {
		p.ProductType = models.ProductPhysical
	}

	d, unlock := r.st.lock()
	defer unlock()

	for _, other := range d.products {
		if other.Slug == p.Slug || other.SKU == p.SKU {
			return fmt.Errorf("%w: slug or sku already exists", repository.ErrDuplicate)
		}
	}

	now := time.Now()
	p.ID, p.CreatedAt, p.UpdatedAt = d.id(), now, now
	stored := *p
	stored.Images, stored.Specifications = nil, nil
	d.products[p.ID] = stored
	return nil
}

func (r productRepo) GetByID(_ context.Context, id int) (*models.Product, error) {
	d, unlock := r.st.lock()
	defer unlock()

	p, ok := d.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r productRepo) GetBySlug(_ context.Context, slug string) (*models.Product, error) {
	d, unlock := r.st.lock()
	defer unlock()

	for _, p := range d.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r productRepo) GetAll(ctx context.Context) ([]models.Product, error) {
	return r.List(ctx, repository.ProductFilter{IncludeHidden: true, Ordering: "id"})
}

func (r productRepo) List(_ context.Context, f repository.ProductFilter) ([]models.Product, error) {
	d, unlock := r.st.lock()
	defer unlock()

	var brandID int
	if f.BrandSlug != "" {
		for _, b := range d.brands {
			if b.Slug == f.BrandSlug {
				brandID = b.ID
			}
		}
		if brandID == 0 {
			return nil, nil
		}
	}
	search := strings.ToLower(f.Search)

	var related models.Product
	if f.RelatedTo > 0 {
		related = d.products[f.RelatedTo]
	}
	sameRef := func(a, b *int) bool { return a != nil && b != nil && *a == *b }

	keep := func(p models.Product) bool {
		switch {
		case !f.IncludeHidden && !p.IsAvailable:
			return false
		case len(f.CategoryIDs) > 0 && (p.CategoryID == nil || !slices.Contains(f.CategoryIDs, *p.CategoryID)):
			return false
		case brandID != 0 && (p.BrandID == nil || *p.BrandID != brandID):
			return false
		case f.MinPrice.Valid && p.Price.LessThan(f.MinPrice.Decimal):
			return false
		case f.MaxPrice.Valid && p.Price.GreaterThan(f.MaxPrice.Decimal):
			return false
		case f.InStock && p.Stock <= 0:
			return false
		case f.OnSale && (!p.ComparePrice.Valid || !p.ComparePrice.Decimal.IsPositive()):
			return false
		case f.Featured != nil && p.Featured != *f.Featured:
			return false
		case f.IsNew != nil && p.IsNew != *f.IsNew:
			return false
		case f.IsBestseller != nil && p.IsBestseller != *f.IsBestseller:
			return false
		case f.RelatedTo > 0 && (p.ID == f.RelatedTo ||
			!(sameRef(p.CategoryID, related.CategoryID) || sameRef(p.BrandID, related.BrandID))):
			return false
		}
		if search == "" {
			return true
		}
		for _, field := range []string{p.Name, p.Description, p.ShortDescription, p.SKU} {
			if strings.Contains(strings.ToLower(field), search) {
				return true
			}
		}
		return false
	}

	out := sorted(d.products, keep, productLess(f.Ordering))
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func productLess(o repository.ProductOrdering) func(a, b models.Product) int {
	byID := func(a, b models.Product) int { return cmp.Compare(a.ID, b.ID) }
	then := func(c int, a, b models.Product) int {
		if c != 0 {
			return c
		}
		return byID(a, b)
	}

	switch o {
	case repository.OrderOldest:
		return func(a, b models.Product) int { return then(a.CreatedAt.Compare(b.CreatedAt), a, b) }
	case repository.OrderPriceAsc:
		return func(a, b models.Product) int { return then(a.Price.Cmp(b.Price), a, b) }
	case repository.OrderPriceDesc:
		return func(a, b models.Product) int { return then(b.Price.Cmp(a.Price), a, b) }
	case repository.OrderNameAsc:
		return func(a, b models.Product) int { return then(strings.Compare(a.Name, b.Name), a, b) }
	case repository.OrderNameDesc:
		return func(a, b models.Product) int { return then(strings.Compare(b.Name, a.Name), a, b) }
	case repository.OrderStockAsc:
		return func(a, b models.Product) int { return then(cmp.Compare(a.Stock, b.Stock), a, b) }
	case repository.OrderStockDesc:
		return func(a, b models.Product) int { return then(cmp.Compare(b.Stock, a.Stock), a, b) }
	case "id":
		return byID
	}
	return func(a, b models.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	}
}

func (r productRepo) Update(_ context.Context, p *models.Product) error {
	if !p.Price.IsPositive() || p.Stock < 0 {
		return fmt.Errorf("%w: invalid product", repository.ErrInvalidInput)
	}

	d, unlock := r.st.lock()
	defer unlock()

	current, ok := d.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, other := range d.products {
		if other.ID != p.ID && (other.Slug == p.Slug || other.SKU == p.SKU) {
			return fmt.Errorf("%w: slug or sku already exists", repository.ErrDuplicate)
		}
	}

	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = time.Now()
	stored := *p
	stored.Images, stored.Specifications = nil, nil
	d.products[p.ID] = stored
	return nil
}

func (r productRepo) Delete(_ context.Context, id int) error {
	d, unlock := r.st.lock()
	defer unlock()

	if _, ok := d.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(d.products, id)

	for k, img := range d.images {
		if img.ProductID == id {
			delete(d.images, k)
		}
	}
	for k, s := range d.specs {
		if s.ProductID == id {
			delete(d.specs, k)
		}
	}
	for k, op := range d.stockOps {
		if op.ProductID == id {
			delete(d.stockOps, k)
		}
	}
	for k, item := range d.items {
		if item.ProductID != nil && *item.ProductID == id {
			item.ProductID = nil
			d.items[k] = item
		}
	}
	for k, rv := range d.reviews {
		if rv.ProductID == id {
			delete(d.reviews, k)
		}
	}
	for k, w := range d.wishlist {
		if w.ProductID == id {
			delete(d.wishlist, k)
		}
	}
	return nil
}

func (r productRepo) UpdateStock(_ context.Context, id int, change int) (int, error) {
	d, unlock := r.st.lock()
	defer unlock()

	p, ok := d.products[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if p.Stock+change < 0 {
		return p.Stock, fmt.Errorf("%w: current %d, requested change %d", repository.ErrNotEnough, p.Stock, change)
	}

	p.Stock += change
	p.UpdatedAt = time.Now()
	d.products[id] = p
	return p.Stock, nil
}

func (r productRepo) ListImages(_ context.Context, productID int) ([]models.ProductImage, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.images,
		func(img models.ProductImage) bool { return img.ProductID == productID },
		func(a, b models.ProductImage) int {
			if c := cmp.Compare(a.DisplayOrder, b.DisplayOrder); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		},
	), nil
}

func (r productRepo) AddImage(_ context.Context, img *models.ProductImage) error {
	if err := img.Image.Validate(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}

	d, unlock := r.st.lock()
	defer unlock()

	if _, ok := d.products[img.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	if img.IsPrimary {
		for k, other := range d.images {
			if other.ProductID == img.ProductID && other.IsPrimary {
				other.IsPrimary = false
				d.images[k] = other
			}
		}
	}

	img.ID, img.CreatedAt = d.id(), time.Now()
	d.images[img.ID] = *img
	return nil
}

func (r productRepo) ListSpecifications(_ context.Context, productID int) ([]models.ProductSpecification, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.specs,
		func(s models.ProductSpecification) bool { return s.ProductID == productID },
		func(a, b models.ProductSpecification) int {
			if c := cmp.Compare(a.DisplayOrder, b.DisplayOrder); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		},
	), nil
}

func (r productRepo) AddSpecification(_ context.Context, s *models.ProductSpecification) error {
	if s.Name == "" || s.Value == "" {
		return fmt.Errorf("%w: specification name and value required", repository.ErrInvalidInput)
	}

	d, unlock := r.st.lock()
	defer unlock()

	if _, ok := d.products[s.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	s.ID = d.id()
	d.specs[s.ID] = *s
	return nil
}

type categoryRepo struct{ st *state }

func (r categoryRepo) Create(_ context.Context, c *models.Category) error {
	if c.Name == "" || c.Slug == "" {
		return fmt.Errorf("%w: category name and slug required", repository.ErrInvalidInput)
	}
	if c.Icon == "" {
		c.Icon = "tag"
	}

	d, unlock := r.st.lock()
	defer unlock()

	for _, other := range d.categories {
		sameParent := (other.ParentID == nil && c.ParentID == nil) ||
			(other.ParentID != nil && c.ParentID != nil && *other.ParentID == *c.ParentID)
		if other.Slug == c.Slug || (other.Name == c.Name && sameParent) {
			return fmt.Errorf("%w: category %q already exists", repository.ErrDuplicate, c.Slug)
		}
	}
	if c.ParentID != nil {
		parent, ok := d.categories[*c.ParentID]
		if !ok {
			return fmt.Errorf("%w: unknown parent category", repository.ErrInvalidInput)
		}
		c.ParentName = parent.Name
	}

	now := time.Now()
	c.ID, c.CreatedAt, c.UpdatedAt = d.id(), now, now
	stored := *c
	stored.Children = nil
	d.categories[c.ID] = stored
	return nil
}

func (r categoryRepo) GetBySlug(_ context.Context, slug string) (*models.Category, error) {
	d, unlock := r.st.lock()
	defer unlock()

	for _, c := range d.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func categoryLess(a, b models.Category) int {
	if c := cmp.Compare(a.DisplayOrder, b.DisplayOrder); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

func (r categoryRepo) List(_ context.Context, activeOnly bool) ([]models.Category, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.categories, func(c models.Category) bool { return !activeOnly || c.IsActive }, categoryLess), nil
}

func (r categoryRepo) Children(_ context.Context, parentID int) ([]models.Category, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.categories, func(c models.Category) bool {
		return c.IsActive && c.ParentID != nil && *c.ParentID == parentID
	}, categoryLess), nil
}

type brandRepo struct{ st *state }

func (r brandRepo) Create(_ context.Context, b *models.Brand) error {
	if b.Name == "" || b.Slug == "" {
		return fmt.Errorf("%w: brand name and slug required", repository.ErrInvalidInput)
	}
	if b.Logo != nil && !b.Logo.IsZero() {
		if err := b.Logo.Validate(); err != nil {
			return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
		}
	}

	d, unlock := r.st.lock()
	defer unlock()

	for _, other := range d.brands {
		if other.Slug == b.Slug || other.Name == b.Name {
			return fmt.Errorf("%w: brand %q already exists", repository.ErrDuplicate, b.Name)
		}
	}

	now := time.Now()
	b.ID, b.CreatedAt, b.UpdatedAt = d.id(), now, now
	d.brands[b.ID] = *b
	return nil
}

func (r brandRepo) GetBySlug(_ context.Context, slug string) (*models.Brand, error) {
	d, unlock := r.st.lock()
	defer unlock()

	for _, b := range d.brands {
		if b.Slug == slug {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r brandRepo) List(_ context.Context, activeOnly bool) ([]models.Brand, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.brands,
		func(b models.Brand) bool { return !activeOnly || b.IsActive },
		func(a, b models.Brand) int { return strings.Compare(a.Name, b.Name) },
	), nil
}

type shippingRepo struct{ st *state }

func (r shippingRepo) Create(_ context.Context, s *models.ShippingOption) error {
	if s.Name == "" || s.EstimatedDaysMin > s.EstimatedDaysMax || s.Price.IsNegative() {
		return fmt.Errorf("%w: invalid shipping option", repository.ErrInvalidInput)
	}

	d, unlock := r.st.lock()
	defer unlock()

	s.ID, s.CreatedAt = d.id(), time.Now()
	d.shipping[s.ID] = *s
	return nil
}

func (r shippingRepo) List(_ context.Context, activeOnly bool) ([]models.ShippingOption, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.shipping,
		func(s models.ShippingOption) bool { return !activeOnly || s.IsActive },
		func(a, b models.ShippingOption) int {
			if c := cmp.Compare(a.DisplayOrder, b.DisplayOrder); c != 0 {
				return c
			}
			return a.Price.Cmp(b.Price)
		},
	), nil
}

type orderRepo struct{ st *state }

func (r orderRepo) Create(_ context.Context, o *models.Order) error {
	if o.UserID <= 0 {
		return fmt.Errorf("%w: user ID cannot be empty", repository.ErrInvalidInput)
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.OrderPaymentPending
	}

	d, unlock := r.st.lock()
	defer unlock()

	now := time.Now()
	o.ID, o.CreatedAt, o.UpdatedAt = d.id(), now, now
	stored := *o
	stored.Items = nil
	d.orders[o.ID] = stored
	return nil
}

func (r orderRepo) AddItem(_ context.Context, item *models.OrderItem) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", repository.ErrInvalidInput)
	}

	d, unlock := r.st.lock()
	defer unlock()

	if _, ok := d.orders[item.OrderID]; !ok {
		return repository.ErrNotFound
	}
	if item.ProductID != nil {
		if _, ok := d.products[*item.ProductID]; !ok {
			return repository.ErrProductNotFound
		}
	}

	item.ID, item.CreatedAt = d.id(), time.Now()
	d.items[item.ID] = *item
	return nil
}

func (r orderRepo) UpdateTotals(_ context.Context, o *models.Order) error {
	d, unlock := r.st.lock()
	defer unlock()

	stored, ok := d.orders[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Subtotal, stored.ShippingCost, stored.Tax, stored.Total = o.Subtotal, o.ShippingCost, o.Tax, o.Total
	stored.UpdatedAt = time.Now()
	o.UpdatedAt = stored.UpdatedAt
	d.orders[o.ID] = stored
	return nil
}

func (r orderRepo) UpdateStatus(_ context.Context, id int, status models.OrderStatus, paymentStatus models.OrderPaymentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status '%s'", repository.ErrInvalidInput, status)
	}

	d, unlock := r.st.lock()
	defer unlock()

	stored, ok := d.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status, stored.PaymentStatus, stored.UpdatedAt = status, paymentStatus, time.Now()
	d.orders[id] = stored
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id int) (*models.Order, error) {
	d, unlock := r.st.lock()
	defer unlock()

	o, ok := d.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

// GetForUpdate needs no row lock: WithTx already serialises transactions.
func (r orderRepo) GetForUpdate(ctx context.Context, id int) (*models.Order, error) {
	return r.GetByID(ctx, id)
}

func (d *data) orderItems(orderID int) []models.OrderItem {
	items := sorted(d.items,
		func(i models.OrderItem) bool { return i.OrderID == orderID },
		func(a, b models.OrderItem) int { return cmp.Compare(a.ID, b.ID) },
	)
	if items == nil {
		items = []models.OrderItem{}
	}
	return items
}

func (r orderRepo) GetOrderWithItems(_ context.Context, id int) (*models.Order, error) {
	d, unlock := r.st.lock()
	defer unlock()

	o, ok := d.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Items = d.orderItems(id)
	return &o, nil
}

func (r orderRepo) GetByUserID(_ context.Context, userID int) ([]models.Order, error) {
	d, unlock := r.st.lock()
	defer unlock()

	orders := sorted(d.orders,
		func(o models.Order) bool { return o.UserID == userID },
		func(a, b models.Order) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		},
	)
	for i := range orders {
		orders[i].Items = d.orderItems(orders[i].ID)
	}
	return orders, nil
}

func (r orderRepo) ListItems(_ context.Context, orderID int) ([]models.OrderItem, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return d.orderItems(orderID), nil
}

type paymentRepo struct{ st *state }

func (r paymentRepo) Upsert(_ context.Context, p *models.Payment) error {
	if p.OrderID <= 0 || p.UserID <= 0 || p.Reference == "" {
		return fmt.Errorf("%w: order, user and reference required", repository.ErrInvalidInput)
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}

	d, unlock := r.st.lock()
	defer unlock()

	if _, ok := d.orders[p.OrderID]; !ok {
		return repository.ErrNotFound
	}

	now := time.Now()
	for _, existing := range d.payments {
		if existing.OrderID == p.OrderID {
			p.ID, p.Reference, p.CreatedAt, p.UpdatedAt = existing.ID, existing.Reference, existing.CreatedAt, now
			d.payments[p.ID] = *p
			return nil
		}
		if existing.Reference == p.Reference {
			return fmt.Errorf("%w: payment reference %s", repository.ErrDuplicate, p.Reference)
		}
	}

	p.ID, p.CreatedAt, p.UpdatedAt = d.id(), now, now
	d.payments[p.ID] = *p
	return nil
}

func (r paymentRepo) GetByOrderID(_ context.Context, orderID int) (*models.Payment, error) {
	d, unlock := r.st.lock()
	defer unlock()

	for _, p := range d.payments {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r paymentRepo) GetByUserID(_ context.Context, userID int) ([]models.Payment, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.payments,
		func(p models.Payment) bool { return p.UserID == userID },
		func(a, b models.Payment) int { return cmp.Compare(b.ID, a.ID) },
	), nil
}

type reviewRepo struct{ st *state }

func (d *data) verifiedPurchase(userID, productID int) bool {
	for _, item := range d.items {
		if item.ProductID == nil || *item.ProductID != productID {
			continue
		}
		if o := d.orders[item.OrderID]; o.UserID == userID && o.Status == models.OrderStatusDelivered {
			return true
		}
	}
	return false
}

func (d *data) decorateReview(rv models.Review) models.Review {
	p := d.products[rv.ProductID]
	rv.ProductName, rv.ProductSlug = p.Name, p.Slug
	rv.IsVerifiedPurchase = d.verifiedPurchase(rv.UserID, rv.ProductID)
	return rv
}

func validateReview(rv *models.Review) error {
	if rv.Rating < 1 || rv.Rating > 5 || strings.TrimSpace(rv.Comment) == "" {
		return fmt.Errorf("%w: invalid review", repository.ErrInvalidInput)
	}
	return nil
}

func (r reviewRepo) Create(_ context.Context, rv *models.Review) error {
	if err := validateReview(rv); err != nil {
		return err
	}

	d, unlock := r.st.lock()
	defer unlock()

	if _, ok := d.products[rv.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	for _, other := range d.reviews {
		if other.UserID == rv.UserID && other.ProductID == rv.ProductID {
			return fmt.Errorf("%w: review for product %d", repository.ErrDuplicate, rv.ProductID)
		}
	}

	now := time.Now()
	rv.ID, rv.CreatedAt, rv.UpdatedAt = d.id(), now, now
	d.reviews[rv.ID] = *rv
	return nil
}

func (r reviewRepo) Update(_ context.Context, rv *models.Review) error {
	if err := validateReview(rv); err != nil {
		return err
	}

	d, unlock := r.st.lock()
	defer unlock()

	stored, ok := d.reviews[rv.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Rating, stored.Title, stored.Comment, stored.UpdatedAt = rv.Rating, rv.Title, rv.Comment, time.Now()
	rv.UpdatedAt = stored.UpdatedAt
	d.reviews[rv.ID] = stored
	return nil
}

func (r reviewRepo) Delete(_ context.Context, id int) error {
	d, unlock := r.st.lock()
	defer unlock()

	if _, ok := d.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(d.reviews, id)
	return nil
}

func (r reviewRepo) GetByID(_ context.Context, id int) (*models.Review, error) {
	d, unlock := r.st.lock()
	defer unlock()

	rv, ok := d.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rv = d.decorateReview(rv)
	return &rv, nil
}

func (r reviewRepo) GetByUserAndProduct(_ context.Context, userID, productID int) (*models.Review, error) {
	d, unlock := r.st.lock()
	defer unlock()

	for _, rv := range d.reviews {
		if rv.UserID == userID && rv.ProductID == productID {
			rv = d.decorateReview(rv)
			return &rv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r reviewRepo) List(_ context.Context, f repository.ReviewFilter) ([]models.Review, error) {
	d, unlock := r.st.lock()
	defer unlock()

	out := sorted(d.reviews,
		func(rv models.Review) bool {
			return (f.ProductID == 0 || rv.ProductID == f.ProductID) &&
				(f.ProductSlug == "" || d.products[rv.ProductID].Slug == f.ProductSlug) &&
				(f.UserID == 0 || rv.UserID == f.UserID) &&
				(!f.ApprovedOnly || rv.IsApproved)
		},
		func(a, b models.Review) int { return cmp.Compare(b.ID, a.ID) },
	)
	for i := range out {
		out[i] = d.decorateReview(out[i])
	}
	return out, nil
}

func (r reviewRepo) Stats(_ context.Context, productID int) (*models.ReviewStats, error) {
	d, unlock := r.st.lock()
	defer unlock()

	counts := make(map[int]int)
	for _, rv := range d.reviews {
		if rv.ProductID == productID && rv.IsApproved {
			counts[rv.Rating]++
		}
	}
	return repository.NewReviewStats(counts), nil
}

type wishlistRepo struct{ st *state }

func (r wishlistRepo) Add(_ context.Context, item *models.WishlistItem) error {
	d, unlock := r.st.lock()
	defer unlock()

	if _, ok := d.products[item.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	for _, other := range d.wishlist {
		if other.UserID == item.UserID && other.ProductID == item.ProductID {
			return fmt.Errorf("%w: product %d already in wishlist", repository.ErrDuplicate, item.ProductID)
		}
	}

	item.ID, item.CreatedAt = d.id(), time.Now()
	stored := *item
	stored.Product = nil
	d.wishlist[item.ID] = stored
	return nil
}

func (r wishlistRepo) Get(_ context.Context, userID, productID int) (*models.WishlistItem, error) {
	d, unlock := r.st.lock()
	defer unlock()

	for _, w := range d.wishlist {
		if w.UserID == userID && w.ProductID == productID {
			return &w, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r wishlistRepo) ListByUser(_ context.Context, userID int) ([]models.WishlistItem, error) {
	d, unlock := r.st.lock()
	defer unlock()

	items := sorted(d.wishlist,
		func(w models.WishlistItem) bool { return w.UserID == userID },
		func(a, b models.WishlistItem) int { return cmp.Compare(b.ID, a.ID) },
	)
	for i := range items {
		p := d.products[items[i].ProductID]
		items[i].Product = &p
	}
	return items, nil
}

func (r wishlistRepo) Remove(_ context.Context, userID, productID int) error {
	d, unlock := r.st.lock()
	defer unlock()

	for k, w := range d.wishlist {
		if w.UserID == userID && w.ProductID == productID {
			delete(d.wishlist, k)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r wishlistRepo) DeleteByID(_ context.Context, userID, id int) error {
	d, unlock := r.st.lock()
	defer unlock()

	if w, ok := d.wishlist[id]; !ok || w.UserID != userID {
		return repository.ErrNotFound
	}
	delete(d.wishlist, id)
	return nil
}

func (r wishlistRepo) Clear(_ context.Context, userID int) (int64, error) {
	d, unlock := r.st.lock()
	defer unlock()

	var n int64
	for k, w := range d.wishlist {
		if w.UserID == userID {
			delete(d.wishlist, k)
			n++
		}
	}
	return n, nil
}

type notificationRepo struct{ st *state }

func (r notificationRepo) Create(_ context.Context, n *models.Notification) error {
	if n.UserID <= 0 || strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: user and title required", repository.ErrInvalidInput)
	}
	if n.Type == "" {
		n.Type = models.NotificationSystem
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: invalid notification type '%s'", repository.ErrInvalidInput, n.Type)
	}

	d, unlock := r.st.lock()
	defer unlock()

	n.ID, n.IsRead, n.CreatedAt = d.id(), false, time.Now()
	d.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) ListByUser(_ context.Context, userID int) ([]models.Notification, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.notifications,
		func(n models.Notification) bool { return n.UserID == userID },
		func(a, b models.Notification) int { return cmp.Compare(b.ID, a.ID) },
	), nil
}

func (r notificationRepo) UnreadCount(_ context.Context, userID int) (int, error) {
	d, unlock := r.st.lock()
	defer unlock()

	count := 0
	for _, n := range d.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) MarkRead(_ context.Context, userID, id int) (*models.Notification, error) {
	d, unlock := r.st.lock()
	defer unlock()

	n, ok := d.notifications[id]
	if !ok || n.UserID != userID {
		return nil, repository.ErrNotFound
	}
	n.IsRead = true
	d.notifications[id] = n
	return &n, nil
}

func (r notificationRepo) MarkAllRead(_ context.Context, userID int) (int64, error) {
	d, unlock := r.st.lock()
	defer unlock()

	var count int64
	for k, n := range d.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			d.notifications[k] = n
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) Delete(_ context.Context, userID, id int) error {
	d, unlock := r.st.lock()
	defer unlock()

	if n, ok := d.notifications[id]; !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	delete(d.notifications, id)
	return nil
}

func (r notificationRepo) Clear(_ context.Context, userID int) (int64, error) {
	d, unlock := r.st.lock()
	defer unlock()

	var count int64
	for k, n := range d.notifications {
		if n.UserID == userID {
			delete(d.notifications, k)
			count++
		}
	}
	return count, nil
}

type stockOperationRepo struct{ st *state }

func (r stockOperationRepo) Create(_ context.Context, o *models.StockOperation) error {
	if o.ProductID <= 0 || o.ChangeQuant == 0 || !o.OperationType.Valid() || o.StockAfter < 0 {
		return fmt.Errorf("%w: invalid stock operation", repository.ErrInvalidInput)
	}

	d, unlock := r.st.lock()
	defer unlock()

	if _, ok := d.products[o.ProductID]; !ok {
		return fmt.Errorf("%w: product %d", repository.ErrProductNotFound, o.ProductID)
	}

	o.ID, o.CreatedAt = d.id(), time.Now()
	d.stockOps[o.ID] = *o
	return nil
}

func (r stockOperationRepo) ListByProduct(_ context.Context, productID int) ([]models.StockOperation, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.stockOps,
		func(o models.StockOperation) bool { return o.ProductID == productID },
		func(a, b models.StockOperation) int { return cmp.Compare(b.ID, a.ID) },
	), nil
}

func (r stockOperationRepo) ListByOrder(_ context.Context, orderID int) ([]models.StockOperation, error) {
	d, unlock := r.st.lock()
	defer unlock()

	return sorted(d.stockOps,
		func(o models.StockOperation) bool { return o.OrderID != nil && *o.OrderID == orderID },
		func(a, b models.StockOperation) int { return cmp.Compare(a.ID, b.ID) },
	), nil
}
