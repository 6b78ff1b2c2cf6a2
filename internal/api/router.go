// Package api assembles the HTTP surface: chi routes, CORS, authentication
// and request logging in front of the handlers.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"shopsphere/internal/api/handlers"
	"shopsphere/internal/api/middleware"
	"shopsphere/internal/assets"
	"shopsphere/internal/notify"
	"shopsphere/internal/service"
)

type Deps struct {
	Catalog       *service.CatalogService
	Orders        *service.OrderService
	Payments      *service.PaymentService
	Reviews       *service.ReviewService
	Wishlist      *service.WishlistService
	Notifications *service.NotificationService

	// Hub is optional; without it the websocket endpoint answers 503.
	Hub *notify.Hub

	Resolver    assets.Resolver
	Auth        *middleware.Authenticator
	CORSOrigins []string
	Logger      *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	products := handlers.NewProductHandler(d.Catalog, d.Resolver)
	catalog := handlers.NewCatalogHandler(d.Catalog, d.Resolver)
	orders := handlers.NewOrderHandler(d.Orders)
	payments := handlers.NewPaymentHandler(d.Payments)
	reviews := handlers.NewReviewHandler(d.Reviews)
	wishlist := handlers.NewWishlistHandler(d.Wishlist, d.Resolver)
	notifications := handlers.NewNotificationHandler(d.Notifications, d.Hub)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"shopsphere-api"}` + "\n"))
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", catalog.Categories)
		r.Get("/tree", catalog.CategoryTree)
		r.Get("/root", catalog.RootCategories)
		r.Get("/featured", catalog.FeaturedCategories)
		r.Get("/{slug}", catalog.Category)
		r.Get("/{slug}/subcategories", catalog.Subcategories)
	})

	r.Route("/brands", func(r chi.Router) {
		r.Get("/", catalog.Brands)
		r.Get("/featured", catalog.FeaturedBrands)
		r.Get("/{slug}", catalog.Brand)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", products.List)
		r.Get("/featured", products.Featured)
		r.Get("/new-arrivals", products.NewArrivals)
		r.Get("/bestsellers", products.Bestsellers)
		r.Get("/on-sale", products.OnSale)
		r.Get("/{slug}", products.GetBySlug)
		r.Get("/{slug}/related", products.Related)
	})

	r.Route("/shipping-options", func(r chi.Router) {
		r.Get("/", catalog.ShippingOptions)
		r.Get("/available", catalog.AvailableShipping)
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", reviews.List)
		r.Get("/product/{slug}/stats", reviews.Stats)

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Required)
			r.Post("/", reviews.Create)
			r.Get("/mine", reviews.Mine)
			r.Get("/check/{product_id}", reviews.Check)
			r.Put("/{id}", reviews.Update)
			r.Delete("/{id}", reviews.Delete)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.Required)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.List)
			r.Post("/", orders.Create)
			r.Get("/{id}", orders.Get)
			r.Delete("/{id}", orders.Cancel)
			r.Post("/{id}/cancel", orders.Cancel)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", payments.List)
			r.Post("/process", payments.Process)
			r.Get("/order/{order_id}", payments.GetByOrder)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlist.List)
			r.Post("/", wishlist.Add)
			r.Post("/toggle/{product_id}", wishlist.Toggle)
			r.Get("/check/{product_id}", wishlist.Check)
			r.Delete("/clear", wishlist.Clear)
			r.Delete("/{id}", wishlist.Remove)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notifications.List)
			r.Get("/unread-count", notifications.UnreadCount)
			r.Get("/ws", notifications.Stream)
			r.Post("/mark-all-read", notifications.MarkAllRead)
			r.Patch("/{id}/read", notifications.MarkRead)
			r.Delete("/clear", notifications.Clear)
			r.Delete("/{id}", notifications.Delete)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireStaff)

			r.Get("/products", products.GetAll)
			r.Post("/products", products.Create)
			r.Put("/products/{id}", products.Update)
			r.Delete("/products/{id}", products.Delete)
			r.Post("/products/{id}/images", products.AddImage)
			r.Post("/products/{id}/specifications", products.AddSpecification)
			r.Post("/products/{id}/stock", products.AdjustStock)
			r.Get("/products/{id}/stock-operations", products.StockHistory)
			r.Post("/categories", catalog.CreateCategory)
			r.Post("/brands", catalog.CreateBrand)
			r.Post("/shipping-options", catalog.CreateShippingOption)
			r.Patch("/orders/{id}/status", orders.UpdateStatus)
		})
	})

	return r
}
