package http

import (
	"net/http"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Auth     *AuthHandler
	Settings *SettingsHandler
	Shop     *ShopHandler
	Orders   *OrdersHandler
}

type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	Sessions       *SessionManager
	Log            logrus.FieldLogger
}

type HomePage struct {
	User *domain.Identity `json:"user"`
}

func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.Sessions.Middleware)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, HomePage{User: identityOf(r)})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Get("/count", h.Cart.Count)
			r.Group(func(r chi.Router) {
				r.Use(RequireCustomer)
				r.Post("/add", h.Cart.AddItem)
				r.Post("/update", h.Cart.UpdateQuantity)
				r.Post("/remove", h.Cart.RemoveItem)
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(RequireShopper)
			r.Get("/", h.Checkout.Shipping)
			r.Post("/", h.Checkout.SubmitShipping)
			r.Get("/payment", h.Checkout.Payment)
			r.Post("/payment", h.Checkout.SubmitPayment)
			r.Get("/review", h.Checkout.Review)
			r.Post("/review", h.Checkout.PlaceOrder)
			r.Get("/success", h.Checkout.Success)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Get("/signin", h.Auth.Page("signin"))
			r.Post("/signin", h.Auth.SignIn)
			r.Get("/signup", h.Auth.Page("signup"))
			r.Post("/signup", h.Auth.SignUp)
			r.Get("/forgot-password", h.Auth.Page("forgot-password"))
			r.Post("/forgot-password", h.Auth.ResetPassword)
			r.Get("/logout", h.Auth.Logout)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Use(RequireAccount)
			r.Get("/", h.Settings.Section("account"))
			r.Get("/notifications", h.Settings.Section("notifications"))
			r.Get("/preferences", h.Settings.Section("preferences"))
			r.Get("/help", h.Settings.Section("help"))
			r.Post("/account", h.Settings.UpdateAccount)
			r.Post("/password", h.Settings.ChangePassword)
			r.Post("/notifications", h.Settings.UpdateNotifications)
			r.Post("/preferences", h.Settings.UpdatePreferences)
		})

		r.Route("/shop", func(r chi.Router) {
			r.Get("/", h.Shop.List)
			r.Get("/{productId}", h.Shop.Get)
			r.Post("/{productId}/review", h.Shop.AddReview)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.Orders.ListOrders)
			r.Get("/orders", h.Orders.ListOrders)
			r.Post("/orders/{orderNumber}/status", h.Orders.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
