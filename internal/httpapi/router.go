// Package httpapi is the REST surface of the marketplace: chi routes, the
// response envelope and the per-role route groups.
package httpapi

import (
	"net/http"

	"getir-be/internal/analytics"
	"getir-be/internal/auth"
	"getir-be/internal/cart"
	"getir-be/internal/category"
	"getir-be/internal/config"
	"getir-be/internal/driver"
	"getir-be/internal/location"
	"getir-be/internal/logger"
	"getir-be/internal/metrics"
	"getir-be/internal/middleware"
	"getir-be/internal/notification"
	"getir-be/internal/order"
	"getir-be/internal/product"
	"getir-be/internal/role"
	"getir-be/internal/store"
	"getir-be/internal/storetype"
	"getir-be/internal/user"

	"github.com/go-chi/chi/v5"
)

// Deps are the services the routes dispatch to.
type Deps struct {
	Config *config.Config
	Tokens *auth.TokenIssuer

	Auth          auth.Service
	Users         user.Service
	Categories    category.Service
	StoreTypes    storetype.Service
	Stores        store.Service
	Products      product.Service
	Carts         cart.Service
	Orders        order.Service
	Notifications notification.Service
	Drivers       driver.Service
	Locations     location.Service
	Analytics     analytics.Service

	Limiter *middleware.RateLimiter
	Metrics *metrics.Registry
}

type Handler struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.NewRegistry()
	}
	h := &Handler{Deps: d}

	r := chi.NewRouter()
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.CORS(d.Config.CORSOrigin))
	r.Use(middleware.AuthMiddleware(d.Tokens, d.Users))
	r.Use(logger.LoggingMiddleware)
	r.Use(h.countRequests)
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/config/client", h.clientConfig)

	// auth
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/verify-phone", h.verifyPhone)
	r.Post("/resend-verification", h.resendVerification)
	r.Post("/logout", h.logout)

	// catalog
	r.Get("/categories", h.listCategories)
	r.Get("/categories/{id}", h.getCategory)
	r.Get("/store-types", h.listStoreTypes)
	r.Get("/stores", h.listStores)
	r.Get("/stores/{id}", h.getStore)
	r.Get("/stores/{id}/products", h.listStoreProducts)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.productDetail)

	// geography
	r.Get("/governorates", h.listGovernorates)
	r.Get("/governorates/{id}/cities", h.listCities)
	r.Get("/cities/{id}/areas", h.listAreas)

	// guests keep a cookie-keyed cart
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.viewCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addCartItem)
		r.Put("/items/{productID}", h.updateCartItem)
		r.Delete("/items/{productID}", h.removeCartItem)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/me", h.me)
		r.Put("/profile", h.updateProfile)
		r.Put("/password", h.changePassword)

		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listMyOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)

		r.Get("/notifications", h.listNotifications)
		r.Get("/notifications/unread-count", h.unreadCount)
		r.Post("/notifications/read-all", h.markAllRead)
		r.Post("/notifications/{id}/read", h.markRead)
		r.Delete("/notifications/{id}", h.deleteNotification)
		r.Post("/push-subscriptions", h.subscribePush)
		r.Delete("/push-subscriptions", h.unsubscribePush)

		r.Get("/locations", h.listLocations)
		r.Post("/locations", h.createLocation)
		r.Get("/locations/{id}", h.getLocation)
		r.Put("/locations/{id}", h.updateLocation)
		r.Delete("/locations/{id}", h.deleteLocation)
		r.Post("/locations/{id}/default", h.setDefaultLocation)

		r.Post("/driver-applications", h.submitDriverApplication)
		r.Get("/driver-applications/mine", h.myDriverApplications)

		r.With(middleware.RequireRole(role.Customer, role.StoreOwner)).Post("/stores", h.setupStore)
		r.Get("/dashboard/customer", h.customerDashboard)
	})

	r.Route("/store", func(r chi.Router) {
		r.Use(middleware.RequireRole(role.StoreOwner))

		r.Get("/", h.myStore)
		r.Put("/", h.updateMyStore)
		r.Get("/products", h.listOwnProducts)
		r.Get("/products/low-stock", h.listLowStock)
		r.Post("/products", h.createOwnProduct)
		r.Put("/products/{id}", h.updateOwnProduct)
		r.Put("/products/{id}/stock", h.setOwnStock)
		r.Delete("/products/{id}", h.deleteOwnProduct)
		r.Get("/orders", h.listStoreOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/status", h.advanceOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)
	})
	r.With(middleware.RequireRole(role.StoreOwner)).Get("/dashboard/store", h.storeDashboard)

	r.Route("/driver", func(r chi.Router) {
		r.Use(middleware.RequireRole(role.Driver))

		r.Get("/orders/available", h.listAvailableOrders)
		r.Get("/orders", h.listAssignedOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/claim", h.claimOrder)
		r.Post("/orders/{id}/deliver", h.deliverOrder)
	})
	r.With(middleware.RequireRole(role.Driver)).Get("/dashboard/driver", h.driverDashboard)

	adminOnly := middleware.RequireAdminAccess(d.Users)
	r.With(adminOnly).Get("/dashboard/admin", h.adminDashboard)
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminOnly)

		r.Get("/users", h.listUsers)
		r.Post("/users", h.createUser)
		r.Put("/users/{id}/type", h.updateUserType)
		r.Delete("/users/{id}", h.deleteUser)

		r.Get("/access", h.listAdminAccess)
		r.Post("/access", h.grantAdminAccess)
		r.Delete("/access/{phone}", h.revokeAdminAccess)

		r.Get("/driver-applications", h.listDriverApplications)
		r.Post("/driver-applications/{id}/approve", h.approveDriverApplication)
		r.Post("/driver-applications/{id}/reject", h.rejectDriverApplication)

		r.Get("/stores", h.adminListStores)
		r.Post("/stores/{id}/toggle", h.toggleStore)

		r.Get("/categories", h.adminListCategories)
		r.Post("/categories", h.createCategory)
		r.Put("/categories/{id}", h.updateCategory)
		r.Delete("/categories/{id}", h.deleteCategory)

		r.Get("/store-types", h.adminListStoreTypes)
		r.Post("/store-types", h.createStoreType)
		r.Put("/store-types/{id}", h.updateStoreType)
		r.Delete("/store-types/{id}", h.deleteStoreType)

		r.Post("/products", h.adminCreateProduct)
		r.Put("/products/{id}", h.adminUpdateProduct)
		r.Put("/products/{id}/stock", h.adminSetStock)
		r.Delete("/products/{id}", h.adminDeleteProduct)

		r.Get("/orders", h.listAllOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/overview", h.analyticsOverview)
			r.Get("/daily", h.analyticsDaily)
			r.Get("/monthly", h.analyticsMonthly)
			r.Get("/breakdowns", h.analyticsBreakdowns)
			r.Get("/top", h.analyticsTop)
			r.Get("/delivery-times", h.analyticsDeliveryTimes)
			r.Get("/users", h.analyticsUsers)
			r.Get("/export", h.analyticsExport)
		})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.RequireInternal)

		r.Post("/notifications", h.internalNotify)
		r.Get("/metrics", h.internalMetrics)
	})

	return r
}
