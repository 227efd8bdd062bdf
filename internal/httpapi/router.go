package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"hotelapi/internal/api"
	"hotelapi/internal/auth"
	"hotelapi/internal/billing"
	"hotelapi/internal/booking"
	"hotelapi/internal/events"
	"hotelapi/internal/gantt"
	"hotelapi/internal/hotel"
	"hotelapi/internal/partner"
	"hotelapi/internal/pricing"
	"hotelapi/internal/states"
	"hotelapi/internal/user"
	"hotelapi/pkg/blob"
	"hotelapi/pkg/config"
	"hotelapi/pkg/metrics"
)

type Dependencies struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Auth    *auth.Service
	Blobs   blob.Store
	Events  events.Publisher
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	loc := deps.Cfg.Location()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(api.CORSMiddleware(api.CORSOptions{
		AllowedOrigins: deps.Cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key"},
		MaxAgeSeconds:  600,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	authHandlers := auth.Handlers{Svc: deps.Auth}
	bookingHandlers := booking.Handlers{
		DB:        deps.DB,
		Loc:       loc,
		Currency:  deps.Cfg.Hotel.DefaultCurrency,
		Blobs:     deps.Blobs,
		Events:    deps.Events,
		Metrics:   deps.Metrics,
		OnConfirm: billing.ConfirmHook,
		Now:       deps.Now,
	}
	pricingHandlers := pricing.Handlers{DB: deps.DB, Loc: loc, Events: deps.Events, Metrics: deps.Metrics, Now: deps.Now}
	billingHandlers := billing.Handlers{DB: deps.DB, Loc: loc, Events: deps.Events, Bookings: bookingHandlers, Now: deps.Now}
	ganttHandlers := gantt.Handlers{DB: deps.DB, Loc: loc, Now: deps.Now}
	stateHandlers := states.Handlers{}
	contactHandlers := partner.Handlers{DB: deps.DB, Loc: loc, Now: deps.Now}
	userHandlers := user.Handlers{DB: deps.DB}
	hotelHandlers := hotel.Handlers{DB: deps.DB}
	requireAuth := api.RequireAuth(deps.Auth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authHandlers.Login)
		r.Post("/validate", authHandlers.Validate)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/generate_key", authHandlers.GenerateKey)
			r.Get("/my_keys", authHandlers.MyKeys)
			r.Post("/revoke_key/{key_id}", authHandlers.RevokeKey)
			r.Delete("/revoke_key/{key_id}", authHandlers.RevokeKey)
			r.Get("/test_key", authHandlers.TestKey)
			r.Post("/test_key", authHandlers.TestKey)
		})
	})

	r.Route("/api/hotel", func(r chi.Router) {
		r.Get("/health", health(deps.Cfg.Hotel.APIVersion, deps.Now))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			// Bookings
			r.Get("/reservas", bookingHandlers.List)
			r.Get("/reservas/habitacion/{room_id}", bookingHandlers.ListByRoom)
			r.Get("/reservas/{hotel_id}", bookingHandlers.ListByHotel)
			r.Post("/reserva", bookingHandlers.Create)
			r.Get("/reserva/{id}", bookingHandlers.Get)
			r.Put("/reserva/{id}", bookingHandlers.Update)
			r.Delete("/reserva/{id}", bookingHandlers.Delete)
			r.Post("/reserva/{id}/habitaciones", bookingHandlers.AddRooms)
			r.Put("/reserva/{id}/estado", bookingHandlers.ChangeStatus)
			r.Post("/reserva/{id}/update_guests", bookingHandlers.UpdateGuests)
			r.Put("/reserva/{id}/update_guests", bookingHandlers.UpdateGuests)
			r.Post("/reserva/{id}/send_email", bookingHandlers.SendEmail)
			r.Get("/reserva/{id}/documents/{doc_id}", bookingHandlers.Document)
			r.Get("/reserva/{id}/change_room/options", bookingHandlers.ChangeRoomOptions)
			r.Post("/reserva/{id}/change_room/options", bookingHandlers.ChangeRoomOptions)
			r.Post("/reserva/{id}/change_room", bookingHandlers.ChangeRoom)

			// Billing
			r.Post("/reserva/{id}/advance_payment", billingHandlers.AdvancePayment)
			r.Get("/reserva/{id}/advance_payment/options", billingHandlers.AdvancePaymentOptions)
			r.Post("/reserva/{id}/payments", billingHandlers.RegisterPayment)
			r.Post("/reserva/{id}/create_invoice", billingHandlers.CreateInvoice)
			r.Post("/reserva/{id}/print_bill", billingHandlers.PrintBill)
			r.Post("/reserva/{id}/mark_room_ready", billingHandlers.MarkRoomReady)
			r.Post("/reserva/{id}/sync_services", billingHandlers.SyncServices)

			// Extra infos
			r.Get("/booking/{id}/extra_infos", bookingHandlers.GetExtraInfos)
			r.Put("/booking/{id}/extra_infos", bookingHandlers.UpdateExtraInfos)
			r.Post("/booking/{id}/extra_infos/remarks", bookingHandlers.UpdateRemarks)
			r.Post("/booking/{id}/extra_infos/company", bookingHandlers.UpdateCompany)

			// Prices
			r.Get("/booking_line/{line_id}/price_info", pricingHandlers.LinePriceInfo)
			r.Get("/booking_line/{line_id}/price_history", pricingHandlers.LinePriceHistory)
			r.Post("/booking_line/{line_id}/change_price", pricingHandlers.ChangePrice)
			r.Post("/booking_line/{line_id}/reset_price", pricingHandlers.ResetPrice)
			r.Get("/booking/{id}/lines/price_info", pricingHandlers.BookingLines)
			r.Get("/booking/{id}/price_info", pricingHandlers.BookingPriceInfo)
			r.Put("/booking/{id}/price_info", pricingHandlers.UpdatePriceInfo)
			r.Post("/booking/{id}/price_info/recalculate", pricingHandlers.Recalculate)
			r.Get("/booking/{id}/price_breakdown", pricingHandlers.PriceBreakdown)
			r.Get("/booking/{id}/price_history", pricingHandlers.BookingPriceHistory)
			r.Get("/user/{user_id}/price_summary", pricingHandlers.UserPriceSummary)
			r.Get("/user/{user_id}/price_breakdown", pricingHandlers.UserPriceBreakdown)
			r.Get("/user/{user_id}/price_filters", pricingHandlers.UserPriceFilters)
			r.Get("/user/{user_id}/guests", pricingHandlers.UserGuests)
			r.Get("/user/{user_id}/guest/{guest_id}/price_info", pricingHandlers.UserGuestPriceInfo)
			r.Get("/guest/{id}/price_info", pricingHandlers.GuestPriceInfo)
			r.Get("/partner/{id}/price_info", pricingHandlers.PartnerPriceInfo)

			r.Get("/gantt/data", ganttHandlers.Data)

			// Hotels and rooms
			r.Get("/hoteles", hotelHandlers.Hotels)
			r.Get("/hoteles/search", hotelHandlers.Search)
			r.Get("/hoteles/{id}", hotelHandlers.Hotel)
			r.Get("/hoteles/{id}/cuartos", hotelHandlers.HotelRooms)
			r.Get("/cuartos", hotelHandlers.Rooms)
			r.Get("/cuartos/{id}", hotelHandlers.Room)
			r.Get("/habitaciones", hotelHandlers.Habitaciones)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/hotel/states", func(r chi.Router) {
			r.Get("/", stateHandlers.All)
			r.Get("/validate-transition", stateHandlers.ValidateTransition)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/booking", stateHandlers.BookingStates)
				r.Get("/booking/{code}", stateHandlers.BookingState)
				r.Get("/housekeeping", stateHandlers.HousekeepingStates)
				r.Get("/housekeeping/{code}", stateHandlers.HousekeepingState)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/contacts", contactHandlers.List)
			r.Get("/contacts/search", contactHandlers.List)
			r.Get("/contacts/stats", contactHandlers.Stats)
			r.Get("/contacts/export", contactHandlers.Export)
			r.Get("/contacts/{id}", contactHandlers.Get)

			r.Get("/responsables", userHandlers.List)
			r.Get("/responsables/search", userHandlers.List)
			r.Get("/responsables/stats", userHandlers.Stats)
			r.Get("/responsables/{id}", userHandlers.Get)
		})
	})

	return r
}
