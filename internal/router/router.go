package router

import (
	"net/http"
	"time"

	"billing-service/internal/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func SetupRoutes(
	orderHandler *handler.OrderHandler,
	settlementHandler *handler.SettlementHandler,
	webhookHandler *handler.WebhookHandler,
	walletHandler *handler.WalletHandler,
	serviceToken string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-User-Email", handler.SignatureHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/api/v1/billing/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Gateway webhooks authenticate with their own signature, not the
		// service token.
		r.Post("/webhooks/gateway", webhookHandler.HandleGatewayWebhook)

		// Authenticated API
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(serviceToken, logger))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/deposit", orderHandler.HandleCreateDepositOrder)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/", orderHandler.HandleCreateSubscription)
				r.Post("/trial", orderHandler.HandleStartTrial)
				r.Post("/verify", settlementHandler.HandleVerifySubscription)
				r.Get("/", walletHandler.HandleGetSubscription)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/verify", settlementHandler.HandleVerifyDeposit)
			})

			r.Route("/wallets", func(r chi.Router) {
				r.Get("/", walletHandler.HandleListWallets)
				r.Get("/{wallet_id}/transactions", walletHandler.HandleListTransactions)
				r.Post("/transfer", walletHandler.HandleTransfer)
			})

			r.Route("/withdrawals", func(r chi.Router) {
				r.Post("/", walletHandler.HandleRequestWithdrawal)
				r.Get("/", walletHandler.HandleListWithdrawals)
			})
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()))
		})
	}
}
