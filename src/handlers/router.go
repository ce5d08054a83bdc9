package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/ledgercore/src/security"
	"github.com/username/ledgercore/src/services"
	"github.com/username/ledgercore/src/utils"
)

// Services is everything the HTTP surface talks to.
type Services struct {
	Accounts   services.AccountStore
	Ledger     services.TransactionLedger
	Transfers  services.TransferCoordinator
	Reversals  services.ReversalHandler
	Reconciler services.Reconciler
	Categories services.CategoryStore
	// Audit serves /api/audit when set.
	Audit      services.AuditLog
}

// NewRouter builds the API router. Extra middlewares run after request
// logging and before authentication.
func NewRouter(svc Services, authService *security.AuthService, middlewares ...func(http.Handler) http.Handler) chi.Router {
	accountHandler := NewAccountHandler(svc.Accounts, svc.Ledger, svc.Reconciler)
	txHandler := NewTransactionHandler(svc.Ledger, svc.Reversals)
	transferHandler := NewTransferHandler(svc.Transfers)
	categoryHandler := NewCategoryHandler(svc.Categories)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(ContextualLoggerMiddleware)
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSON(w, map[string]string{"message": "ledger backend is running"}, http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(authService))

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accountHandler.HandleCreateAccount)
			r.Get("/", accountHandler.HandleListAccounts)
			r.Get("/summary", accountHandler.HandleGetBalanceSummary)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", accountHandler.HandleGetAccount)
				r.Patch("/", accountHandler.HandleUpdateAccount)
				r.Delete("/", accountHandler.HandleDeleteAccount)
				r.Get("/summary", accountHandler.HandleGetTransactionSummary)
				r.Get("/transactions", accountHandler.HandleListAccountTransactions)
				r.Post("/reconcile", accountHandler.HandleReconcile)
				r.Get("/reconciliations", accountHandler.HandleListReconciliations)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", txHandler.HandlePostTransaction)
			r.Get("/", txHandler.HandleListTransactions)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", txHandler.HandleGetTransaction)
				r.Put("/", txHandler.HandleUpdateTransaction)
				r.Delete("/", txHandler.HandleDeleteTransaction)
				r.Post("/reverse", txHandler.HandleReverseTransaction)
				r.Get("/transfer", transferHandler.HandleGetTransferForTransaction)
			})
		})

		r.Post("/transfers", transferHandler.HandleTransfer)

		r.Post("/categories", categoryHandler.HandleCreateCategory)
		r.Get("/categories", categoryHandler.HandleListCategories)

		if svc.Audit != nil {
			r.Get("/audit", NewAuditHandler(svc.Audit).HandleListAuditEntries)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			utils.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		http.NotFound(w, r)
	})

	return r
}
