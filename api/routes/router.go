package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anvo-dev/markethub-backend/api/controllers"
	"github.com/anvo-dev/markethub-backend/api/middleware"
	checkoutsvc "github.com/anvo-dev/markethub-backend/internal/checkout"
	disputesvc "github.com/anvo-dev/markethub-backend/internal/disputes"
	"github.com/anvo-dev/markethub-backend/internal/notifications"
	ordersvc "github.com/anvo-dev/markethub-backend/internal/orders"
	reconcilesvc "github.com/anvo-dev/markethub-backend/internal/reconcile"
	refundsvc "github.com/anvo-dev/markethub-backend/internal/refunds"
	returnsvc "github.com/anvo-dev/markethub-backend/internal/returns"
	walletsvc "github.com/anvo-dev/markethub-backend/internal/wallet"
	"github.com/anvo-dev/markethub-backend/pkg/db"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
)

// NewRouter assembles the HTTP surface of the settlement core. Actor identity
// arrives in the X-Buyer-Id / X-Merchant-Id headers stamped by the edge; the
// admin and ops routes are expected to sit behind an internal ingress.
func NewRouter(
	logg *logger.Logger,
	dbP db.Pinger,
	checkoutService checkoutsvc.Service,
	ordersService ordersvc.Service,
	returnsService returnsvc.Service,
	disputesService disputesvc.Service,
	refundsService refundsvc.Service,
	walletService walletsvc.Service,
	reconcileService reconcilesvc.Service,
	notificationsRepo notifications.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(dbP, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
			r.Post("/{orderID}/confirm", controllers.ConfirmOrder(ordersService, logg))
			r.Post("/{orderID}/ship", controllers.ShipOrder(ordersService, logg))
			r.Post("/{orderID}/deliver", controllers.DeliverOrder(ordersService, logg))
			r.Post("/{orderID}/complete", controllers.CompleteOrder(ordersService, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(ordersService, logg))
			r.Post("/{orderID}/payment-callback", controllers.PaymentCallback(ordersService, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", controllers.CreateReturn(returnsService, logg))
			r.Get("/{returnID}", controllers.GetReturn(returnsService, logg))
			r.Post("/{returnID}/respond", controllers.RespondToReturn(returnsService, logg))
			r.Post("/{returnID}/confirm-goods", controllers.ConfirmReturnedGoods(returnsService, logg))
			r.Post("/{returnID}/disputes/rejection", controllers.CreateRejectionDispute(disputesService, logg))
			r.Post("/{returnID}/disputes/quality", controllers.CreateQualityDispute(disputesService, logg))
		})
		r.Post("/return-shipments/{shipmentID}/events", controllers.ReturnShipmentEvent(returnsService, logg))

		r.Route("/disputes", func(r chi.Router) {
			r.Get("/{disputeID}", controllers.GetDispute(disputesService, logg))
			r.Post("/{disputeID}/messages", controllers.AddDisputeMessage(disputesService, logg))
		})

		r.Get("/wallet", controllers.WalletStatement(walletService, logg))
		r.Get("/notifications", controllers.ListNotifications(notificationsRepo, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Post("/disputes/{disputeID}/resolve", controllers.ResolveDispute(disputesService, logg))

		r.Route("/refunds", func(r chi.Router) {
			r.Get("/", controllers.ListPendingRefunds(refundsService, logg))
			r.Post("/{refundID}/execute", controllers.ExecuteRefund(refundsService, logg))
			r.Post("/{refundID}/complete", controllers.CompleteRefund(refundsService, logg))
			r.Post("/{refundID}/reject", controllers.RejectRefund(refundsService, logg))
		})

		r.Route("/reconcile-tasks", func(r chi.Router) {
			r.Get("/", controllers.ListReconcileTasks(reconcileService, logg))
			r.Post("/{taskID}/redrive", controllers.RedriveReconcileTask(reconcileService, logg))
		})
	})

	return r
}
