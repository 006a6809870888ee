package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"makemodel/internal/model"
	"makemodel/internal/service"
)

type createPaymentRequest struct {
	OrderID       string `json:"order_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card transfer"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
}

func CreatePaymentHandler(ledger *service.PaymentLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req createPaymentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		payment, err := ledger.CreatePayment(r.Context(), actor, service.CreatePaymentInput{
			OrderID: req.OrderID,
			Method:  model.PaymentMethod(req.PaymentMethod),
			Amount:  req.Amount,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, payment)
	}
}

// GetPaymentHandler answers 404 both for unknown orders and for orders that
// have no payment yet; the error code tells them apart.
func GetPaymentHandler(ledger *service.PaymentLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		payment, err := ledger.GetPaymentForOrder(r.Context(), chi.URLParam(r, "orderID"), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if payment == nil {
			writeJSON(w, http.StatusNotFound, map[string]errorBody{"error": {
				Code:    "payment_not_created",
				Message: "no payment has been created for this order",
			}})
			return
		}
		writeJSON(w, http.StatusOK, payment)
	}
}

type paymentWebhookRequest struct {
	TransactionID    string `json:"transaction_id" validate:"required"`
	ExternalOrderRef string `json:"external_order_ref"`
	Status           string `json:"status" validate:"required"`
	Amount           int64  `json:"amount" validate:"required,gt=0"`
}

// PaymentWebhookHandler receives provider confirmations. It is not behind
// authentication.
func PaymentWebhookHandler(ledger *service.PaymentLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paymentWebhookRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		payment, err := ledger.ConfirmPayment(r.Context(), service.ConfirmPaymentInput{
			TransactionID:    req.TransactionID,
			ExternalOrderRef: req.ExternalOrderRef,
			Status:           req.Status,
			Amount:           req.Amount,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, payment)
	}
}
