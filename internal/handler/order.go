package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"makemodel/internal/model"
	"makemodel/internal/service"
)

type createOrderRequest struct {
	ModelID            string `json:"model_id" validate:"required"`
	CreatorID          string `json:"creator_id" validate:"required"`
	ConceptDescription string `json:"concept_description" validate:"required,max=5000"`
	PackageType        string `json:"package_type" validate:"required,oneof=standard premium exclusive"`
	ImageCount         int    `json:"image_count" validate:"required,min=1"`
	IsExclusive        bool   `json:"is_exclusive"`
	ExclusiveMonths    *int   `json:"exclusive_months" validate:"omitempty,min=1"`
	TotalPrice         *int64 `json:"total_price" validate:"required,gte=0"`
}

func CreateOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req createOrderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		order, err := orderSvc.Create(r.Context(), actor, service.CreateOrderInput{
			ModelID:            req.ModelID,
			CreatorID:          req.CreatorID,
			ConceptDescription: req.ConceptDescription,
			PackageType:        model.PackageType(req.PackageType),
			ImageCount:         req.ImageCount,
			IsExclusive:        req.IsExclusive,
			ExclusiveMonths:    req.ExclusiveMonths,
			TotalPrice:         *req.TotalPrice,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

func ListOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		page, err := pageFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		status := model.OrderStatus(r.URL.Query().Get("status"))
		orders, err := orderSvc.List(r.Context(), actor, status, page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func GetOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		order, err := orderSvc.Get(r.Context(), chi.URLParam(r, "orderID"), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

type transitionRequest struct {
	Action string `json:"action" validate:"required"`
}

func TransitionOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req transitionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		order, err := orderSvc.Transition(r.Context(), chi.URLParam(r, "orderID"), model.OrderAction(req.Action), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}
