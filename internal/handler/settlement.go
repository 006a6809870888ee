package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"makemodel/internal/service"
)

func ListSettlementsHandler(calc *service.SettlementCalculator) http.HandlerFunc {
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

		settlements, err := calc.List(r.Context(), actor, page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settlements)
	}
}

func GetSettlementHandler(calc *service.SettlementCalculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		settlement, err := calc.Get(r.Context(), chi.URLParam(r, "settlementID"), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settlement)
	}
}

// SettlementSummaryHandler reports the caller's pending and paid-out totals.
func SettlementSummaryHandler(calc *service.SettlementCalculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		summary, err := calc.Summary(r.Context(), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
