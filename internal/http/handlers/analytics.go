package handlers

import (
	"errors"
	"net/http"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/store"
	"genfity-analytics-service/pkg/response"
)

// ComputeAnalytics runs the engine over orders posted by the caller.
func (h *Handler) ComputeAnalytics(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	response.Success(w, h.Analytics.Compute(req.Orders, req.toQuery()))
}

func (h *Handler) MerchantAnalytics(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := requireMerchant(w, r)
	if !ok {
		return
	}
	q, ok := h.bindQuery(w, r)
	if !ok {
		return
	}

	result, ok := h.loadMetrics(w, r, merchantID, q)
	if !ok {
		return
	}
	response.Success(w, result)
}

// AnalyticsPeriods lists the selectable period labels.
func (h *Handler) AnalyticsPeriods(w http.ResponseWriter, r *http.Request) {
	response.Success(w, analytics.Periods)
}

func (h *Handler) loadMetrics(w http.ResponseWriter, r *http.Request, merchantID int64, q analytics.Query) (analytics.MetricsResult, bool) {
	result, err := h.Analytics.Metrics(r.Context(), merchantID, q)
	if err != nil {
		if errors.Is(err, store.ErrMerchantNotFound) {
			response.Error(w, http.StatusBadRequest, "MERCHANT_ID_REQUIRED", "Merchant not found")
			return analytics.MetricsResult{}, false
		}
		h.internalError(w, r, "merchant analytics failed", err)
		return analytics.MetricsResult{}, false
	}
	return result, true
}
