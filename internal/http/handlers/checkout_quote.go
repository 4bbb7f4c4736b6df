package handlers

import (
	"net/http"

	"genfity-analytics-service/internal/finance"
	"genfity-analytics-service/pkg/response"
)

func (h *Handler) MerchantCheckoutQuote(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireMerchant(w, r); !ok {
		return
	}

	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	response.Success(w, finance.BuildQuote(req.toInput()))
}
