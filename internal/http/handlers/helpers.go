package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"genfity-analytics-service/internal/middleware"
	"genfity-analytics-service/pkg/response"

	"go.uber.org/zap"
)

const maxBodyBytes = 16 << 20

func zapError(err error) zap.Field {
	return zap.Error(err)
}

// requireMerchant reads the merchant id placed by MerchantAuth.
func requireMerchant(w http.ResponseWriter, r *http.Request) (int64, bool) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok || authCtx.MerchantID == nil {
		response.Error(w, http.StatusBadRequest, "MERCHANT_ID_REQUIRED", "Merchant context required")
		return 0, false
	}
	return *authCtx.MerchantID, true
}

func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return err
	}
	if len(body) > maxBodyBytes {
		return errors.New("request body too large")
	}
	if strings.TrimSpace(string(body)) == "" {
		return errors.New("request body required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.Logger.Error(msg,
		zapError(err),
		zap.String("path", r.URL.Path),
		zap.String("requestId", middleware.RequestIDFromContext(r.Context())),
	)
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load analytics")
}
