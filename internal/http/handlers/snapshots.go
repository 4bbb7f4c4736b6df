package handlers

import (
	"errors"
	"net/http"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/services"
	"genfity-analytics-service/pkg/response"
)

func (h *Handler) snapshotsDisabled(w http.ResponseWriter) bool {
	if h.Snapshots.Enabled() {
		return false
	}
	response.Error(w, http.StatusServiceUnavailable, "SNAPSHOTS_DISABLED", "Snapshot storage is not configured")
	return true
}

func (h *Handler) MerchantSnapshotsCreate(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := requireMerchant(w, r)
	if !ok {
		return
	}
	if h.snapshotsDisabled(w) {
		return
	}
	q, ok := h.bindQuery(w, r)
	if !ok {
		return
	}

	snap, err := h.Snapshots.Create(r.Context(), merchantID, q)
	if err != nil {
		h.internalError(w, r, "analytics snapshot failed", err)
		return
	}
	response.Created(w, snap)
}

func (h *Handler) MerchantSnapshotsList(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := requireMerchant(w, r)
	if !ok {
		return
	}
	if h.snapshotsDisabled(w) {
		return
	}

	snaps, err := h.Snapshots.List(r.Context(), merchantID)
	if err != nil {
		h.internalError(w, r, "analytics snapshot list failed", err)
		return
	}
	response.Success(w, snaps)
}

// CronAnalyticsSnapshots archives the previous day of every active merchant
// unless a period is given.
func (h *Handler) CronAnalyticsSnapshots(w http.ResponseWriter, r *http.Request) {
	startedAt := time.Now().UTC()

	q, ok := h.bindQuery(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("period") == "" && r.URL.Query().Get("startDate") == "" {
		yesterday := h.Analytics.Now().AddDate(0, 0, -1).Format("2006-01-02")
		q = analytics.Query{
			Period:      analytics.PeriodCustom,
			CustomRange: &analytics.CustomRange{Start: yesterday, End: yesterday},
		}
	}

	run, err := h.Snapshots.CreateAll(r.Context(), q)
	if errors.Is(err, services.ErrArchiveDisabled) {
		response.JSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"disabled":  true,
			"startedAt": startedAt,
			"endedAt":   time.Now().UTC(),
		})
		return
	}
	if err != nil {
		h.internalError(w, r, "analytics snapshot cron failed", err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success":   len(run.Failed) == 0,
		"disabled":  false,
		"merchants": run.Merchants,
		"created":   run.Created,
		"failed":    run.Failed,
		"pruned":    run.Pruned,
		"startedAt": startedAt,
		"endedAt":   time.Now().UTC(),
	})
}
