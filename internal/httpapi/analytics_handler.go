package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"getir-be/internal/analytics"
)

func rangeParam(r *http.Request) analytics.Range {
	return analytics.ParseRange(r.URL.Query().Get("range"))
}

func (h *Handler) customerDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Analytics.CustomerDashboard(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, d)
}

func (h *Handler) storeDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Analytics.StoreDashboard(r.Context(), caller(r), rangeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, d)
}

func (h *Handler) driverDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Analytics.DriverDashboard(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, d)
}

func (h *Handler) adminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Analytics.AdminDashboard(r.Context(), rangeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, d)
}

func (h *Handler) analyticsOverview(w http.ResponseWriter, r *http.Request) {
	o, err := h.Analytics.Overview(r.Context(), rangeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, o)
}

func (h *Handler) analyticsDaily(w http.ResponseWriter, r *http.Request) {
	points, err := h.Analytics.Daily(r.Context(), rangeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, points)
}

func (h *Handler) analyticsMonthly(w http.ResponseWriter, r *http.Request) {
	points, err := h.Analytics.Monthly(r.Context(), rangeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, points)
}

func (h *Handler) analyticsBreakdowns(w http.ResponseWriter, r *http.Request) {
	b, err := h.Analytics.Breakdowns(r.Context(), rangeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, b)
}

// analyticsTop serves ?entity=stores|products|drivers|customers
// &metric=count|revenue&limit=N.
func (h *Handler) analyticsTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, _ := strconv.Atoi(q.Get("limit"))
	leaders, err := h.Analytics.Top(r.Context(), rangeParam(r),
		analytics.Entity(q.Get("entity")), analytics.Metric(q.Get("metric")), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, leaders)
}

func (h *Handler) analyticsDeliveryTimes(w http.ResponseWriter, r *http.Request) {
	d, err := h.Analytics.DeliveryTimes(r.Context(), rangeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, d)
}

func (h *Handler) analyticsUsers(w http.ResponseWriter, r *http.Request) {
	u, err := h.Analytics.Users(r.Context(), rangeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, u)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// analyticsExport buffers the workbook so a failure halfway through can
// still be reported as JSON.
func (h *Handler) analyticsExport(w http.ResponseWriter, r *http.Request) {
	rng := rangeParam(r)

	var buf bytes.Buffer
	if err := h.Analytics.Export(r.Context(), rng, &buf); err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("analytics-%s-%s.xlsx", rng, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
