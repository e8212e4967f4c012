package httpapi

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"getir-be/internal/apperr"
	"getir-be/internal/order"
	"getir-be/internal/utils"
)

type placeOrderRequest struct {
	DeliveryAddress string   `json:"delivery_address"`
	Phone           string   `json:"phone"`
	Notes           string   `json:"notes"`
	PaymentMethod   string   `json:"payment_method"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
}

// decodePlaceOrder accepts the mobile JSON body and the web checkout form.
func decodePlaceOrder(r *http.Request) (placeOrderRequest, error) {
	var req placeOrderRequest

	if !isFormPost(r) {
		err := decodeJSON(r, &req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, apperr.Invalid("body", "malformed form")
	}
	req.DeliveryAddress = r.PostFormValue("delivery_address")
	req.Phone = r.PostFormValue("phone")
	req.Notes = r.PostFormValue("notes")
	req.PaymentMethod = r.PostFormValue("payment_method")

	var v apperr.Validation
	req.Lat = formFloat(r, "lat", &v)
	req.Lng = formFloat(r, "lng", &v)
	return req, v.Err()
}

// isFormPost reports whether the body is a web form rather than JSON.
func isFormPost(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

func formInt(r *http.Request, field string, v *apperr.Validation) int {
	raw := strings.TrimSpace(r.PostFormValue(field))
	if raw == "" {
		v.Add(field, "required")
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.Add(field, "must be an integer")
		return 0
	}
	return n
}

func formFloat(r *http.Request, field string, v *apperr.Validation) *float64 {
	raw := strings.TrimSpace(r.PostFormValue(field))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v.Add(field, "must be a number")
		return nil
	}
	return &f
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaceOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := caller(r)
	o, err := h.Orders.Place(r.Context(), h.cartKey(w, r, false), order.PlaceParams{
		UserID:          userID,
		DeliveryAddress: req.DeliveryAddress,
		Phone:           req.Phone,
		Notes:           req.Notes,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		Lat:             req.Lat,
		Lng:             req.Lng,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Metrics.Counter("orders_placed").Inc()
	created(w, o)
}

// statusFilter reads ?status; unknown values are a validation error rather
// than an empty list.
func statusFilter(r *http.Request) (*order.Status, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	st, valid := order.ParseStatus(raw)
	if !valid {
		return nil, apperr.Invalid("status", "unknown status")
	}
	return &st, nil
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	status, err := statusFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, page := pagination(r)
	orders, total, err := h.Orders.ListMine(r.Context(), caller(r), status, limit, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, orders, limit, page, total)
}

func actor(r *http.Request) order.Actor {
	return order.Actor{UserID: caller(r), Role: utils.GetUserRoleFromContext(r.Context())}
}

// getOrder serves every role; the order service decides visibility.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Get(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Cancel(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Metrics.Counter("orders_cancelled").Inc()
	ok(w, o)
}

// listFilter reads the admin/store order filters. Dates are YYYY-MM-DD in
// UTC; date_to is inclusive.
func listFilter(r *http.Request) (order.ListFilter, error) {
	q := r.URL.Query()
	limit, page := pagination(r)
	f := order.ListFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Sort:   order.SortField(q.Get("sort")),
		Desc:   q.Get("order") != "asc",
		Limit:  limit,
		Page:   page,
	}

	var v apperr.Validation
	status, err := statusFilter(r)
	if err != nil {
		v.Add("status", "unknown status")
	}
	f.Status = status

	if raw := q.Get("date_from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		v.Check(err == nil, "date_from", "must be YYYY-MM-DD")
		f.DateFrom = &t
	}
	if raw := q.Get("date_to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		v.Check(err == nil, "date_to", "must be YYYY-MM-DD")
		end := t.AddDate(0, 0, 1)
		f.DateTo = &end
	}
	switch f.Sort {
	case "", order.SortCreatedAt, order.SortTotal:
	default:
		v.Add("sort", "must be created_at or total")
	}
	return f, v.Err()
}

func (h *Handler) listStoreOrders(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders, total, err := h.Orders.ListForStore(r.Context(), caller(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, orders, f.Limit, f.Page, total)
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.StoreID = queryUint(r, "store_id")
	f.DriverID = queryUint(r, "driver_id")
	f.UserID = queryUint(r, "user_id")

	orders, total, err := h.Orders.ListAll(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, orders, f.Limit, f.Page, total)
}

type advanceRequest struct {
	Status string `json:"status"`
}

func (h *Handler) advanceOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req advanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	next, valid := order.ParseStatus(req.Status)
	if !valid {
		writeError(w, r, apperr.Invalid("status", "unknown status"))
		return
	}

	o, err := h.Orders.Advance(r.Context(), caller(r), id, next)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, o)
}

func (h *Handler) listAvailableOrders(w http.ResponseWriter, r *http.Request) {
	limit, page := pagination(r)
	orders, total, err := h.Orders.ListAvailable(r.Context(), limit, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, orders, limit, page, total)
}

func (h *Handler) listAssignedOrders(w http.ResponseWriter, r *http.Request) {
	status, err := statusFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, page := pagination(r)
	orders, total, err := h.Orders.ListAssigned(r.Context(), caller(r), status, limit, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, orders, limit, page, total)
}

func (h *Handler) claimOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Claim(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, o)
}

func (h *Handler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Deliver(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Metrics.Counter("orders_delivered").Inc()
	ok(w, o)
}
