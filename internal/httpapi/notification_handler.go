package httpapi

import (
	"net/http"

	"getir-be/internal/apperr"
	"getir-be/internal/notification"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, page := pagination(r)
	items, total, err := h.Notifications.List(r.Context(), caller(r), queryBool(r, "unread"), limit, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list(w, items, limit, page, total)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.UnreadCount(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, map[string]int{"unread": n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Notifications.MarkRead(r.Context(), caller(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.MarkAllRead(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, map[string]int64{"updated": n})
}

func (h *Handler) deleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Notifications.Delete(r.Context(), caller(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

// subscriptionRequest mirrors the browser PushSubscription JSON.
type subscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *Handler) subscribePush(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.Notifications.Subscribe(r.Context(), notification.PushSubscription{
		UserID:   caller(r),
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, sub)
}

func (h *Handler) unsubscribePush(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Notifications.Unsubscribe(r.Context(), caller(r), req.Endpoint); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

type internalNotifyRequest struct {
	UserID uint           `json:"user_id"`
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data"`
}

// internalNotify lets trusted services drop a message into a user's feed.
func (h *Handler) internalNotify(w http.ResponseWriter, r *http.Request) {
	var req internalNotifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.UserID == 0 {
		writeError(w, r, apperr.Invalid("user_id", "required"))
		return
	}
	if err := h.Notifications.Notify(r.Context(), req.UserID, req.Type, req.Title, req.Body, req.Data); err != nil {
		writeError(w, r, err)
		return
	}
	created(w, nil)
}

func (h *Handler) internalMetrics(w http.ResponseWriter, r *http.Request) {
	ok(w, h.Metrics.Snapshot())
}
