package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/service"
	"github.com/vaidashi/order-status-sync/internal/session"
	"github.com/vaidashi/order-status-sync/internal/view"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
)

// OrderItem is one order row with its storage id and progress
type OrderItem struct {
	DocID string `json:"docId"`
	*models.Order
	Progress int `json:"progress"`
}

// OrdersView is the session view with rendered rows
type OrdersView struct {
	session.View
	Items []OrderItem `json:"items"`
}

// StatusChange is the response to an advance, cancel or status write
type StatusChange struct {
	Changed bool            `json:"changed"`
	Result  *service.Result `json:"result,omitempty"`
}

type filterRequest struct {
	Status string `json:"status"`
}

type cancelRequest struct {
	Confirm bool `json:"confirm"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func newOrdersView(v session.View) OrdersView {
	items := make([]OrderItem, 0, len(v.Items))
	for _, o := range v.Items {
		items = append(items, OrderItem{
			DocID:    o.DocID,
			Order:    o,
			Progress: service.Progress(o.Status),
		})
	}
	return OrdersView{View: v, Items: items}
}

// getOrdersHandler applies any search, sort or page parameters to the
// caller's session and returns the projected page
func (s *Server) getOrdersHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	if q.Has("search") {
		sess.SetSearch(q.Get("search"))
	}

	if q.Has("sort") || q.Has("dir") {
		key, err := view.ParseSortKey(q.Get("sort"))
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		dir, err := view.ParseDirection(q.Get("dir"))
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		sess.SetSort(key, dir)
	}

	if q.Has("page") {
		page, err := strconv.Atoi(q.Get("page"))
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, "page must be a number")
			return
		}
		sess.SetPage(page)
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    newOrdersView(sess.View()),
	})
}

// createOrderHandler stores a new order
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	if !s.decodeJSON(w, r, &order) {
		return
	}

	if order.Status != "" && !order.Status.Valid() {
		s.respondWithError(w, http.StatusBadRequest, "unknown status "+string(order.Status))
		return
	}

	id, err := s.orders.Create(r.Context(), &order)
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}
	order.DocID = id

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    OrderItem{DocID: id, Order: &order, Progress: service.Progress(order.Status)},
	})
}

// setFilterHandler changes the status filter. An empty status shows every order.
func (s *Server) setFilterHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}

	var req filterRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	status := models.Status(req.Status)
	if status != "" && !status.Valid() {
		s.respondWithError(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	sess.SetFilter(status)

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    newOrdersView(sess.View()),
	})
}

func (s *Server) nextPageHandler(w http.ResponseWriter, r *http.Request) {
	s.movePage(w, r, (*session.Session).NextPage)
}

func (s *Server) prevPageHandler(w http.ResponseWriter, r *http.Request) {
	s.movePage(w, r, (*session.Session).PrevPage)
}

func (s *Server) movePage(w http.ResponseWriter, r *http.Request, move func(*session.Session) int) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}

	move(sess)

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    newOrdersView(sess.View()),
	})
}

// advanceOrderHandler moves an order to its next status
func (s *Server) advanceOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, ok := s.loadOrder(w, r)
	if !ok {
		return
	}

	result, err := s.status.Advance(r.Context(), order)
	s.respondWithStatusChange(w, result, err)
}

// cancelOrderHandler cancels an order when the body confirms it
func (s *Server) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	order, ok := s.loadOrder(w, r)
	if !ok {
		return
	}

	result, err := s.status.Cancel(r.Context(), order, func() bool { return req.Confirm })
	s.respondWithStatusChange(w, result, err)
}

// updateOrderStatusHandler writes an explicit status
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	status, valid := models.ParseStatus(req.Status)
	if !valid {
		s.respondWithError(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	order, ok := s.loadOrder(w, r)
	if !ok {
		return
	}

	result, err := s.status.SetStatus(r.Context(), order, status)
	s.respondWithStatusChange(w, result, err)
}

func (s *Server) loadOrder(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	order, err := s.orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithAppError(w, err)
		return nil, false
	}
	return order, true
}

// respondWithStatusChange reports a status write. A propagation failure still
// carries the result, because the order itself was written.
func (s *Server) respondWithStatusChange(w http.ResponseWriter, result *service.Result, err error) {
	if err != nil {
		if result == nil {
			s.respondWithAppError(w, err)
			return
		}

		s.logger.Warn("Status written with tracking out of sync",
			"orderID", result.OrderID,
			"kind", apperrors.KindOf(err),
			"error", err)

		s.respondWithJSON(w, apperrors.StatusCode(err), ApiResponse{
			Success: false,
			Data:    StatusChange{Changed: true, Result: result},
			Error:   err.Error(),
		})
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    StatusChange{Changed: result != nil, Result: result},
	})
}
