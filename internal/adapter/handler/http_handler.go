package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/core/service"
	"github.com/rl1809/pharmastock/internal/logger"
)

type HTTPHandler struct {
	ledger  *service.StockLedger
	users   *service.UserService
	matcher *service.NotificationMatcher
	logger  *zap.Logger
}

type AddPharmacyRequest struct {
	Name       string          `json:"name"`
	Location   domain.Location `json:"location"`
	PictureURL string          `json:"picture_url"`
}

type AddMedicineRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BoxPhotoURL string `json:"box_photo_url"`
}

type AddMedicineStockRequest struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
}

type ChangeMedicineStockRequest struct {
	Operation string `json:"operation"`
	Quantity  int    `json:"quantity"`
}

type RatePharmacyRequest struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
	Comment  string `json:"comment"`
}

type RegisterUserRequest struct {
	Username string `json:"username"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type StockResponse struct {
	PharmacyID string `json:"pharmacy_id"`
	MedicineID string `json:"medicine_id"`
	Stock      int    `json:"stock"`
}

type PharmacyResponse struct {
	*domain.Pharmacy
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

type UserResponse struct {
	Username      string   `json:"username"`
	Favorites     []string `json:"favorites"`
	Subscriptions []string `json:"subscriptions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(ledger *service.StockLedger, users *service.UserService, matcher *service.NotificationMatcher, log *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		ledger:  ledger,
		users:   users,
		matcher: matcher,
		logger:  logger.Component(log, "http_handler"),
	}
}

func (h *HTTPHandler) Register(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/pharmacies", func(r chi.Router) {
			r.Post("/", h.AddPharmacy)
			r.Get("/", h.ListPharmacies)
			r.Route("/{pharmacyID}", func(r chi.Router) {
				r.Get("/", h.GetPharmacy)
				r.Post("/ratings", h.RatePharmacy)
				r.Get("/medicines", h.ListAvailableMedicines)
				r.Post("/medicines", h.AddMedicineStock)
				r.Patch("/medicines/{medicineID}", h.ChangeMedicineStock)
			})
		})
		r.Post("/medicines", h.AddMedicine)
		r.Get("/medicines/{medicineID}", h.GetMedicine)
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.RegisterUser)
			r.Route("/{username}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Put("/favorites/{pharmacyID}", h.FavoritePharmacy)
				r.Delete("/favorites/{pharmacyID}", h.UnfavoritePharmacy)
				r.Put("/subscriptions/{medicineID}", h.SubscribeMedicine)
				r.Delete("/subscriptions/{medicineID}", h.UnsubscribeMedicine)
				r.Get("/notifications", h.FindNotifications)
			})
		})
	})
}

func (h *HTTPHandler) AddPharmacy(w http.ResponseWriter, r *http.Request) {
	var req AddPharmacyRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.ledger.AddPharmacy(r.Context(), req.Name, req.Location, req.PictureURL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

func (h *HTTPHandler) ListPharmacies(w http.ResponseWriter, r *http.Request) {
	pharmacies, err := h.ledger.ListPharmacies(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]PharmacyResponse, 0, len(pharmacies))
	for _, p := range pharmacies {
		out = append(out, pharmacyResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetPharmacy(w http.ResponseWriter, r *http.Request) {
	p, err := h.ledger.GetPharmacy(r.Context(), chi.URLParam(r, "pharmacyID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pharmacyResponse(p))
}

func (h *HTTPHandler) RatePharmacy(w http.ResponseWriter, r *http.Request) {
	var req RatePharmacyRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.ledger.RatePharmacy(r.Context(), chi.URLParam(r, "pharmacyID"), req.Username, req.Score, req.Comment)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListAvailableMedicines(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		h.writeError(w, err)
		return
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.ledger.ListAvailableMedicines(r.Context(), chi.URLParam(r, "pharmacyID"), page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) AddMedicineStock(w http.ResponseWriter, r *http.Request) {
	var req AddMedicineStockRequest
	if !h.decode(w, r, &req) {
		return
	}
	pharmacyID := chi.URLParam(r, "pharmacyID")
	stock, err := h.ledger.AddNewMedicineStock(r.Context(), pharmacyID, req.MedicineID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, StockResponse{PharmacyID: pharmacyID, MedicineID: req.MedicineID, Stock: stock})
}

func (h *HTTPHandler) ChangeMedicineStock(w http.ResponseWriter, r *http.Request) {
	var req ChangeMedicineStockRequest
	if !h.decode(w, r, &req) {
		return
	}
	op, err := domain.ParseOperation(req.Operation)
	if err != nil {
		h.writeError(w, err)
		return
	}

	pharmacyID, medicineID := chi.URLParam(r, "pharmacyID"), chi.URLParam(r, "medicineID")
	stock, err := h.ledger.ChangeMedicineStock(r.Context(), pharmacyID, medicineID, op, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StockResponse{PharmacyID: pharmacyID, MedicineID: medicineID, Stock: stock})
}

func (h *HTTPHandler) AddMedicine(w http.ResponseWriter, r *http.Request) {
	var req AddMedicineRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.ledger.AddMedicine(r.Context(), req.Name, req.Description, req.BoxPhotoURL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

func (h *HTTPHandler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	m, err := h.ledger.GetMedicine(r.Context(), chi.URLParam(r, "medicineID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *HTTPHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.users.RegisterUser(r.Context(), req.Username)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse(u))
}

func (h *HTTPHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(u))
}

func (h *HTTPHandler) FavoritePharmacy(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, h.users.FavoritePharmacy(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "pharmacyID")))
}

func (h *HTTPHandler) UnfavoritePharmacy(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, h.users.UnfavoritePharmacy(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "pharmacyID")))
}

func (h *HTTPHandler) SubscribeMedicine(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, h.users.SubscribeMedicine(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "medicineID")))
}

func (h *HTTPHandler) UnsubscribeMedicine(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, h.users.UnsubscribeMedicine(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "medicineID")))
}

func (h *HTTPHandler) FindNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.matcher.FindNotifications(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *HTTPHandler) noContent(w http.ResponseWriter, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, status, ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func httpStatus(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsInvalidArgument(err):
		return http.StatusBadRequest
	case domain.IsAlreadyExists(err):
		return http.StatusConflict
	case errors.Is(err, service.ErrDispatchQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return n, nil
}

func pharmacyResponse(p *domain.Pharmacy) PharmacyResponse {
	return PharmacyResponse{
		Pharmacy:      p,
		AverageRating: p.AverageRating(),
		RatingCount:   len(p.Ratings()),
	}
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		Username:      u.Username,
		Favorites:     u.Favorites(),
		Subscriptions: u.Subscriptions(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
