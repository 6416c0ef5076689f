package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/logger"
	"github.com/fjod/scoremash/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ShopHandler struct {
	catalog CatalogService
	timeout time.Duration
	maxBody int64
	log     logrus.FieldLogger
}

func NewShopHandler(catalog CatalogService, timeout time.Duration, maxBody int64, log logrus.FieldLogger) *ShopHandler {
	return &ShopHandler{
		catalog: catalog,
		timeout: timeout,
		maxBody: maxBody,
		log:     log,
	}
}

type ReviewRequest struct {
	Rating  int    `json:"rating" form:"rating"`
	Comment string `json:"comment" form:"comment"`
}

// GET /shop
func (h *ShopHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	catalog, err := h.catalog.List(ctx)
	if err != nil {
		logger.FromContext(r.Context(), h.log).WithError(err).Error("failed to list products")
		catalog = &service.Catalog{Products: []*domain.Product{}, Categories: []string{}, Brands: []string{}}
	}
	respondJSON(w, http.StatusOK, catalog)
}

// GET /shop/{productId}
func (h *ShopHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var viewer string
	if id := identityOf(r); id != nil {
		viewer = id.ID
	}

	detail, err := h.catalog.Detail(ctx, chi.URLParam(r, "productId"), viewer)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "Product not found")
			return
		}
		logger.FromContext(r.Context(), h.log).WithError(err).Error("failed to load product")
		respondError(w, http.StatusInternalServerError, "internal_error", "Error loading product")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// POST /shop/{productId}/review
func (h *ShopHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	identity := identityOf(r)
	if identity == nil {
		respondFailure(w, http.StatusUnauthorized, "Please login to add a review")
		return
	}

	var req ReviewRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	replaced, err := h.catalog.AddReview(ctx, identity.ID, chi.URLParam(r, "productId"), req.Rating, req.Comment)
	if err != nil {
		status, message, ok := userError(err)
		if !ok {
			logger.FromContext(r.Context(), h.log).WithError(err).Error("failed to add review")
			respondFailure(w, http.StatusInternalServerError, "Error adding review")
			return
		}
		respondFailure(w, status, message)
		return
	}

	if replaced {
		respondResult(w, http.StatusOK, "Review updated successfully")
		return
	}
	respondResult(w, http.StatusOK, "Review added successfully")
}
