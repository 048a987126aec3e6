package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bizfinda/backend/internal/auth"
	"github.com/bizfinda/backend/internal/cache"
	"github.com/bizfinda/backend/internal/db"
	apperrors "github.com/bizfinda/backend/internal/errors"
	"github.com/bizfinda/backend/internal/logger"
)

const (
	searchCacheTTL = 60 * time.Second

	// maxSearchLimit caps the page size. Clamping happens here, before
	// the cache key and page math, so TotalPages always reflects the
	// limit the store actually used.
	maxSearchLimit = 100
)

// Store is the business-record boundary: unique owner, name, phone and
// slug are enforced underneath it.
type Store interface {
	Create(ctx context.Context, b *db.Business) error
	GetBySlug(ctx context.Context, slug string) (*db.Business, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*db.Business, error)
	Update(ctx context.Context, b *db.Business) error
	Search(ctx context.Context, f db.SearchFilter, page, limit int) ([]db.Business, int, error)
}

// AccountStore deletes an identity together with its business.
type AccountStore interface {
	DeleteWithBusiness(ctx context.Context, userID uuid.UUID) error
}

// Request is the write payload for create and update. Both operations
// require the full field set; validation fails closed before any domain
// logic runs.
type Request struct {
	Name        string   `json:"business_name" validate:"required"`
	Phone       string   `json:"phone" validate:"required,len=11,numeric"`
	Categories  []string `json:"categories" validate:"required,min=1,dive,oneof=Groceries Fashion Beauty Essentials Furniture Academic Gadgets Food Health"`
	State       string   `json:"state" validate:"required"`
	LGA         string   `json:"lga" validate:"required"`
	Town        string   `json:"town" validate:"required"`
	Address     string   `json:"address" validate:"required"`
	StoreType   string   `json:"store_type" validate:"required,oneof=physical online"`
	Description string   `json:"description" validate:"max=500"`
}

// View is the owner-facing business payload.
type View struct {
	ID          string    `json:"id"`
	Name        string    `json:"business_name"`
	Slug        string    `json:"slug"`
	Phone       string    `json:"phone"`
	Categories  []string  `json:"categories"`
	State       string    `json:"state"`
	LGA         string    `json:"lga"`
	Town        string    `json:"town"`
	Address     string    `json:"address"`
	StoreType   string    `json:"store_type"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PublicView is the payload for unauthenticated routes: no owner, no
// update timestamp.
type PublicView struct {
	ID          string    `json:"id"`
	Name        string    `json:"business_name"`
	Slug        string    `json:"slug"`
	Phone       string    `json:"phone"`
	Categories  []string  `json:"categories"`
	State       string    `json:"state"`
	LGA         string    `json:"lga"`
	Town        string    `json:"town"`
	Address     string    `json:"address"`
	StoreType   string    `json:"store_type"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SearchResponse struct {
	Success      bool         `json:"success"`
	CurrentPage  int          `json:"currentPage"`
	TotalPages   int          `json:"totalPages"`
	TotalResults int          `json:"totalResults"`
	Results      []PublicView `json:"results"`
}

type BusinessResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Business any    `json:"business"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Handlers struct {
	store    Store
	accounts AccountStore
	cache    *cache.Cache
	validate *validator.Validate
	log      *logger.Logger
}

func NewHandlers(store Store, accounts AccountStore, searchCache *cache.Cache) *Handlers {
	return &Handlers{
		store:    store,
		accounts: accounts,
		cache:    searchCache,
		validate: validator.New(),
		log:      logger.Default().WithComponent("business"),
	}
}

// Search is the public directory query: all four filters are required,
// matching is case-insensitive and exact, results are paginated.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	filter := db.SearchFilter{
		State:    q.Get("state"),
		LGA:      q.Get("lga"),
		Town:     q.Get("town"),
		Category: q.Get("category"),
	}
	if filter.State == "" || filter.LGA == "" || filter.Town == "" || filter.Category == "" {
		return apperrors.ValidationError("All fields (state, lga, town, category) are required for search")
	}

	page := positiveIntOrDefault(q.Get("page"), 1)
	limit := positiveIntOrDefault(q.Get("limit"), 10)
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	requestID := apperrors.GetRequestID(r.Context())

	cacheKey := fmt.Sprintf("search:v%d:%s:%s:%s:%s:p%d:l%d",
		h.cache.SearchVersion(r.Context()),
		filter.State, filter.LGA, filter.Town, filter.Category, page, limit)
	if cached, ok := h.cache.Get(r.Context(), cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(apperrors.RequestIDHeader, requestID)
		w.Write([]byte(cached))
		return nil
	}

	results, total, err := h.store.Search(r.Context(), filter, page, limit)
	if err != nil {
		return apperrors.DatabaseError("search failed").WithCause(err)
	}

	resp := SearchResponse{
		Success:      true,
		CurrentPage:  page,
		TotalPages:   (total + limit - 1) / limit,
		TotalResults: total,
		Results:      make([]PublicView, 0, len(results)),
	}
	for i := range results {
		resp.Results = append(resp.Results, publicView(&results[i]))
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return apperrors.InternalError("search failed").WithCause(err)
	}
	h.cache.Set(r.Context(), cacheKey, string(body), searchCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(apperrors.RequestIDHeader, requestID)
	w.Write(body)
	return nil
}

func (h *Handlers) GetBySlug(w http.ResponseWriter, r *http.Request) error {
	slug := r.PathValue("slug")

	b, err := h.store.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, db.ErrBusinessNotFound) {
			return apperrors.NotFound("Business not found")
		}
		return apperrors.DatabaseError("lookup failed").WithCause(err)
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, BusinessResponse{
		Success:  true,
		Business: publicView(b),
	})
	return nil
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) error {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		return apperrors.Unauthorized("not authenticated")
	}

	// Fast-path check; the unique index on owner_id is the guarantee.
	if _, err := h.store.GetByOwner(r.Context(), identity.UserID); err == nil {
		return apperrors.Conflict("You already have a business listed")
	} else if !errors.Is(err, db.ErrBusinessNotFound) {
		return apperrors.DatabaseError("lookup failed").WithCause(err)
	}

	req, err := h.decodeRequest(r)
	if err != nil {
		return err
	}

	slug := Slugify(req.Name)
	if slug == "" {
		return apperrors.ValidationError("Business name must contain letters or digits")
	}

	now := time.Now()
	b := &db.Business{
		ID:          uuid.New(),
		OwnerID:     identity.UserID,
		Name:        req.Name,
		Slug:        slug,
		Phone:       req.Phone,
		Categories:  req.Categories,
		State:       req.State,
		LGA:         req.LGA,
		Town:        req.Town,
		Address:     req.Address,
		StoreType:   req.StoreType,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.Create(r.Context(), b); err != nil {
		switch {
		case errors.Is(err, db.ErrOwnerHasBusiness):
			return apperrors.Conflict("You already have a business listed")
		case errors.Is(err, db.ErrBusinessExists):
			return apperrors.Conflict("Business name or phone already exists")
		default:
			return apperrors.DatabaseError("failed to create business").WithCause(err)
		}
	}

	h.cache.InvalidateSearch(r.Context())
	h.log.Info(r.Context(), "business created", map[string]interface{}{
		"business_id": b.ID.String(),
		"slug":        b.Slug,
	})

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusCreated, BusinessResponse{
		Success:  true,
		Message:  "Business created successfully",
		Business: ownerView(b),
	})
	return nil
}

func (h *Handlers) GetMine(w http.ResponseWriter, r *http.Request) error {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		return apperrors.Unauthorized("not authenticated")
	}

	b, err := h.store.GetByOwner(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, db.ErrBusinessNotFound) {
			return apperrors.NotFound("You have not added a business yet")
		}
		return apperrors.DatabaseError("lookup failed").WithCause(err)
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, BusinessResponse{
		Success:  true,
		Business: ownerView(b),
	})
	return nil
}

func (h *Handlers) UpdateMine(w http.ResponseWriter, r *http.Request) error {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		return apperrors.Unauthorized("not authenticated")
	}

	existing, err := h.store.GetByOwner(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, db.ErrBusinessNotFound) {
			return apperrors.NotFound("No business found to update or you're not authorized")
		}
		return apperrors.DatabaseError("lookup failed").WithCause(err)
	}

	req, err := h.decodeRequest(r)
	if err != nil {
		return err
	}

	// Renaming re-slugs; otherwise the published URL is stable.
	slug := existing.Slug
	if req.Name != existing.Name {
		slug = Slugify(req.Name)
		if slug == "" {
			return apperrors.ValidationError("Business name must contain letters or digits")
		}
	}

	updated := &db.Business{
		ID:          existing.ID,
		OwnerID:     existing.OwnerID,
		Name:        req.Name,
		Slug:        slug,
		Phone:       req.Phone,
		Categories:  req.Categories,
		State:       req.State,
		LGA:         req.LGA,
		Town:        req.Town,
		Address:     req.Address,
		StoreType:   req.StoreType,
		Description: req.Description,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   time.Now(),
	}

	if err := h.store.Update(r.Context(), updated); err != nil {
		switch {
		case errors.Is(err, db.ErrBusinessExists):
			return apperrors.Conflict("Business name or phone already exists")
		case errors.Is(err, db.ErrBusinessNotFound):
			return apperrors.NotFound("No business found to update or you're not authorized")
		default:
			return apperrors.DatabaseError("failed to update business").WithCause(err)
		}
	}

	h.cache.InvalidateSearch(r.Context())

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, BusinessResponse{
		Success:  true,
		Message:  "Business updated successfully",
		Business: ownerView(updated),
	})
	return nil
}

// DeleteAccount removes the identity and its business in one
// transaction underneath AccountStore.
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) error {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		return apperrors.Unauthorized("not authenticated")
	}

	if err := h.accounts.DeleteWithBusiness(r.Context(), identity.UserID); err != nil {
		return apperrors.DatabaseError("Failed to delete account").WithCause(err)
	}

	h.cache.InvalidateSearch(r.Context())
	h.log.Info(r.Context(), "account deleted", map[string]interface{}{
		"user_id": identity.UserID.String(),
	})

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, MessageResponse{
		Success: true,
		Message: "Account and business deleted",
	})
	return nil
}

func (h *Handlers) decodeRequest(r *http.Request) (*Request, error) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.BadRequest("invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return nil, apperrors.ValidationError(validationMessage(err))
	}
	return &req, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "All required fields must be filled"
	}

	fe := verrs[0]
	switch {
	case fe.Field() == "Phone" && fe.Tag() != "required":
		return "Phone number must be exactly 11 digits"
	case fe.Field() == "StoreType" && fe.Tag() == "oneof":
		return "Store type must be either 'physical' or 'online'"
	case strings.HasPrefix(fe.Field(), "Categories") && fe.Tag() == "oneof":
		return "Unknown business category"
	case fe.Field() == "Description" && fe.Tag() == "max":
		return "Description must be at most 500 characters"
	default:
		return "All required fields must be filled"
	}
}

func positiveIntOrDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func ownerView(b *db.Business) View {
	return View{
		ID:          b.ID.String(),
		Name:        b.Name,
		Slug:        b.Slug,
		Phone:       b.Phone,
		Categories:  b.Categories,
		State:       b.State,
		LGA:         b.LGA,
		Town:        b.Town,
		Address:     b.Address,
		StoreType:   b.StoreType,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func publicView(b *db.Business) PublicView {
	return PublicView{
		ID:          b.ID.String(),
		Name:        b.Name,
		Slug:        b.Slug,
		Phone:       b.Phone,
		Categories:  b.Categories,
		State:       b.State,
		LGA:         b.LGA,
		Town:        b.Town,
		Address:     b.Address,
		StoreType:   b.StoreType,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
}
