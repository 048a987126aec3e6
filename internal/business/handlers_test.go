package business

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizfinda/backend/internal/auth"
	"github.com/bizfinda/backend/internal/db"
	apperrors "github.com/bizfinda/backend/internal/errors"
)

type fakeStore struct {
	byOwner map[uuid.UUID]*db.Business
	creates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byOwner: make(map[uuid.UUID]*db.Business)}
}

func (f *fakeStore) Create(_ context.Context, b *db.Business) error {
	f.creates++
	if _, ok := f.byOwner[b.OwnerID]; ok {
		return db.ErrOwnerHasBusiness
	}
	for _, existing := range f.byOwner {
		if existing.Name == b.Name || existing.Phone == b.Phone || existing.Slug == b.Slug {
			return db.ErrBusinessExists
		}
	}
	copied := *b
	f.byOwner[b.OwnerID] = &copied
	return nil
}

func (f *fakeStore) GetBySlug(_ context.Context, slug string) (*db.Business, error) {
	for _, b := range f.byOwner {
		if b.Slug == slug {
			copied := *b
			return &copied, nil
		}
	}
	return nil, db.ErrBusinessNotFound
}

func (f *fakeStore) GetByOwner(_ context.Context, ownerID uuid.UUID) (*db.Business, error) {
	b, ok := f.byOwner[ownerID]
	if !ok {
		return nil, db.ErrBusinessNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeStore) Update(_ context.Context, b *db.Business) error {
	if _, ok := f.byOwner[b.OwnerID]; !ok {
		return db.ErrBusinessNotFound
	}
	for owner, existing := range f.byOwner {
		if owner != b.OwnerID && (existing.Name == b.Name || existing.Phone == b.Phone) {
			return db.ErrBusinessExists
		}
	}
	copied := *b
	f.byOwner[b.OwnerID] = &copied
	return nil
}

func (f *fakeStore) Search(_ context.Context, filter db.SearchFilter, page, limit int) ([]db.Business, int, error) {
	var matched []db.Business
	for _, b := range f.byOwner {
		if !strings.EqualFold(b.State, filter.State) ||
			!strings.EqualFold(b.LGA, filter.LGA) ||
			!strings.EqualFold(b.Town, filter.Town) {
			continue
		}
		for _, c := range b.Categories {
			if strings.EqualFold(c, filter.Category) {
				matched = append(matched, *b)
				break
			}
		}
	}

	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

type fakeAccounts struct {
	deleted []uuid.UUID
}

func (f *fakeAccounts) DeleteWithBusiness(_ context.Context, userID uuid.UUID) error {
	f.deleted = append(f.deleted, userID)
	return nil
}

func validPayload() string {
	return `{
		"business_name": "Mama Nkechi Stores",
		"phone": "08012345678",
		"categories": ["Groceries", "Food"],
		"state": "Lagos",
		"lga": "Ikeja",
		"town": "Ogba",
		"address": "12 Allen Avenue",
		"store_type": "physical",
		"description": "Fresh produce daily"
	}`
}

func do(t *testing.T, handler apperrors.Handler, method, target, body string, identity *auth.Identity) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if identity != nil {
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
	}

	rec := httptest.NewRecorder()
	apperrors.HandleFunc(handler)(rec, req)
	return rec
}

func errMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp.Message
}

func seedBusiness(t *testing.T, store *fakeStore, owner uuid.UUID) *db.Business {
	t.Helper()
	now := time.Now()
	b := &db.Business{
		ID:         uuid.New(),
		OwnerID:    owner,
		Name:       "Mama Nkechi Stores",
		Slug:       "mama-nkechi-stores",
		Phone:      "08012345678",
		Categories: []string{"Groceries", "Food"},
		State:      "Lagos",
		LGA:        "Ikeja",
		Town:       "Ogba",
		Address:    "12 Allen Avenue",
		StoreType:  "physical",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.Create(context.Background(), b))
	return b
}

func TestSearchHandler(t *testing.T) {
	store := newFakeStore()
	h := NewHandlers(store, &fakeAccounts{}, nil)
	seedBusiness(t, store, uuid.New())

	t.Run("missing filters", func(t *testing.T) {
		rec := do(t, h.Search, http.MethodGet, "/api/business/search?state=Lagos&lga=Ikeja", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "All fields (state, lga, town, category) are required for search", errMessage(t, rec))
	})

	t.Run("case-insensitive match", func(t *testing.T) {
		rec := do(t, h.Search, http.MethodGet,
			"/api/business/search?state=LAGOS&lga=ikeja&town=Ogba&category=groceries", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 1, resp.TotalResults)
		assert.Equal(t, 1, resp.TotalPages)
		assert.Equal(t, 1, resp.CurrentPage)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "mama-nkechi-stores", resp.Results[0].Slug)
		// Public payloads never expose the update timestamp.
		assert.NotContains(t, rec.Body.String(), "updatedAt")
	})

	t.Run("no matches", func(t *testing.T) {
		rec := do(t, h.Search, http.MethodGet,
			"/api/business/search?state=Kano&lga=Nassarawa&town=Tarauni&category=Food", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.TotalResults)
		assert.Empty(t, resp.Results)
	})
}

func TestSearchHandler_Pagination(t *testing.T) {
	store := newFakeStore()
	h := NewHandlers(store, &fakeAccounts{}, nil)

	now := time.Now()
	for i := 0; i < 25; i++ {
		owner := uuid.New()
		suffix := owner.String()[:8]
		store.byOwner[owner] = &db.Business{
			ID:         uuid.New(),
			OwnerID:    owner,
			Name:       "Shop " + suffix,
			Slug:       "shop-" + suffix,
			Phone:      "080" + suffix,
			Categories: []string{"Food"},
			State:      "Lagos",
			LGA:        "Ikeja",
			Town:       "Ogba",
			Address:    "12 Allen Avenue",
			StoreType:  "physical",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	rec := do(t, h.Search, http.MethodGet,
		"/api/business/search?state=Lagos&lga=Ikeja&town=Ogba&category=Food&page=2&limit=10", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 25, resp.TotalResults)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 2, resp.CurrentPage)
	assert.Len(t, resp.Results, 10)
}

func TestSearchHandler_LimitClamped(t *testing.T) {
	store := newFakeStore()
	h := NewHandlers(store, &fakeAccounts{}, nil)

	now := time.Now()
	for i := 0; i < 120; i++ {
		owner := uuid.New()
		suffix := owner.String()[:8]
		store.byOwner[owner] = &db.Business{
			ID:         uuid.New(),
			OwnerID:    owner,
			Name:       "Shop " + suffix,
			Slug:       "shop-" + suffix,
			Phone:      "080" + suffix,
			Categories: []string{"Food"},
			State:      "Lagos",
			LGA:        "Ikeja",
			Town:       "Ogba",
			Address:    "12 Allen Avenue",
			StoreType:  "physical",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	// An oversized limit is clamped to 100, and the page math must use
	// the clamped value: 120 matches at 100 per page is two pages, not
	// one. Otherwise a paging client would stop early and miss rows.
	rec := do(t, h.Search, http.MethodGet,
		"/api/business/search?state=Lagos&lga=Ikeja&town=Ogba&category=Food&limit=1000", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 120, resp.TotalResults)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 1, resp.CurrentPage)
	assert.Len(t, resp.Results, 100)

	rec = do(t, h.Search, http.MethodGet,
		"/api/business/search?state=Lagos&lga=Ikeja&town=Ogba&category=Food&page=2&limit=1000", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.CurrentPage)
	assert.Len(t, resp.Results, 20)
}

func TestGetBySlugHandler(t *testing.T) {
	store := newFakeStore()
	h := NewHandlers(store, &fakeAccounts{}, nil)
	seedBusiness(t, store, uuid.New())

	mux := http.NewServeMux()
	mux.Handle("GET /api/business/{slug}", apperrors.HandleFunc(h.GetBySlug))

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/business/mama-nkechi-stores", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp BusinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotContains(t, rec.Body.String(), "updatedAt")
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/business/no-such-store", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreateHandler(t *testing.T) {
	t.Run("requires identity", func(t *testing.T) {
		h := NewHandlers(newFakeStore(), &fakeAccounts{}, nil)
		rec := do(t, h.Create, http.MethodPost, "/api/business", validPayload(), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		store := newFakeStore()
		h := NewHandlers(store, &fakeAccounts{}, nil)
		owner := uuid.New()

		rec := do(t, h.Create, http.MethodPost, "/api/business", validPayload(), &auth.Identity{UserID: owner})
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Success  bool   `json:"success"`
			Message  string `json:"message"`
			Business View   `json:"business"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "Business created successfully", resp.Message)
		assert.Equal(t, "mama-nkechi-stores", resp.Business.Slug)

		stored, err := store.GetByOwner(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, "Mama Nkechi Stores", stored.Name)
	})

	t.Run("second business for same owner rejected, existing unchanged", func(t *testing.T) {
		store := newFakeStore()
		h := NewHandlers(store, &fakeAccounts{}, nil)
		owner := uuid.New()
		existing := seedBusiness(t, store, owner)
		createsBefore := store.creates

		payload := strings.Replace(validPayload(), "Mama Nkechi Stores", "Another Shop", 1)
		rec := do(t, h.Create, http.MethodPost, "/api/business", payload, &auth.Identity{UserID: owner})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "You already have a business listed", errMessage(t, rec))
		assert.Equal(t, createsBefore, store.creates)

		unchanged, err := store.GetByOwner(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, existing.Name, unchanged.Name)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		store := newFakeStore()
		h := NewHandlers(store, &fakeAccounts{}, nil)
		seedBusiness(t, store, uuid.New())

		rec := do(t, h.Create, http.MethodPost, "/api/business", validPayload(), &auth.Identity{UserID: uuid.New()})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Business name or phone already exists", errMessage(t, rec))
	})

	t.Run("validation failures", func(t *testing.T) {
		h := NewHandlers(newFakeStore(), &fakeAccounts{}, nil)
		tests := []struct {
			name    string
			mutate  func(string) string
			message string
		}{
			{
				"missing required field",
				func(p string) string { return strings.Replace(p, `"address": "12 Allen Avenue",`, "", 1) },
				"All required fields must be filled",
			},
			{
				"short phone",
				func(p string) string { return strings.Replace(p, "08012345678", "080123", 1) },
				"Phone number must be exactly 11 digits",
			},
			{
				"non-numeric phone",
				func(p string) string { return strings.Replace(p, "08012345678", "0801234567a", 1) },
				"Phone number must be exactly 11 digits",
			},
			{
				"bad store type",
				func(p string) string { return strings.Replace(p, "physical", "virtual", 1) },
				"Store type must be either 'physical' or 'online'",
			},
			{
				"unknown category",
				func(p string) string { return strings.Replace(p, `"Groceries"`, `"Weapons"`, 1) },
				"Unknown business category",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := do(t, h.Create, http.MethodPost, "/api/business", tt.mutate(validPayload()), &auth.Identity{UserID: uuid.New()})
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, tt.message, errMessage(t, rec))
			})
		}
	})
}

func TestGetMineHandler(t *testing.T) {
	store := newFakeStore()
	h := NewHandlers(store, &fakeAccounts{}, nil)
	owner := uuid.New()

	t.Run("no business yet", func(t *testing.T) {
		rec := do(t, h.GetMine, http.MethodGet, "/api/business/me", "", &auth.Identity{UserID: owner})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "You have not added a business yet", errMessage(t, rec))
	})

	t.Run("found", func(t *testing.T) {
		seedBusiness(t, store, owner)
		rec := do(t, h.GetMine, http.MethodGet, "/api/business/me", "", &auth.Identity{UserID: owner})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestUpdateMineHandler(t *testing.T) {
	t.Run("nothing to update", func(t *testing.T) {
		h := NewHandlers(newFakeStore(), &fakeAccounts{}, nil)
		rec := do(t, h.UpdateMine, http.MethodPut, "/api/business/me", validPayload(), &auth.Identity{UserID: uuid.New()})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "No business found to update or you're not authorized", errMessage(t, rec))
	})

	t.Run("rename re-slugs", func(t *testing.T) {
		store := newFakeStore()
		h := NewHandlers(store, &fakeAccounts{}, nil)
		owner := uuid.New()
		seedBusiness(t, store, owner)

		payload := strings.Replace(validPayload(), "Mama Nkechi Stores", "Nkechi & Daughters", 1)
		rec := do(t, h.UpdateMine, http.MethodPut, "/api/business/me", payload, &auth.Identity{UserID: owner})
		assert.Equal(t, http.StatusOK, rec.Code)

		updated, err := store.GetByOwner(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, "nkechi-daughters", updated.Slug)
	})

	t.Run("response timestamp matches stored row", func(t *testing.T) {
		store := newFakeStore()
		h := NewHandlers(store, &fakeAccounts{}, nil)
		owner := uuid.New()
		seedBusiness(t, store, owner)

		rec := do(t, h.UpdateMine, http.MethodPut, "/api/business/me", validPayload(), &auth.Identity{UserID: owner})
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Business View `json:"business"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		stored, err := store.GetByOwner(context.Background(), owner)
		require.NoError(t, err)
		assert.True(t, resp.Business.UpdatedAt.Equal(stored.UpdatedAt))
	})

	t.Run("same name keeps slug", func(t *testing.T) {
		store := newFakeStore()
		h := NewHandlers(store, &fakeAccounts{}, nil)
		owner := uuid.New()
		seedBusiness(t, store, owner)

		payload := strings.Replace(validPayload(), "12 Allen Avenue", "99 Opebi Road", 1)
		rec := do(t, h.UpdateMine, http.MethodPut, "/api/business/me", payload, &auth.Identity{UserID: owner})
		assert.Equal(t, http.StatusOK, rec.Code)

		updated, err := store.GetByOwner(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, "mama-nkechi-stores", updated.Slug)
		assert.Equal(t, "99 Opebi Road", updated.Address)
	})
}

func TestDeleteAccountHandler(t *testing.T) {
	store := newFakeStore()
	accounts := &fakeAccounts{}
	h := NewHandlers(store, accounts, nil)
	owner := uuid.New()
	seedBusiness(t, store, owner)

	rec := do(t, h.DeleteAccount, http.MethodDelete, "/api/business/me", "", &auth.Identity{UserID: owner})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Account and business deleted", resp.Message)
	assert.Equal(t, []uuid.UUID{owner}, accounts.deleted)
}
