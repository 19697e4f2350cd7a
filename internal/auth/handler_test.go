package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gosafar/travel-api/internal/logging"
	"github.com/gosafar/travel-api/internal/ratelimit"
	"github.com/gosafar/travel-api/internal/storage"
	"github.com/gosafar/travel-api/internal/user"
)

// memoryRepo is an in-memory credential store for end-to-end handler tests.
type memoryRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*user.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: make(map[uuid.UUID]*user.User)}
}

func (r *memoryRepo) Create(_ context.Context, email, phone, passwordHash string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
		if u.Phone == phone {
			return nil, user.ErrDuplicatePhone
		}
	}

	u := &user.User{ID: uuid.New(), Email: email, Phone: phone, PasswordHash: passwordHash}
	r.byID[u.ID] = u
	return r.clone(u), nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return r.clone(u), nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			return r.clone(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memoryRepo) GetByPhone(_ context.Context, phone string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Phone == phone {
			return r.clone(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memoryRepo) UpdateProfile(_ context.Context, id uuid.UUID, firstName, lastName, phone string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	for otherID, other := range r.byID {
		if otherID != id && other.Phone == phone {
			return nil, user.ErrDuplicatePhone
		}
	}

	first, last := firstName, lastName
	u.FirstName = &first
	u.LastName = &last
	u.Phone = phone
	u.ProfileSetup = true
	return r.clone(u), nil
}

func (r *memoryRepo) UpdateImage(_ context.Context, id uuid.UUID, image *string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.Image = image
	return r.clone(u), nil
}

func (r *memoryRepo) clone(u *user.User) *user.User {
	c := *u
	return &c
}

type testServer struct {
	router *chi.Mux
}

// newTestServer wires the real service, handler and middleware behind the same
// route layout the server uses. The rate limiter points at an unreachable
// Redis; limiter failures must never block requests.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	repo := newMemoryRepo()
	tokens := newTestJWTService(t)
	logger := logging.NewLogger(true)

	svc := NewService(repo, tokens, store, logger, time.Hour)
	limiter := ratelimit.NewLimiter(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	handler := NewHandler(svc, limiter, logger, time.Hour)
	mw := NewMiddleware(tokens)

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", handler.Signup)
		r.Post("/login", handler.Login)
		r.Post("/logout", handler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)
			r.Get("/me", handler.Me)
			r.Put("/profile", handler.UpdateProfile)
			r.Post("/profile/image", handler.AttachImage)
			r.Delete("/profile/image", handler.RemoveImage)
		})
	})

	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func (s *testServer) signup(t *testing.T, email, password, phone string) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/signup", SignupRequest{Email: email, Password: password, Phone: phone}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return rec, sessionCookie(t, rec)
}

func TestSignupEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec, cookie := srv.signup(t, "asha@example.com", "secretpw", "9876543210")

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "asha@example.com", resp.User.Email)
	require.Equal(t, "9876543210", resp.User.Phone)
	require.False(t, resp.User.ProfileSetup)
	require.NotEqual(t, uuid.Nil, resp.User.ID)

	// The hash must not leak through the projection.
	require.NotContains(t, rec.Body.String(), "argon2id")
	require.NotContains(t, rec.Body.String(), "secretpw")

	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	require.NotEmpty(t, cookie.Value)
}

func TestSignupEndpoint_Validation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/auth/signup", SignupRequest{Email: "asha@example.com"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/auth/signup", SignupRequest{Email: "bad", Password: "pw", Phone: "9876543210"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/auth/signup", SignupRequest{Email: "asha@example.com", Password: "pw", Phone: "12345"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupEndpoint_Conflict(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.signup(t, "asha@example.com", "secretpw", "9876543210")

	rec := srv.do(t, http.MethodPost, "/api/auth/signup", SignupRequest{Email: "asha@example.com", Password: "pw", Phone: "9123456780"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/auth/signup", SignupRequest{Email: "other@example.com", Password: "pw", Phone: "9876543210"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.signup(t, "asha@example.com", "secretpw", "9876543210")

	t.Run("by email", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "asha@example.com", Password: "secretpw"}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotEmpty(t, sessionCookie(t, rec).Value)
	})

	t.Run("by phone", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Phone: "9876543210", Password: "secretpw"}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "asha@example.com", Password: "nope"}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid email, phone or password")
	})

	t.Run("unknown account gets the same answer", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ghost@example.com", Password: "nope"}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid email, phone or password")
	})
}

func TestMeEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, cookie := srv.signup(t, "asha@example.com", "secretpw", "9876543210")

	rec := srv.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "asha@example.com", resp.Email)
	require.False(t, resp.ProfileSetup)

	rec = srv.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfileEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, cookie := srv.signup(t, "asha@example.com", "secretpw", "9876543210")

	rec := srv.do(t, http.MethodPut, "/api/auth/profile", UpdateProfileRequest{FirstName: "Asha", LastName: "Rao", Phone: "+919123456780"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.ProfileSetup)
	require.Equal(t, "Asha", *resp.FirstName)
	require.Equal(t, "Rao", *resp.LastName)
	require.Equal(t, "+919123456780", resp.Phone)

	// Missing fields stay a validation error, not a lookup error.
	rec = srv.do(t, http.MethodPut, "/api/auth/profile", UpdateProfileRequest{FirstName: "Asha"}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/auth/profile", UpdateProfileRequest{FirstName: "Asha", LastName: "Rao", Phone: "notaphone"}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileImageEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, cookie := srv.signup(t, "asha@example.com", "secretpw", "9876543210")

	var body bytes.Buffer
	mp := multipart.NewWriter(&body)
	part, err := mp.CreateFormFile(imageFormField, "avatar.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mp.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/profile/image", &body)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var attached ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attached))
	require.True(t, strings.HasSuffix(attached.Image, "avatar.png"))

	data, err := os.ReadFile(attached.Image)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	meRec := srv.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	var me UserResponse
	require.NoError(t, json.Unmarshal(meRec.Body.Bytes(), &me))
	require.NotNil(t, me.Image)
	require.Equal(t, attached.Image, *me.Image)

	rec2 := srv.do(t, http.MethodDelete, "/api/auth/profile/image", nil, cookie)
	require.Equal(t, http.StatusOK, rec2.Code, rec2.Body.String())

	_, err = os.Stat(attached.Image)
	require.True(t, os.IsNotExist(err))

	meRec = srv.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.NoError(t, json.Unmarshal(meRec.Body.Bytes(), &me))
	require.Nil(t, me.Image)

	// Removing again is still a success.
	rec3 := srv.do(t, http.MethodDelete, "/api/auth/profile/image", nil, cookie)
	require.Equal(t, http.StatusOK, rec3.Code)
}

func TestProfileImageEndpoint_NoFile(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, cookie := srv.signup(t, "asha@example.com", "secretpw", "9876543210")

	var body bytes.Buffer
	mp := multipart.NewWriter(&body)
	require.NoError(t, mp.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/profile/image", &body)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "profile image file is required")
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := sessionCookie(t, rec)
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)
}
