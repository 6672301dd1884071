package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Melodex/config"
	"Melodex/core/auth"
	"Melodex/core/identity"
	"Melodex/model"
	"Melodex/repository"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSongRepo 内存实现，测试用
type fakeSongRepo struct {
	songs   []*model.Song
	artists int64
	err     error
}

func (f *fakeSongRepo) CreateSong(ctx context.Context, song *model.Song) error {
	if f.err != nil {
		return f.err
	}
	f.songs = append(f.songs, song)
	return nil
}

func (f *fakeSongRepo) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	for _, s := range f.songs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSongRepo) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	return f.songs, f.err
}

func (f *fakeSongRepo) GetRandomSongs(ctx context.Context, limit int) ([]*model.Song, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.songs) {
		limit = len(f.songs)
	}
	return f.songs[:limit], nil
}

func (f *fakeSongRepo) DeleteSong(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	for i, s := range f.songs {
		if s.ID == id {
			f.songs = append(f.songs[:i], f.songs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeSongRepo) CountSongs(ctx context.Context) (int64, error) {
	return int64(len(f.songs)), f.err
}

func (f *fakeSongRepo) CountDistinctArtists(ctx context.Context) (int64, error) {
	return f.artists, f.err
}

type fakeAlbumRepo struct {
	albums map[string]*model.AlbumWithSongs
	err    error
}

func (f *fakeAlbumRepo) CreateAlbum(ctx context.Context, album *model.Album) error {
	if f.err != nil {
		return f.err
	}
	if f.albums == nil {
		f.albums = make(map[string]*model.AlbumWithSongs)
	}
	f.albums[album.ID] = &model.AlbumWithSongs{Album: *album}
	return nil
}

func (f *fakeAlbumRepo) GetAlbumByID(ctx context.Context, id string) (*model.AlbumWithSongs, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.albums[id], nil
}

func (f *fakeAlbumRepo) GetAllAlbums(ctx context.Context) ([]*model.Album, error) {
	if f.err != nil {
		return nil, f.err
	}
	albums := make([]*model.Album, 0, len(f.albums))
	for _, a := range f.albums {
		album := a.Album
		albums = append(albums, &album)
	}
	return albums, nil
}

func (f *fakeAlbumRepo) DeleteAlbum(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.albums[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.albums, id)
	return nil
}

func (f *fakeAlbumRepo) CountAlbums(ctx context.Context) (int64, error) {
	return int64(len(f.albums)), f.err
}

type fakeUserRepo struct {
	users []*model.User
	err   error
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.ExternalID == user.ExternalID {
			return repository.ErrDuplicateUser
		}
	}
	f.users = append(f.users, user)
	return nil
}

func (f *fakeUserRepo) GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ListUsersExcept(ctx context.Context, excludeID string) ([]*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*model.User
	for _, u := range f.users {
		if u.ID != excludeID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(f.users)), f.err
}

type handlerEnv struct {
	handler   *APIHandler
	songRepo  *fakeSongRepo
	albumRepo *fakeAlbumRepo
	userRepo  *fakeUserRepo
	cfg       *config.Config
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	auth.Init("handler-test-secret")

	songRepo := &fakeSongRepo{}
	albumRepo := &fakeAlbumRepo{albums: make(map[string]*model.AlbumWithSongs)}
	userRepo := &fakeUserRepo{}
	cfg := &config.Config{
		AppEnv:      "development",
		AdminEmails: []string{"admin@example.com"},
		MadeForYouN: 4,
		TrendingN:   4,
		FeaturedN:   6,
	}

	// catalogCache 传 nil，缓存方法对 nil 客户端全部降级为未命中
	h := NewAPIHandler(songRepo, albumRepo, userRepo,
		identity.NewProvisioner(userRepo), nil, nil, cfg)
	return &handlerEnv{handler: h, songRepo: songRepo, albumRepo: albumRepo, userRepo: userRepo, cfg: cfg}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestAuthCallbackCreatesUserAndToken(t *testing.T) {
	env := newHandlerEnv(t)

	rr := postJSON(t, env.handler.AuthCallbackHandler, "/api/auth/callback", AuthCallbackRequest{
		ID:        "ext_1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		ImageURL:  "http://img/ada.png",
		Email:     "ada@example.com",
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool        `json:"success"`
		Token   string      `json:"token"`
		User    *model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Ada Lovelace", resp.User.FullName)

	claims, err := auth.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestAuthCallbackIsIdempotent(t *testing.T) {
	env := newHandlerEnv(t)

	req := AuthCallbackRequest{ID: "ext_1", FirstName: "Ada"}
	rr1 := postJSON(t, env.handler.AuthCallbackHandler, "/api/auth/callback", req)
	rr2 := postJSON(t, env.handler.AuthCallbackHandler, "/api/auth/callback", req)

	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, http.StatusOK, rr2.Code)
	assert.Len(t, env.userRepo.users, 1)
}

func TestAuthCallbackRequiresExternalID(t *testing.T) {
	env := newHandlerEnv(t)

	rr := postJSON(t, env.handler.AuthCallbackHandler, "/api/auth/callback", AuthCallbackRequest{
		FirstName: "Nobody",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "id is required")
}

func TestAuthCallbackRejectsInvalidBody(t *testing.T) {
	env := newHandlerEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/callback", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	env.handler.AuthCallbackHandler(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetAlbumHandlerNotFound(t *testing.T) {
	env := newHandlerEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/albums/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	rr := httptest.NewRecorder()
	env.handler.GetAlbumHandler(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Album not found")
}

func TestGetAlbumHandlerReturnsAlbum(t *testing.T) {
	env := newHandlerEnv(t)
	env.albumRepo.albums["alb_1"] = &model.AlbumWithSongs{
		Album: model.Album{ID: "alb_1", Title: "Blue Train", Artist: "John Coltrane"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/albums/alb_1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "alb_1"})
	rr := httptest.NewRecorder()
	env.handler.GetAlbumHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.AlbumWithSongs
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Blue Train", got.Title)
}

func TestGetStatsHandlerComposesCounts(t *testing.T) {
	env := newHandlerEnv(t)
	env.songRepo.songs = []*model.Song{
		{ID: "s1", Artist: "A"},
		{ID: "s2", Artist: "B"},
		{ID: "s3", Artist: "A"},
	}
	env.songRepo.artists = 2
	env.albumRepo.albums["alb_1"] = &model.AlbumWithSongs{Album: model.Album{ID: "alb_1"}}
	env.userRepo.users = []*model.User{{ID: "u1"}, {ID: "u2"}}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rr := httptest.NewRecorder()
	env.handler.GetStatsHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var stats model.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, int64(3), stats.TotalSongs)
	assert.Equal(t, int64(1), stats.TotalAlbums)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.TotalArtists)
}

func TestDeleteSongHandler(t *testing.T) {
	env := newHandlerEnv(t)
	env.songRepo.songs = []*model.Song{{ID: "s1", Title: "Take Five"}}

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/songs/s1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "s1"})
	rr := httptest.NewRecorder()
	env.handler.DeleteSongHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, env.songRepo.songs)

	// 再删一次应当404
	req = httptest.NewRequest(http.MethodDelete, "/api/admin/songs/s1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "s1"})
	rr = httptest.NewRecorder()
	env.handler.DeleteSongHandler(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Song not found")
}

func TestGetSongsHandlerServerError(t *testing.T) {
	env := newHandlerEnv(t)
	env.songRepo.err = fmt.Errorf("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/api/songs", nil)
	rr := httptest.NewRecorder()
	env.handler.GetSongsHandler(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	// 开发环境透出原始错误
	assert.Contains(t, rr.Body.String(), "connection refused")
}

func TestServerErrorMessageHiddenInProduction(t *testing.T) {
	env := newHandlerEnv(t)
	env.cfg.AppEnv = "production"
	env.songRepo.err = fmt.Errorf("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/api/songs", nil)
	rr := httptest.NewRecorder()
	env.handler.GetSongsHandler(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Internal server error")
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestAuthMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	env := newHandlerEnv(t)
	next := env.handler.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rr := httptest.NewRecorder()
	next(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	next(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddlewarePassesClaimsDownstream(t *testing.T) {
	env := newHandlerEnv(t)
	token, err := auth.GenerateToken("u1", "ada@example.com")
	require.NoError(t, err)

	var gotUserID, gotEmail string
	next := env.handler.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserIDFromContext(r.Context())
		gotEmail, _ = GetEmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	next(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", gotUserID)
	assert.Equal(t, "ada@example.com", gotEmail)
}

func TestAdminMiddlewareRequiresAdminEmail(t *testing.T) {
	env := newHandlerEnv(t)
	next := env.handler.AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	token, err := auth.GenerateToken("u1", "visitor@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/songs/s1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	next(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	token, err = auth.GenerateToken("u1", "Admin@Example.com") // 大小写不敏感
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodDelete, "/api/admin/songs/s1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	next(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetUsersHandlerExcludesCaller(t *testing.T) {
	env := newHandlerEnv(t)
	env.userRepo.users = []*model.User{
		{ID: "u1", FullName: "Ada"},
		{ID: "u2", FullName: "Grace"},
	}

	token, err := auth.GenerateToken("u1", "")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.handler.AuthMiddleware(env.handler.GetUsersHandler)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var users []*model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)
}

func TestGetSongHandler(t *testing.T) {
	env := newHandlerEnv(t)
	env.songRepo.songs = []*model.Song{{ID: "s1", Title: "Take Five", Artist: "Dave Brubeck"}}

	req := httptest.NewRequest(http.MethodGet, "/api/songs/s1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "s1"})
	rr := httptest.NewRecorder()
	env.handler.GetSongHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.Song
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Take Five", got.Title)

	req = httptest.NewRequest(http.MethodGet, "/api/songs/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	rr = httptest.NewRecorder()
	env.handler.GetSongHandler(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Song not found")
}

func TestGetCurrentUserHandler(t *testing.T) {
	env := newHandlerEnv(t)
	env.userRepo.users = []*model.User{{ID: "u1", FullName: "Ada"}}

	token, err := auth.GenerateToken("u1", "")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.handler.AuthMiddleware(env.handler.GetCurrentUserHandler)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Ada", got.FullName)

	// 令牌有效但记录已不存在
	token, err = auth.GenerateToken("gone", "")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	env.handler.AuthMiddleware(env.handler.GetCurrentUserHandler)(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSongCategoryHandlersSampleSongs(t *testing.T) {
	env := newHandlerEnv(t)
	for i := 0; i < 10; i++ {
		env.songRepo.songs = append(env.songRepo.songs, &model.Song{ID: fmt.Sprintf("s%d", i)})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/songs/made-for-you", nil)
	rr := httptest.NewRecorder()
	env.handler.GetMadeForYouSongsHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var songs []*model.Song
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &songs))
	assert.Len(t, songs, env.cfg.MadeForYouN)
}
