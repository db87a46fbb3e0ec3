package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoginPersistsAndSurvivesReload(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	s, err := Open(ctx, "sid", b.Storage(nil, "sid"))
	require.NoError(t, err)
	assert.False(t, s.IsAuthenticated())

	next, err := s.Login(ctx, "A", "R")
	require.NoError(t, err)
	assert.Equal(t, "/", next)
	assert.True(t, s.IsAuthenticated())

	st := b.Storage(nil, "sid")
	v, _ := st.Get(ctx, "accessToken")
	assert.Equal(t, "A", v)
	v, _ = st.Get(ctx, "refreshToken")
	assert.Equal(t, "R", v)

	reloaded, err := Open(ctx, "sid", b.Storage(nil, "sid"))
	require.NoError(t, err)
	assert.True(t, reloaded.IsAuthenticated())
	assert.Equal(t, "A", reloaded.AccessToken())
	assert.Equal(t, "R", reloaded.RefreshToken())

	next, err = reloaded.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/login", next)
	assert.False(t, reloaded.IsAuthenticated())
	assert.Empty(t, reloaded.RefreshToken())

	again, err := Open(ctx, "sid", b.Storage(nil, "sid"))
	require.NoError(t, err)
	assert.False(t, again.IsAuthenticated())
}

func TestStore_RefreshWithoutAccessIsAnonymous(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	require.NoError(t, b.Storage(nil, "x").Set(ctx, KeyRefreshToken, "R"))

	s, err := Open(ctx, "x", b.Storage(nil, "x"))
	require.NoError(t, err)
	assert.False(t, s.IsAuthenticated())
}

type failingStorage struct{ Storage }

func (failingStorage) Delete(context.Context, ...string) error { return errors.New("down") }

func TestStore_LogoutClearsMemoryWhenStorageFails(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend().Storage(nil, "x")
	s, err := Open(ctx, "x", failingStorage{mem})
	require.NoError(t, err)
	_, err = s.Login(ctx, "A", "R")
	require.NoError(t, err)

	next, err := s.Logout(ctx)
	assert.Error(t, err)
	assert.Equal(t, LoginPath, next)
	assert.False(t, s.IsAuthenticated())
}

func TestStore_Subject(t *testing.T) {
	ctx := context.Background()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("unknown-to-storefront"))
	require.NoError(t, err)

	s, err := Open(ctx, "x", NewMemoryBackend().Storage(nil, "x"))
	require.NoError(t, err)
	assert.Empty(t, s.Subject())

	_, err = s.Login(ctx, tok, "R")
	require.NoError(t, err)
	assert.Equal(t, "42", s.Subject())

	_, err = s.Login(ctx, "opaque-token", "R")
	require.NoError(t, err)
	assert.Empty(t, s.Subject())
	assert.True(t, s.IsAuthenticated())
}

func TestManager_IssuesAndReusesBrowserID(t *testing.T) {
	e := echo.New()
	m := NewManager(NewMemoryBackend(), false, time.Hour)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	s, err := m.Load(c)
	require.NoError(t, err)

	same, err := m.Load(c)
	require.NoError(t, err)
	assert.Same(t, s, same)

	var sid *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == CookieSID {
			sid = ck
		}
	}
	require.NotNil(t, sid)
	assert.Equal(t, s.ID(), sid.Value)
	_, err = s.Login(c.Request().Context(), "A", "R")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieSID, Value: sid.Value})
	rec2 := httptest.NewRecorder()
	s2, err := m.Load(e.NewContext(req, rec2))
	require.NoError(t, err)
	assert.Equal(t, sid.Value, s2.ID())
	assert.True(t, s2.IsAuthenticated())
	assert.Empty(t, rec2.Result().Cookies())
}

func TestManager_ReplacesMalformedBrowserID(t *testing.T) {
	e := echo.New()
	m := NewManager(NewMemoryBackend(), false, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieSID, Value: "../../etc"})

	s, err := m.Load(e.NewContext(req, httptest.NewRecorder()))
	require.NoError(t, err)
	assert.NotEqual(t, "../../etc", s.ID())
	assert.Len(t, s.ID(), 36)
}

func TestScoped_GetUpdateTakeSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewScoped(time.Minute, func() []string { return nil })
	s.now = func() time.Time { return now }

	s.Update("a", func([]string) []string { return []string{"x"} })
	assert.Equal(t, []string{"x"}, s.Get("a"))
	assert.Nil(t, s.Get("b"))

	v, ok := s.Take("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, v)
	_, ok = s.Take("a")
	assert.False(t, ok)

	s.Update("a", func(v []string) []string { return append(v, "y") })
	s.Update("a", func(v []string) []string { return append(v, "z") })
	assert.Equal(t, []string{"y", "z"}, s.Get("a"))
	s.Delete("a")

	now = now.Add(2 * time.Minute)
	s.Get("c")
	assert.Equal(t, 1, s.Sweep())
	_, ok = s.Take("b")
	assert.False(t, ok)
	_, ok = s.Take("c")
	assert.True(t, ok)
}
