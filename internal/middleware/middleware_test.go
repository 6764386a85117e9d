package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/utils"
)

const testSecret = "test-secret"

func serve(t *testing.T, mw []echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	var seen echo.Context
	handler := func(c echo.Context) error {
		seen = c
		return c.String(http.StatusOK, "ok")
	}
	e.GET("/me", handler, mw...)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func bearer(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, userID, role, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + tok.Token
}

func TestJWTAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	t.Parallel()

	for _, header := range []string{"", "Basic abc", "Bearer not-a-jwt"} {
		rec, seen := serve(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d", header, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"code":"unauthenticated"`) {
			t.Fatalf("header %q: body = %s", header, rec.Body.String())
		}
		if seen != nil {
			t.Fatalf("header %q: handler ran", header)
		}
	}
}

func TestJWTAuthStoresActor(t *testing.T) {
	t.Parallel()

	rec, seen := serve(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, bearer(t, 42, model.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	actor, ok := ActorFrom(seen)
	if !ok || actor.UserID != 42 || !actor.IsAdmin {
		t.Fatalf("actor = %+v, %v", actor, ok)
	}
	if got := currentUserID(seen); got != "42" {
		t.Fatalf("user id = %q", got)
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	mw := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole(model.RoleAdmin)}
	if rec, _ := serve(t, mw, bearer(t, 7, model.RoleStudent)); rec.Code != http.StatusForbidden {
		t.Fatalf("student status = %d", rec.Code)
	}
	if rec, _ := serve(t, mw, bearer(t, 1, model.RoleAdmin)); rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d", rec.Code)
	}
}

type accounts map[uint64]*model.User

func (a accounts) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := a[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func TestRequireStoredAdminRechecksAccount(t *testing.T) {
	t.Parallel()

	users := accounts{
		1: {ID: 1, IsAdmin: true},
		2: {ID: 2, IsAdmin: false}, // demoted after the token was issued
	}
	mw := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole(model.RoleAdmin), RequireStoredAdmin(users)}

	rec, seen := serve(t, mw, bearer(t, 1, model.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d", rec.Code)
	}
	if actor, _ := ActorFrom(seen); !actor.IsAdmin {
		t.Fatalf("actor = %+v", actor)
	}
	if rec, seen := serve(t, mw, bearer(t, 2, model.RoleAdmin)); rec.Code != http.StatusForbidden || seen != nil {
		t.Fatalf("demoted status = %d", rec.Code)
	}
	if rec, _ := serve(t, mw, bearer(t, 3, model.RoleAdmin)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted account status = %d", rec.Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/reservations", nil)
	req.Header.Set("X-Real-IP", "10.0.0.5")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/reservations")
	c.Set(ContextUserID, uint64(9))

	cases := map[string]string{
		"ip":            "rl:ip:10.0.0.5",
		"user":          "rl:user:9",
		"user_route":    "rl:user:9:route:POST /reservations",
		"ip_user_route": "rl:ip:10.0.0.5:user:9:route:POST /reservations",
	}
	for strategy, want := range cases {
		got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		if got != want {
			t.Errorf("%s: key = %q, want %q", strategy, got, want)
		}
	}
}

func TestParseBucketResult(t *testing.T) {
	t.Parallel()

	allowed, remaining, retry, ok := parseBucketResult([]any{int64(0), int64(0), int64(1500)})
	if !ok || allowed || remaining != 0 || retry != 1500 {
		t.Fatalf("got %v %d %d %v", allowed, remaining, retry, ok)
	}
	if secs := retryAfterSeconds(retry); secs != 2 {
		t.Fatalf("retry after = %d", secs)
	}
	if _, _, _, ok := parseBucketResult("nope"); ok {
		t.Fatal("expected malformed result to be rejected")
	}
}

func TestDisabledLimiterAndCachePassThrough(t *testing.T) {
	t.Parallel()

	mw := []echo.MiddlewareFunc{
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil),
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil),
	}
	rec, _ := serve(t, mw, "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("status = %d, X-Cache = %q", rec.Code, rec.Header().Get("X-Cache"))
	}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	t.Parallel()

	hdr := http.Header{"Content-Type": []string{"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[{"id":1}]`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `[{"id":1}]` {
		t.Fatalf("decode = %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:5]); ok {
		t.Fatal("expected short payload to be rejected")
	}
}

func TestCacheKeyIgnoresQueryForRouteStrategy(t *testing.T) {
	t.Parallel()

	e := echo.New()
	ctx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/halls")
		return c
	}
	route := config.CacheConfig{Prefix: "hallcache", KeyStrategy: "route"}
	if cacheKeyFrom(route, ctx("/halls?a=1")) != cacheKeyFrom(route, ctx("/halls?a=2")) {
		t.Fatal("route strategy must ignore the query")
	}
	withQuery := config.CacheConfig{Prefix: "hallcache", KeyStrategy: "route_query"}
	k1, k2 := cacheKeyFrom(withQuery, ctx("/halls?a=1")), cacheKeyFrom(withQuery, ctx("/halls?a=2"))
	if k1 == k2 || !strings.HasPrefix(k1, "hallcache:") {
		t.Fatalf("keys = %q, %q", k1, k2)
	}
}

func TestTracePassesResponseThrough(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/halls", func(c echo.Context) error {
		if c.Request().Context() == nil {
			t.Error("missing request context")
		}
		return c.String(http.StatusTeapot, "short and stout")
	}, Trace())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/halls", nil))
	if rec.Code != http.StatusTeapot || rec.Body.String() != "short and stout" {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}
