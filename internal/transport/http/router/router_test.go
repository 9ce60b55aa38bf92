package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go-gin-marketplace/internal/app"
	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/core/config"
	"go-gin-marketplace/internal/core/database"
	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/user"
	"go-gin-marketplace/internal/repo"
	"go-gin-marketplace/internal/transport/http/router"
	"go-gin-marketplace/pkg/utils"
)

const cookieName = "mkt_session"

type env struct {
	t     *testing.T
	app   *app.App
	web   *gin.Engine
	admin *gin.Engine
	alice auth.Identity
	bob   auth.Identity
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))

	cfg := &config.Config{
		App:     config.App{BaseURL: "http://market.test"},
		JWT:     config.JWT{Secret: "0123456789abcdef0123", Issuer: "test", AccessTokenTTLMin: 60, ConfirmTTLMin: 60},
		Session: config.Session{CookieName: cookieName},
		Market:  config.Market{RelatedLimit: 4, BrowsePageSize: 20},
	}
	a := app.Wire(context.Background(), cfg, zaptest.NewLogger(t), db)
	t.Cleanup(a.Close)

	web, err := router.NewWebEngine(a.WebDeps())
	require.NoError(t, err)
	e := &env{t: t, app: a, web: web, admin: router.NewAdminEngine(a.AdminDeps())}
	e.alice = e.addUser("alice@example.com", "Alice", "admin", true)
	e.bob = e.addUser("bob@example.com", "Bob", "user", true)

	t0 := time.Now().Add(-time.Hour)
	e.addListing(domain.Listing{ID: "L1", Title: "Oak desk", Price: 120, Category: "furniture", UserID: e.alice.Email, UserName: "Alice", CreatedAt: t0})
	e.addListing(domain.Listing{ID: "L2", Title: "Pine desk", Price: 80, Category: "furniture", UserID: e.alice.Email, IsDraft: true, CreatedAt: t0})
	e.addListing(domain.Listing{ID: "L3", Title: "Desk lamp", Price: 15, Category: "furniture", UserID: e.bob.Email, UserName: "Bob", CreatedAt: t0.Add(time.Minute)})
	return e
}

func (e *env) addUser(email, name, role string, confirmed bool) auth.Identity {
	hash, err := utils.HashPassword("secret1")
	require.NoError(e.t, err)
	u := &domain.User{ID: utils.NewID(), Email: email, Name: name, PasswordHash: hash, Role: role}
	if confirmed {
		now := time.Now()
		u.ConfirmedAt = &now
	}
	require.NoError(e.t, e.app.Users.Create(context.Background(), u))
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: role}
}

func (e *env) addListing(l domain.Listing) {
	require.NoError(e.t, e.app.Listings.Create(context.Background(), &l))
}

func (e *env) cookie(id auth.Identity) *http.Cookie {
	tok, err := e.app.JWT.Issue(id)
	require.NoError(e.t, err)
	return &http.Cookie{Name: cookieName, Value: tok}
}

func (e *env) do(h http.Handler, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func (e *env) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.do(e.web, httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (e *env) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(e.web, req, cookies...)
}

func (e *env) api(h http.Handler, method, path, body, bearer string) envelope {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := e.do(h, req)
	require.Equal(e.t, http.StatusOK, rec.Code)
	var out envelope
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func doc(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return d
}

func TestListingDetail_OwnerSeesManagement(t *testing.T) {
	e := newEnv(t)
	for _, id := range []string{"L1", "L2"} {
		rec := e.get("/listing/"+id, e.cookie(e.alice))
		require.Equal(t, http.StatusOK, rec.Code, id)
		d := doc(t, rec)
		assert.Equal(t, "owner", d.Find("article.listing").AttrOr("data-variant", ""))
		assert.Equal(t, 1, d.Find(".owner-actions form[action='/listing/"+id+"/delete']").Length())
		assert.Equal(t, 0, d.Find(".seller").Length())
	}
}

func TestListingDetail_PublicView(t *testing.T) {
	e := newEnv(t)
	for _, cookies := range [][]*http.Cookie{nil, {e.cookie(e.bob)}} {
		rec := e.get("/listing/L1", cookies...)
		require.Equal(t, http.StatusOK, rec.Code)
		d := doc(t, rec)
		assert.Equal(t, "public", d.Find("article.listing").AttrOr("data-variant", ""))
		assert.Equal(t, "Oak desk", d.Find("h1.title").Text())
		assert.Equal(t, "Alice", d.Find(".seller .name").Text())
		assert.Equal(t, "2 listings", d.Find(".seller .count").Text())
		assert.Equal(t, 0, d.Find(".owner-actions").Length())

		var related []string
		d.Find(".related li.card").Each(func(_ int, s *goquery.Selection) {
			related = append(related, s.AttrOr("data-id", ""))
		})
		assert.Equal(t, []string{"L3"}, related, "drafts never recommended")
	}
}

func TestListingDetail_DraftHiddenLikeMissing(t *testing.T) {
	e := newEnv(t)
	missing := e.get("/listing/nope")
	require.Equal(t, http.StatusNotFound, missing.Code)
	want, err := doc(t, missing).Find("main").Html()
	require.NoError(t, err)

	for _, cookies := range [][]*http.Cookie{nil, {e.cookie(e.bob)}} {
		rec := e.get("/listing/L2", cookies...)
		require.Equal(t, http.StatusNotFound, rec.Code)
		d := doc(t, rec)
		assert.Equal(t, "/browse", d.Find(".not-found a.back").AttrOr("href", ""))
		assert.Equal(t, 0, d.Find("article.listing").Length())
		if cookies == nil {
			got, err := d.Find("main").Html()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}
}

func TestListingDetail_FetchErrorIsSafe(t *testing.T) {
	e := newEnv(t)
	sqlDB, err := e.app.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := e.get("/listing/L1")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	d := doc(t, rec)
	assert.Equal(t, "Failed to load listing", d.Find(".error .message").Text())
	assert.Equal(t, "/browse", d.Find(".error a.back").AttrOr("href", ""))
	assert.NotContains(t, rec.Body.String(), "closed")
}

func TestBrowse(t *testing.T) {
	e := newEnv(t)
	rec := e.get("/browse?q=desk")
	require.Equal(t, http.StatusOK, rec.Code)
	d := doc(t, rec)
	var ids []string
	d.Find("ul.grid li.card").Each(func(_ int, s *goquery.Selection) { ids = append(ids, s.AttrOr("data-id", "")) })
	assert.Equal(t, []string{"L3", "L1"}, ids)
	assert.Equal(t, "2 listings", d.Find(".total").Text())

	rec = e.get("/browse?size=1")
	d = doc(t, rec)
	assert.Equal(t, 1, d.Find("ul.grid li.card").Length())
	assert.Contains(t, d.Find(".pager a.next").AttrOr("href", ""), "page=2")
}

func TestBrowse_HugePageIsCapped(t *testing.T) {
	e := newEnv(t)
	rec := e.get("/browse?page=4611686018427387904")
	require.Equal(t, http.StatusOK, rec.Code)
	d := doc(t, rec)
	assert.Equal(t, 0, d.Find("ul.grid li.card").Length())
	assert.Contains(t, d.Find(".pager a.prev").AttrOr("href", ""), "page=9999")
	assert.Equal(t, 0, d.Find(".pager a.next").Length())

	out := e.api(e.web, http.MethodGet, "/api/v1/listings?page=4611686018427387904", "", "")
	require.Equal(t, 0, out.Code, out.Msg)
	assert.Contains(t, string(out.Data), `"page":10000`)
	assert.Contains(t, string(out.Data), `"list":[]`)
}

func TestListingDetail_RelatedEmptyState(t *testing.T) {
	e := newEnv(t)
	e.addListing(domain.Listing{ID: "L4", Title: "Field guide", Price: 12, Category: "books", UserID: e.bob.Email, UserName: "Bob", CreatedAt: time.Now()})

	rec := e.get("/listing/L4")
	require.Equal(t, http.StatusOK, rec.Code)
	d := doc(t, rec)
	assert.Equal(t, 1, d.Find("section.related").Length())
	assert.Equal(t, 0, d.Find("section.related li.card").Length())
	assert.Equal(t, "No related listings yet.", strings.TrimSpace(d.Find("section.related .empty").Text()))
}

func TestSignIn_SetsCookieAndNavigates(t *testing.T) {
	e := newEnv(t)
	rec := e.postForm("/auth/signin", url.Values{"email": {"Alice@Example.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/settings", rec.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	rec = e.get("/settings", session)
	require.Equal(t, http.StatusOK, rec.Code)
	d := doc(t, rec)
	assert.Equal(t, "alice@example.com", d.Find(".settings .email").Text())
	assert.Equal(t, 2, d.Find("ul.mine li.card").Length(), "settings lists drafts too")
}

func TestSignIn_Failures(t *testing.T) {
	e := newEnv(t)
	e.addUser("carol@example.com", "Carol", "user", false)

	cases := []struct {
		email, password, want string
	}{
		{"alice@example.com", "wrong-pass", "Invalid email or password."},
		{"ghost@example.com", "secret1", "Invalid email or password."},
		{"carol@example.com", "secret1", "Please confirm your email before signing in."},
		{"", "", "Email and password are required."},
	}
	for _, tc := range cases {
		rec := e.postForm("/auth/signin", url.Values{"email": {tc.email}, "password": {tc.password}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
		assert.Equal(t, tc.want, doc(t, rec).Find(".flash.error").Text(), tc.email)
	}
}

func TestSignUp_ShowsConfirmationWithoutSession(t *testing.T) {
	e := newEnv(t)
	rec := e.postForm("/auth/signin", url.Values{"mode": {"signup"}, "email": {"dave@example.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	d := doc(t, rec)
	assert.Equal(t, "Check your email for the confirmation link!", d.Find(".flash.notice").Text())
	assert.Equal(t, 0, d.Find(".flash.error").Length())

	u, err := e.app.Users.FindByEmail(context.Background(), "dave@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.False(t, u.Confirmed())

	tok, err := e.app.JWT.IssueStamped(auth.PurposeConfirm, auth.Identity{UserID: u.ID, Email: u.Email}, user.PasswordStamp(u.PasswordHash), time.Hour)
	require.NoError(t, err)
	rec = e.get("/auth/confirm?token=" + url.QueryEscape(tok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email confirmed", doc(t, rec).Find(".confirm h1").Text())

	rec = e.get("/auth/confirm?token=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignUp_RepeatedTakesLatestPassword(t *testing.T) {
	e := newEnv(t)
	signUp := func(password string) {
		rec := e.postForm("/auth/signin", url.Values{"mode": {"signup"}, "email": {"erin@example.com"}, "password": {password}})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 0, doc(t, rec).Find(".flash.error").Length())
	}
	confirmLink := func() string {
		u, err := e.app.Users.FindByEmail(context.Background(), "erin@example.com")
		require.NoError(t, err)
		require.NotNil(t, u)
		tok, err := e.app.JWT.IssueStamped(auth.PurposeConfirm, auth.Identity{UserID: u.ID, Email: u.Email}, user.PasswordStamp(u.PasswordHash), time.Hour)
		require.NoError(t, err)
		return "/auth/confirm?token=" + url.QueryEscape(tok)
	}

	signUp("first-pass")
	stale := confirmLink()
	signUp("second-pass")

	// 旧密码签发的确认链接失效
	assert.Equal(t, http.StatusBadRequest, e.get(stale).Code)
	require.Equal(t, http.StatusOK, e.get(confirmLink()).Code)

	rec := e.postForm("/auth/signin", url.Values{"email": {"erin@example.com"}, "password": {"first-pass"}})
	assert.Equal(t, "Invalid email or password.", doc(t, rec).Find(".flash.error").Text())
	rec = e.postForm("/auth/signin", url.Values{"email": {"erin@example.com"}, "password": {"second-pass"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestSettingsRequiresSession(t *testing.T) {
	e := newEnv(t)
	rec := e.get("/settings")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin", rec.Header().Get("Location"))

	rec = e.get("/settings", &http.Cookie{Name: cookieName, Value: "tampered"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestOwnerActions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec := e.postForm("/listing/L1/sold", nil, e.cookie(e.alice))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/listing/L1", rec.Header().Get("Location"))
	l, err := e.app.Listings.FindByID(ctx, "L1")
	require.NoError(t, err)
	assert.True(t, l.IsSold)

	rec = e.postForm("/listing/L2/publish", nil, e.cookie(e.alice))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = e.get("/listing/L2")
	assert.Equal(t, http.StatusOK, rec.Code, "published listing is public")

	// 非 owner 的写操作与不存在同样处理
	rec = e.postForm("/listing/L1/delete", nil, e.cookie(e.bob))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	l, err = e.app.Listings.FindByID(ctx, "L1")
	require.NoError(t, err)
	assert.NotNil(t, l)

	rec = e.postForm("/listing/L1/delete", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin", rec.Header().Get("Location"))

	rec = e.postForm("/listing/L1/delete", nil, e.cookie(e.alice))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/settings", rec.Header().Get("Location"))
	assert.Equal(t, http.StatusNotFound, e.get("/listing/L1").Code)
}

func TestAPI_LoginMeAndListings(t *testing.T) {
	e := newEnv(t)

	out := e.api(e.web, http.MethodPost, "/api/v1/auth/login", `{"email":"bob@example.com","password":"secret1"}`, "")
	require.Equal(t, 0, out.Code, out.Msg)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &login))
	require.NotEmpty(t, login.Token)

	out = e.api(e.web, http.MethodPost, "/api/v1/auth/login", `{"email":"bob@example.com","password":"nope12"}`, "")
	assert.Equal(t, 401, out.Code)
	assert.Equal(t, "Invalid email or password.", out.Msg)

	out = e.api(e.web, http.MethodGet, "/api/v1/me", "", login.Token)
	require.Equal(t, 0, out.Code)
	assert.Contains(t, string(out.Data), `"email":"bob@example.com"`)

	out = e.api(e.web, http.MethodGet, "/api/v1/me", "", "")
	assert.Equal(t, 401, out.Code)

	out = e.api(e.web, http.MethodGet, "/api/v1/listings/L2", "", login.Token)
	assert.Equal(t, 404, out.Code, "draft hidden from non-owner")

	out = e.api(e.web, http.MethodGet, "/api/v1/listings/L1", "", login.Token)
	require.Equal(t, 0, out.Code)
	var detail struct {
		Variant    string `json:"variant"`
		OwnerCount int64  `json:"ownerCount"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &detail))
	assert.Equal(t, "public", detail.Variant)
	assert.Equal(t, int64(2), detail.OwnerCount)

	out = e.api(e.web, http.MethodGet, "/api/v1/listings?category=furniture", "", "")
	require.Equal(t, 0, out.Code)
	assert.Contains(t, string(out.Data), `"total":2`)
}

func TestAPI_MyListingsCrud(t *testing.T) {
	e := newEnv(t)
	tok, err := e.app.JWT.Issue(e.bob)
	require.NoError(t, err)

	out := e.api(e.web, http.MethodPost, "/api/v1/my/listings", `{"title":" Bike ","price":90,"category":"sports","user_id":"alice@example.com","is_draft":true}`, tok)
	require.Equal(t, 0, out.Code, out.Msg)
	var created struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		UserID   string `json:"user_id"`
		UserName string `json:"user_name"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &created))
	assert.Len(t, created.ID, 32)
	assert.Equal(t, "Bike", created.Title)
	assert.Equal(t, "bob@example.com", created.UserID, "owner comes from the session")
	assert.Equal(t, "Bob", created.UserName)

	out = e.api(e.web, http.MethodPut, "/api/v1/my/listings/"+created.ID, `{"title":"Bike","price":80,"is_draft":false}`, tok)
	require.Equal(t, 0, out.Code, out.Msg)
	l, err := e.app.Listings.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, l.IsDraft)
	assert.Equal(t, 80.0, l.Price)

	out = e.api(e.web, http.MethodGet, "/api/v1/my/listings", "", tok)
	require.Equal(t, 0, out.Code)
	assert.Contains(t, string(out.Data), `"total":2`)

	// 其他人的 listing 按不存在处理
	out = e.api(e.web, http.MethodDelete, "/api/v1/my/listings/L1", "", tok)
	assert.Equal(t, 404, out.Code)
	out = e.api(e.web, http.MethodPost, "/api/v1/my/listings", `{"title":"  "}`, tok)
	assert.Equal(t, 400, out.Code)
}

func TestAdmin(t *testing.T) {
	e := newEnv(t)
	adminTok, err := e.app.JWT.Issue(e.alice)
	require.NoError(t, err)
	userTok, err := e.app.JWT.Issue(e.bob)
	require.NoError(t, err)

	out := e.api(e.admin, http.MethodGet, "/admin/v1/users", "", userTok)
	assert.Equal(t, 403, out.Code)

	out = e.api(e.admin, http.MethodGet, "/admin/v1/users?q=BOB", "", adminTok)
	require.Equal(t, 0, out.Code, out.Msg)
	assert.Contains(t, string(out.Data), `"total":1`)

	out = e.api(e.admin, http.MethodGet, "/admin/v1/listings?drafts=true", "", adminTok)
	require.Equal(t, 0, out.Code)
	assert.Contains(t, string(out.Data), `"total":1`)

	out = e.api(e.admin, http.MethodDelete, "/admin/v1/listings/L3", "", adminTok)
	require.Equal(t, 0, out.Code)
	out = e.api(e.admin, http.MethodDelete, "/admin/v1/listings/L3", "", adminTok)
	assert.Equal(t, 404, out.Code)

	out = e.api(e.admin, http.MethodPost, "/admin/v1/users/"+e.bob.UserID+"/ban", "", adminTok)
	require.Equal(t, 0, out.Code)
	u, err := e.app.Users.FindByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestBannedAccountLosesSession(t *testing.T) {
	e := newEnv(t)
	adminTok, err := e.app.JWT.Issue(e.alice)
	require.NoError(t, err)
	bobTok, err := e.app.JWT.Issue(e.bob)
	require.NoError(t, err)
	bobCookie := e.cookie(e.bob)
	require.Equal(t, http.StatusOK, e.get("/settings", bobCookie).Code)

	out := e.api(e.admin, http.MethodPost, "/admin/v1/users/"+e.bob.UserID+"/ban", "", adminTok)
	require.Equal(t, 0, out.Code, out.Msg)

	rec := e.get("/settings", bobCookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin", rec.Header().Get("Location"))
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie cleared")

	rec = e.postForm("/listing/L3/delete", nil, bobCookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin", rec.Header().Get("Location"))

	out = e.api(e.web, http.MethodGet, "/api/v1/me", "", bobTok)
	assert.Equal(t, 401, out.Code)
}

func TestRoleChangeAppliesToIssuedTokens(t *testing.T) {
	e := newEnv(t)
	aliceTok, err := e.app.JWT.Issue(e.alice)
	require.NoError(t, err)
	bobTok, err := e.app.JWT.Issue(e.bob)
	require.NoError(t, err)

	assert.Equal(t, 403, e.api(e.admin, http.MethodGet, "/admin/v1/users", "", bobTok).Code)

	out := e.api(e.admin, http.MethodPost, "/admin/v1/users/"+e.bob.UserID+"/role", `{"role":"admin"}`, aliceTok)
	require.Equal(t, 0, out.Code, out.Msg)
	assert.Equal(t, 0, e.api(e.admin, http.MethodGet, "/admin/v1/users", "", bobTok).Code, "promotion applies without a new token")

	out = e.api(e.admin, http.MethodPost, "/admin/v1/users/"+e.alice.UserID+"/role", `{"role":"user"}`, bobTok)
	require.Equal(t, 0, out.Code, out.Msg)
	assert.Equal(t, 403, e.api(e.admin, http.MethodGet, "/admin/v1/users", "", aliceTok).Code, "demotion applies without a new token")
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	rec := e.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	e.get("/listing/L1")
	rec = e.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `market_listing_views_total{variant="public"}`)
}
