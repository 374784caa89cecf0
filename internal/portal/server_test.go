package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/phillip-england/empportal/internal/avatar"
	"github.com/phillip-england/empportal/internal/directory"
	"github.com/phillip-england/empportal/internal/security"
	"github.com/phillip-england/empportal/internal/session"
	"github.com/phillip-england/empportal/internal/source"
)

type stubFetcher struct {
	mu    sync.Mutex
	users []directory.RawUser
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context) ([]directory.RawUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.users, f.err
}

func (f *stubFetcher) set(users []directory.RawUser, err error) {
	f.mu.Lock()
	f.users, f.err = users, err
	f.mu.Unlock()
}

func makeUsers(n int) []directory.RawUser {
	named := []directory.RawUser{
		{ID: 1, FirstName: "Emily", LastName: "Johnson", Age: 28, Email: "emily.johnson@x.dummyjson.com", Phone: "+81 965-431-3024", Address: directory.Address{Address: "626 Main Street", City: "Phoenix"}, Company: &directory.Company{Name: "Dooley, Kozey and Cronin"}},
		{ID: 2, FirstName: "Michael", LastName: "Williams", Age: 0, Email: "michael.williams@x.dummyjson.com", Address: directory.Address{Address: "385 Fifth Street", City: "Houston"}},
		{ID: 3, FirstName: "Sophia", LastName: "Brown", Age: 42, Email: "sophia.brown@x.dummyjson.com", Address: directory.Address{Address: "1642 Ninth Street", City: "Washington"}},
	}
	users := make([]directory.RawUser, 0, n)
	for i := 0; i < n; i++ {
		if i < len(named) {
			users = append(users, named[i])
			continue
		}
		users = append(users, directory.RawUser{
			ID:        i + 1,
			FirstName: fmt.Sprintf("Person%d", i+1),
			LastName:  "Test",
			Age:       30,
			Address:   directory.Address{Address: "1 Test Road", City: "Test"},
		})
	}
	return users
}

type testPortal struct {
	server  *Server
	handler http.Handler
	fetcher *stubFetcher
}

func newTestPortal(t *testing.T, users []directory.RawUser, fetchErr error) *testPortal {
	t.Helper()
	auth, err := security.NewAuthenticator("testuser", "Test123")
	require.NoError(t, err)

	fetcher := &stubFetcher{users: users, err: fetchErr}
	srv, err := New(Config{NumberLocale: "en-US"}, Deps{
		Users:    source.NewCache(fetcher, "users", time.Hour),
		Enricher: directory.NewEnricher(directory.StableSynthesizer{Salt: "test"}),
		Auth:     auth,
		Sessions: session.NewStore(time.Hour),
	})
	require.NoError(t, err)
	return &testPortal{server: srv, handler: srv.Handler(), fetcher: fetcher}
}

func (p *testPortal) records() []directory.EmployeeRecord {
	return p.server.enricher.EnrichAll(p.fetcher.users)
}

func (p *testPortal) login(t *testing.T) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {"testuser"}, "password": {"Test123"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	p.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/list", rr.Header().Get("Location"))
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("login did not set a session cookie")
	return nil
}

func (p *testPortal) get(t *testing.T, cookie *http.Cookie, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	p.handler.ServeHTTP(rr, req)
	return rr
}

func TestProtectedViewsRedirectToLogin(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	for _, path := range []string{"/list", "/details/1", "/graph", "/map", "/photo", "/api/employees", "/photos/1"} {
		rr := p.get(t, nil, path)
		assert.Equal(t, http.StatusFound, rr.Code, path)
		assert.Equal(t, "/", rr.Header().Get("Location"), path)
	}
	assert.Equal(t, 0, p.fetcher.calls, "guard runs before any load")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	form := url.Values{"username": {"testuser"}, "password": {"wrong-pass"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	p.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid username or password")
	assert.Empty(t, rr.Result().Cookies())
	assert.NotContains(t, rr.Body.String(), "sidebar-nav")
}

func TestLoginPageRedirectsWhenSignedIn(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	cookie := p.login(t)
	rr := p.get(t, cookie, "/")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/list", rr.Header().Get("Location"))

	rr = p.get(t, nil, "/login")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `id="password-toggle"`)
}

func TestListPageAndSearch(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	cookie := p.login(t)

	rr := p.get(t, cookie, "/list")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Employee Directory (3 employees)")
	assert.Contains(t, body, "Showing 3 of 3 employees")
	assert.Contains(t, body, "Emily Johnson")
	assert.Contains(t, body, `src="/photos/1?size=50"`)
	assert.Contains(t, body, p.server.numbers.Rupees(p.records()[0].Salary))

	rr = p.get(t, cookie, "/list?q=MIC")
	body = rr.Body.String()
	assert.Contains(t, body, `Showing 1 of 3 employees for "MIC"`)
	assert.Contains(t, body, "Michael Williams")
	assert.NotContains(t, body, "Emily Johnson")
}

func TestListPageShowsFailureAndKeepsPriorBatch(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	cookie := p.login(t)
	require.Equal(t, http.StatusOK, p.get(t, cookie, "/list").Code)

	p.fetcher.set(nil, &source.LoadFailure{Op: "status", StatusCode: http.StatusServiceUnavailable})
	body := p.get(t, cookie, "/list?refresh=1").Body.String()
	assert.Contains(t, body, "Failed to load employees")
	assert.Contains(t, body, "Emily Johnson")
}

func TestListPageFailureWithoutData(t *testing.T) {
	p := newTestPortal(t, nil, &source.LoadFailure{Op: "transport"})
	cookie := p.login(t)
	body := p.get(t, cookie, "/list").Body.String()
	assert.Contains(t, body, "Failed to load employees")
	assert.Contains(t, body, "Showing 0 of 0 employees")
}

func TestDetailsPageSelection(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	cookie := p.login(t)

	body := p.get(t, cookie, "/details/2").Body.String()
	assert.Contains(t, body, "EMP-002")
	assert.Contains(t, body, "Michael Williams")
	assert.Contains(t, body, "385 Fifth Street, Houston")
	assert.Contains(t, body, "Tech Corp")

	body = p.get(t, cookie, "/details/999").Body.String()
	assert.Contains(t, body, "EMP-001", "unknown id falls back to the first employee")

	body = p.get(t, cookie, "/details").Body.String()
	assert.Contains(t, body, "EMP-001")

	body = p.get(t, cookie, "/details/1?q=zzz").Body.String()
	assert.Contains(t, body, `No employees found for "zzz"`)
	assert.Contains(t, body, "0 of 3 employees")
}

func TestGraphPage(t *testing.T) {
	p := newTestPortal(t, makeUsers(12), nil)
	cookie := p.login(t)

	stats, err := directory.Summarize(p.records())
	require.NoError(t, err)

	body := p.get(t, cookie, "/graph").Body.String()
	assert.Contains(t, body, "Top 10 Salaries")
	assert.Contains(t, body, "&#8377;"+lakhs(stats.HighestSalary)+"L")
	assert.Contains(t, body, "&#8377;"+lakhs(stats.AverageSalary)+"L")
	assert.Contains(t, body, stats.TopEarner)
	assert.Equal(t, 10, strings.Count(body, `class="bar"`))
}

func TestGraphPageWithoutRecords(t *testing.T) {
	p := newTestPortal(t, []directory.RawUser{}, nil)
	cookie := p.login(t)
	body := p.get(t, cookie, "/graph").Body.String()
	assert.Contains(t, body, "No data available")
	assert.NotContains(t, body, "Top 10 Salaries")
}

func TestMapPage(t *testing.T) {
	p := newTestPortal(t, makeUsers(30), nil)
	cookie := p.login(t)

	groups := directory.GroupByCity(p.records(), directory.Cities)
	best, ok := directory.MostPopulated(groups)
	require.True(t, ok)

	body := p.get(t, cookie, "/map").Body.String()
	assert.Contains(t, body, "Employee Locations (30 total)")
	assert.Equal(t, len(groups), strings.Count(body, `class="city-card"`))
	assert.Contains(t, body, fmt.Sprintf("%s (%d)", best.Name, best.Count))
	assert.Contains(t, body, `id="city-data"`)
	assert.Contains(t, body, "unpkg.com/leaflet")
}

var gridCard = regexp.MustCompile(`class="photo-card"`)

func TestPhotoGalleryPagination(t *testing.T) {
	p := newTestPortal(t, makeUsers(25), nil)
	cookie := p.login(t)

	body := p.get(t, cookie, "/photo").Body.String()
	assert.Len(t, gridCard.FindAllString(body, -1), 12)
	assert.Contains(t, body, "Showing 12 of 25 employees (3 pages)")
	assert.Contains(t, body, `<span class="page-btn disabled">First</span>`)

	body = p.get(t, cookie, "/photo?page=3").Body.String()
	assert.Len(t, gridCard.FindAllString(body, -1), 1)
	assert.Contains(t, body, "Showing 1 of 25 employees (3 pages)")
	assert.Contains(t, body, `<span class="page-btn disabled">Last</span>`)

	// a new query submitted from page 3 starts over on page 1
	body = p.get(t, cookie, "/photo?page=3&q=person").Body.String()
	assert.Contains(t, body, `name="page" value="1"`)
	assert.Contains(t, body, "Showing 12 of 22 employees (2 pages)")

	// paging within the same query keeps the page
	body = p.get(t, cookie, "/photo?page=2&q=person&pq=person").Body.String()
	assert.Contains(t, body, "Showing 10 of 22 employees (2 pages)")
}

func TestPhotoGalleryDepartmentFilter(t *testing.T) {
	p := newTestPortal(t, makeUsers(25), nil)
	cookie := p.login(t)

	dept := p.records()[0].Department
	want := len(directory.Filter(p.records(), directory.Query{Department: dept}))
	body := p.get(t, cookie, "/photo?dept="+url.QueryEscape(dept)).Body.String()
	assert.Contains(t, body, fmt.Sprintf("of %d employees", want))
	assert.Contains(t, body, fmt.Sprintf(`<option value="%s" selected>`, dept))
}

func TestAvatarAndPhotoFallback(t *testing.T) {
	photo, err := avatar.EncodePNG(avatar.Placeholder("Z", 80))
	require.NoError(t, err)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.png" {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(photo)
			return
		}
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	users := makeUsers(3)
	users[0].Image = upstream.URL + "/ok.png"
	users[1].Image = upstream.URL + "/missing.png"
	p := newTestPortal(t, users, nil)
	cookie := p.login(t)

	for _, target := range []string{"/photos/1?size=40", "/photos/2?size=40", "/photos/3?size=40", "/avatars/2.png?size=40", "/photos/404?size=40"} {
		rr := p.get(t, cookie, target)
		require.Equal(t, http.StatusOK, rr.Code, target)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"), target)
		img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
		require.NoError(t, err, target)
		assert.Equal(t, 40, img.Bounds().Dx(), target)
	}
}

func TestExportWorkbook(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	cookie := p.login(t)

	rr := p.get(t, cookie, "/export/employees.xlsx")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "employees.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Employees")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Emily Johnson", rows[1][1])
}

func TestExportWithoutData(t *testing.T) {
	p := newTestPortal(t, nil, &source.LoadFailure{Op: "transport"})
	cookie := p.login(t)
	rr := p.get(t, cookie, "/export/employees.xlsx")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "Failed to load employees")
}

func TestEmployeesJSON(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	cookie := p.login(t)

	rr := p.get(t, cookie, "/api/employees")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp employeesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "loaded", resp.Status)
	assert.Equal(t, p.records(), resp.Employees)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 3, resp.Stats.TotalEmployees)
	assert.NotNil(t, resp.FetchedAt)
}

func TestViewsShareOneSynthesizedDataset(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	cookie := p.login(t)
	record := p.records()[1]

	salary := p.server.numbers.Rupees(record.Salary)
	assert.Contains(t, p.get(t, cookie, "/list").Body.String(), salary)
	assert.Contains(t, p.get(t, cookie, "/details/2").Body.String(), salary)
	assert.Contains(t, p.get(t, cookie, "/photo").Body.String(), salary)
	assert.Equal(t, 1, p.fetcher.calls)
}

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestLogoutRequiresCSRF(t *testing.T) {
	p := newTestPortal(t, makeUsers(3), nil)
	cookie := p.login(t)

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		p.handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusForbidden, post(url.Values{}).Code)

	match := csrfField.FindStringSubmatch(p.get(t, cookie, "/list").Body.String())
	require.Len(t, match, 2)
	rr := post(url.Values{csrfFieldName: {match[1]}})
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	assert.Equal(t, http.StatusFound, p.get(t, cookie, "/list").Code)
}

func TestHealthzAndSecurityHeaders(t *testing.T) {
	p := newTestPortal(t, makeUsers(1), nil)
	rr := p.get(t, nil, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "unpkg.com")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRunReturnsListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	p := newTestPortal(t, makeUsers(1), nil)
	p.server.cfg.Addr = taken.Addr().String()

	done := make(chan error, 1)
	go func() { done <- p.server.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), taken.Addr().String())
	case <-time.After(3 * time.Second):
		t.Fatal("Run kept blocking after the listener failed")
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	free, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := free.Addr().String()
	require.NoError(t, free.Close())

	p := newTestPortal(t, makeUsers(1), nil)
	p.server.cfg.Addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.server.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
