package portal

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/phillip-england/empportal/internal/directory"
	"github.com/phillip-england/empportal/internal/middleware"
)

const (
	loadFailedMsg = "Failed to load employees"
	noDataMsg     = "No data available"
	chartBars     = 10
	popupLimit    = 5
	listPhotoSize = 50
	cardPhotoSize = 250
)

type pageData struct {
	Title    string
	Active   string
	Error    string
	Username string
	CSRF     string

	LoadError string
	Status    string
	NoData    bool

	Employees  []directory.EmployeeRecord
	TotalCount int
	ShownCount int
	Query      string

	Selected *directory.EmployeeRecord

	Stats *directory.AggregateStats
	Bars  []barView
	Axis  []axisView

	Cities        []cityView
	MostPopulated *cityView
	RichestCity   *cityView

	Department  string
	Departments []string
	Gallery     *galleryView
}

type barView struct {
	X      int
	Y      float64
	Height float64
	LabelX int
	Amount string
	Name   string
}

type axisView struct {
	Y      int
	LabelY int
	Label  string
}

type cityView struct {
	Name      string           `json:"name"`
	Lat       float64          `json:"lat"`
	Lng       float64          `json:"lng"`
	Count     int              `json:"count"`
	AvgK      int              `json:"avgK"`
	BarWidth  string           `json:"-"`
	Employees []cityMemberView `json:"employees"`
	More      int              `json:"more"`
}

type cityMemberView struct {
	Name   string `json:"name"`
	Salary string `json:"salary"`
}

type pageLink struct {
	Number int
	Href   string
	Active bool
}

type galleryView struct {
	Page       int
	TotalPages int
	FromQuery  string
	FromDept   string
	Links      []pageLink
	FirstHref  string
	PrevHref   string
	NextHref   string
	LastHref   string
	HasPrev    bool
	HasNext    bool
}

// directoryView is the enriched batch a page renders plus how its load went.
type directoryView struct {
	Records []directory.EmployeeRecord
	Failed  bool
	Status  directory.LoadStatus
}

func (s *Server) loadDirectory(r *http.Request) directoryView {
	if r.URL.Query().Get("refresh") == "1" {
		s.users.Invalidate()
	}
	users, err := s.users.Get(r.Context())
	view := directoryView{
		Records: s.enricher.EnrichAll(users),
		Status:  s.users.Status(),
	}
	if err != nil {
		view.Failed = true
		s.logger.Warn("load employees failed",
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
		)
	}
	return view
}

func (s *Server) basePage(r *http.Request, title, active string, dir directoryView) pageData {
	data := pageData{
		Title:  title,
		Active: active,
		Status: dir.Status.String(),
	}
	if sess, ok := sessionFrom(r.Context()); ok {
		data.Username = sess.Username
		data.CSRF = sess.CSRFToken
	}
	if dir.Failed {
		data.LoadError = loadFailedMsg
	}
	return data
}

func (s *Server) listPage(w http.ResponseWriter, r *http.Request) {
	dir := s.loadDirectory(r)
	query := r.URL.Query().Get("q")
	filtered := directory.Filter(dir.Records, directory.Query{Name: query})

	data := s.basePage(r, "Employee Directory", "list", dir)
	data.Query = query
	data.Employees = filtered
	data.TotalCount = len(dir.Records)
	data.ShownCount = len(filtered)
	s.render(w, r, s.listTmpl, data)
}

func (s *Server) detailsPage(w http.ResponseWriter, r *http.Request) {
	dir := s.loadDirectory(r)
	query := r.URL.Query().Get("q")
	filtered := directory.Filter(dir.Records, directory.Query{Name: query})

	data := s.basePage(r, "Employee Search & Details", "details", dir)
	data.Query = query
	data.Employees = filtered
	data.TotalCount = len(dir.Records)
	data.ShownCount = len(filtered)
	if selected, ok := selectEmployee(dir.Records, mux.Vars(r)["id"]); ok {
		data.Selected = &selected
	}
	s.render(w, r, s.detailTmpl, data)
}

// selectEmployee picks the record named by rawID, falling back to the first
// record when the id is missing or unknown.
func selectEmployee(records []directory.EmployeeRecord, rawID string) (directory.EmployeeRecord, bool) {
	if id, err := strconv.Atoi(rawID); err == nil {
		if record, ok := directory.FindByID(records, id); ok {
			return record, true
		}
	}
	if len(records) == 0 {
		return directory.EmployeeRecord{}, false
	}
	return records[0], true
}

func (s *Server) graphPage(w http.ResponseWriter, r *http.Request) {
	dir := s.loadDirectory(r)
	data := s.basePage(r, "Salary Analysis Dashboard", "graph", dir)

	stats, err := directory.Summarize(dir.Records)
	if errors.Is(err, directory.ErrNoRecords) {
		data.NoData = true
		s.render(w, r, s.graphTmpl, data)
		return
	}
	data.Stats = &stats
	data.Bars = salaryBars(dir.Records)
	data.Axis = salaryAxis()
	s.render(w, r, s.graphTmpl, data)
}

// Chart geometry: a 300px plot area above a baseline at y=370, one lakh
// per 50px.
const (
	chartBaseline  = 370
	chartMaxHeight = 300
	pxPerLakh      = 50
)

func salaryBars(records []directory.EmployeeRecord) []barView {
	top := records[:min(chartBars, len(records))]
	bars := make([]barView, len(top))
	for i, record := range top {
		height := min(float64(record.Salary)/100000*pxPerLakh, chartMaxHeight)
		bars[i] = barView{
			X:      90 + i*65,
			Y:      chartBaseline - height,
			Height: height,
			LabelX: 115 + i*65,
			Amount: lakhs(record.Salary),
			Name:   record.FirstName(),
		}
	}
	return bars
}

func salaryAxis() []axisView {
	steps := []int{6, 4, 2, 0}
	axis := make([]axisView, len(steps))
	for i, v := range steps {
		y := chartBaseline - v*pxPerLakh
		axis[i] = axisView{Y: y, LabelY: y + 5, Label: strconv.Itoa(v) + "L"}
	}
	return axis
}

func (s *Server) mapPage(w http.ResponseWriter, r *http.Request) {
	dir := s.loadDirectory(r)
	data := s.basePage(r, "Employee Locations", "map", dir)
	data.TotalCount = len(dir.Records)

	groups := directory.GroupByCity(dir.Records, directory.Cities)
	data.Cities = make([]cityView, len(groups))
	for i, group := range groups {
		data.Cities[i] = s.cityCard(group, len(dir.Records))
	}
	if best, ok := directory.MostPopulated(groups); ok {
		view := s.cityCard(best, len(dir.Records))
		data.MostPopulated = &view
	}
	if richest, ok := directory.HighestAverageSalary(groups); ok {
		view := s.cityCard(richest, len(dir.Records))
		data.RichestCity = &view
	}
	data.NoData = len(groups) == 0
	s.render(w, r, s.mapTmpl, data)
}

func (s *Server) cityCard(group directory.CityGroup, total int) cityView {
	view := cityView{
		Name:     group.Name,
		Lat:      group.Lat,
		Lng:      group.Lng,
		Count:    group.Count,
		AvgK:     thousands(group.AverageSalary),
		BarWidth: "0",
	}
	if total > 0 {
		view.BarWidth = strconv.FormatFloat(float64(group.Count)/float64(total)*100, 'f', 2, 64)
	}
	shown := group.Employees[:min(popupLimit, len(group.Employees))]
	view.Employees = make([]cityMemberView, len(shown))
	for i, record := range shown {
		view.Employees[i] = cityMemberView{Name: record.Name, Salary: s.numbers.Rupees(record.Salary)}
	}
	view.More = max(group.Count-popupLimit, 0)
	return view
}

func (s *Server) photoPage(w http.ResponseWriter, r *http.Request) {
	dir := s.loadDirectory(r)
	q := r.URL.Query()

	state := directory.GalleryState{
		Query:      q.Get("pq"),
		Department: q.Get("pd"),
		Page:       parsePositiveInt(q.Get("page"), 1),
	}
	if state.Department == "" {
		state.Department = directory.AllDepartments
	}
	state.SetQuery(q.Get("q"))
	state.SetDepartment(q.Get("dept"))

	filtered := directory.Filter(dir.Records, state.Filter())
	pageItems := directory.Paginate(filtered, state.Page, directory.GalleryPageSize)
	totalPages := directory.TotalPages(len(filtered), directory.GalleryPageSize)

	data := s.basePage(r, "Employee Photo Gallery", "photo", dir)
	data.Query = state.Query
	data.Department = state.Department
	data.Departments = directory.Departments
	data.Employees = pageItems
	data.ShownCount = len(pageItems)
	data.TotalCount = len(filtered)
	data.Gallery = buildGallery(state, totalPages)
	s.render(w, r, s.galleryTmpl, data)
}

func buildGallery(state directory.GalleryState, totalPages int) *galleryView {
	href := func(page int) string {
		v := url.Values{}
		if state.Query != "" {
			v.Set("q", state.Query)
			v.Set("pq", state.Query)
		}
		if state.Department != directory.AllDepartments {
			v.Set("dept", state.Department)
			v.Set("pd", state.Department)
		}
		v.Set("page", strconv.Itoa(page))
		return "/photo?" + v.Encode()
	}

	g := &galleryView{
		Page:       state.Page,
		TotalPages: totalPages,
		FromQuery:  state.Query,
		FromDept:   state.Department,
		HasPrev:    state.Page > 1,
		HasNext:    state.Page < totalPages,
	}
	if totalPages <= 1 {
		return g
	}
	for _, n := range directory.PageWindow(state.Page, totalPages) {
		g.Links = append(g.Links, pageLink{Number: n, Href: href(n), Active: n == state.Page})
	}
	g.FirstHref = href(1)
	g.PrevHref = href(max(state.Page-1, 1))
	g.NextHref = href(min(state.Page+1, totalPages))
	g.LastHref = href(totalPages)
	return g
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data pageData) {
	s.renderStatus(w, r, http.StatusOK, tmpl, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, data pageData) {
	if err := renderHTMLTemplate(w, status, tmpl, data); err != nil {
		s.logger.Error("template render failed",
			zap.String("template", tmpl.Name()),
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
			zap.Error(err),
		)
		http.Error(w, "template render failed", http.StatusInternalServerError)
	}
}

func renderHTMLTemplate(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func photoURL(id, size int) string {
	return fmt.Sprintf("/photos/%d?size=%d", id, size)
}
