package directory

// GalleryPageSize is the number of cards on one gallery page.
const GalleryPageSize = 12

const maxPageControls = 5

// Paginate returns the 1-based page of items. Pages past the end come back
// empty or partial instead of failing.
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 || size <= 0 {
		return items[:0]
	}
	start := (page - 1) * size
	if start >= len(items) {
		return items[len(items):]
	}
	end := min(start+size, len(items))
	return items[start:end]
}

func TotalPages(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// PageWindow lists the numbered page controls to render: pages 1..5 until
// the current page passes 3, then a window starting two pages back.
func PageWindow(current, total int) []int {
	n := min(maxPageControls, total)
	if n <= 0 {
		return nil
	}
	start := 1
	if current > 3 {
		start = max(current-2, 1)
	}
	if start+n-1 > total {
		start = total - n + 1
	}
	pages := make([]int, n)
	for i := range pages {
		pages[i] = start + i
	}
	return pages
}

// GalleryState is the search, filter and page selection of the gallery.
// Changing the query or the department returns the gallery to page 1.
type GalleryState struct {
	Query      string
	Department string
	Page       int
}

func NewGalleryState() GalleryState {
	return GalleryState{Department: AllDepartments, Page: 1}
}

func (s *GalleryState) SetQuery(q string) {
	if q == s.Query {
		return
	}
	s.Query = q
	s.Page = 1
}

func (s *GalleryState) SetDepartment(dept string) {
	if dept == "" {
		dept = AllDepartments
	}
	if dept == s.Department {
		return
	}
	s.Department = dept
	s.Page = 1
}

func (s *GalleryState) GoTo(page int) {
	s.Page = max(page, 1)
}

func (s GalleryState) Filter() Query {
	return Query{Name: s.Query, Department: s.Department}
}
