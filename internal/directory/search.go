package directory

import "strings"

// Query is the name search plus optional department filter applied to a
// directory listing.
type Query struct {
	Name       string
	Department string
}

func (q Query) hasName() bool {
	return strings.TrimSpace(q.Name) != ""
}

func (q Query) hasDepartment() bool {
	dept := strings.TrimSpace(q.Department)
	return dept != "" && dept != AllDepartments
}

// IsEmpty reports whether the query matches every record.
func (q Query) IsEmpty() bool {
	return !q.hasName() && !q.hasDepartment()
}

// Filter returns the records whose name contains q.Name (case-insensitive)
// and whose department equals q.Department, keeping their original order.
// An empty query returns records itself.
func Filter(records []EmployeeRecord, q Query) []EmployeeRecord {
	if q.IsEmpty() {
		return records
	}
	needle := strings.ToLower(q.Name)
	dept := strings.TrimSpace(q.Department)
	matchName := q.hasName()
	matchDept := q.hasDepartment()

	out := make([]EmployeeRecord, 0, len(records))
	for _, record := range records {
		if matchName && !strings.Contains(strings.ToLower(record.Name), needle) {
			continue
		}
		if matchDept && record.Department != dept {
			continue
		}
		out = append(out, record)
	}
	return out
}
