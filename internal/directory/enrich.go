package directory

import (
	"math"
	"strings"
)

const (
	minSalary    = 300000
	salarySpread = 1500000
	minAge       = 22
	ageSpread    = 40
)

type Enricher struct {
	synth       Synthesizer
	departments []string
	cities      []City
}

func NewEnricher(synth Synthesizer) *Enricher {
	if synth == nil {
		synth = StableSynthesizer{}
	}
	return &Enricher{
		synth:       synth,
		departments: Departments,
		cities:      Cities,
	}
}

// Enrich builds the employee record for one raw user. Draws are taken in a
// fixed order (salary, age, department, city) whether or not the age draw
// is used.
func (e *Enricher) Enrich(user RawUser) EmployeeRecord {
	stream := e.synth.Stream(user.ID)
	salary := salaryFromDraw(stream.Float64())
	fallbackAge := ageFromDraw(stream.Float64())
	department := pick(e.departments, stream.Float64())
	city := pick(e.cities, stream.Float64())

	age := user.Age
	if age <= 0 {
		age = fallbackAge
	}

	company := defaultCompany
	if user.Company != nil && strings.TrimSpace(user.Company.Name) != "" {
		company = user.Company.Name
	}

	return EmployeeRecord{
		ID:         user.ID,
		Name:       user.FirstName + " " + user.LastName,
		Email:      user.Email,
		Phone:      user.Phone,
		Salary:     salary,
		Age:        age,
		Department: department,
		City:       city,
		Image:      user.Image,
		Address:    user.Address.Address + ", " + user.Address.City,
		Company:    company,
	}
}

func (e *Enricher) EnrichAll(users []RawUser) []EmployeeRecord {
	records := make([]EmployeeRecord, 0, len(users))
	for _, user := range users {
		records = append(records, e.Enrich(user))
	}
	return records
}

func salaryFromDraw(u float64) int {
	return int(math.Floor(u*salarySpread + minSalary))
}

func ageFromDraw(u float64) int {
	return int(math.Floor(u*ageSpread + minAge))
}

func pick[T any](values []T, u float64) T {
	idx := int(math.Floor(u * float64(len(values))))
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}
