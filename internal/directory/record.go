// Package directory turns raw user records into employee records and
// derives the summaries, filters and pages the portal views render.
package directory

import "strings"

const defaultCompany = "Tech Corp"

// AllDepartments is the department filter value that matches every record.
const AllDepartments = "all"

type Address struct {
	Address string `json:"address"`
	City    string `json:"city"`
}

type Company struct {
	Name string `json:"name"`
}

// RawUser is a user as returned by the upstream users endpoint.
type RawUser struct {
	ID        int      `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Age       int      `json:"age"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Image     string   `json:"image"`
	Address   Address  `json:"address"`
	Company   *Company `json:"company,omitempty"`
}

// City is a simulated office location.
type City struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// EmployeeRecord is a RawUser enriched with synthesized attributes.
type EmployeeRecord struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Salary     int    `json:"salary"`
	Age        int    `json:"age"`
	Department string `json:"department"`
	City       City   `json:"city"`
	Image      string `json:"image"`
	Address    string `json:"address"`
	Company    string `json:"company"`
}

// FirstName returns the first word of the display name.
func (e EmployeeRecord) FirstName() string {
	name, _, _ := strings.Cut(e.Name, " ")
	return name
}

// Departments is the ordered set departments are drawn from.
var Departments = []string{"HR", "Engineering", "Sales", "Marketing", "Finance", "Design"}

// Cities is the ordered set of simulated office cities.
var Cities = []City{
	{Name: "Faridabad", Lat: 28.4089, Lng: 77.3178},
	{Name: "Delhi", Lat: 28.6139, Lng: 77.2090},
	{Name: "Noida", Lat: 28.5355, Lng: 77.3910},
	{Name: "Gurgaon", Lat: 28.4595, Lng: 77.0266},
	{Name: "Mumbai", Lat: 19.0760, Lng: 72.8777},
	{Name: "Bangalore", Lat: 12.9716, Lng: 77.5946},
	{Name: "Pune", Lat: 18.5204, Lng: 73.8567},
	{Name: "Hyderabad", Lat: 17.3850, Lng: 78.4867},
	{Name: "Chennai", Lat: 13.0827, Lng: 80.2707},
	{Name: "Kolkata", Lat: 22.5726, Lng: 88.3639},
}

// FindByID returns the record with the given id.
func FindByID(records []EmployeeRecord, id int) (EmployeeRecord, bool) {
	for _, record := range records {
		if record.ID == id {
			return record, true
		}
	}
	return EmployeeRecord{}, false
}
