package directory

// CityGroup is the set of employees assigned to one simulated city.
type CityGroup struct {
	City
	Count         int
	Employees     []EmployeeRecord
	AverageSalary float64
}

// GroupByCity buckets records by city in the order of cities. Cities with
// no employees are left out.
func GroupByCity(records []EmployeeRecord, cities []City) []CityGroup {
	groups := make([]CityGroup, 0, len(cities))
	for _, city := range cities {
		group := CityGroup{City: city}
		total := 0
		for _, record := range records {
			if record.City.Name != city.Name {
				continue
			}
			group.Employees = append(group.Employees, record)
			total += record.Salary
		}
		group.Count = len(group.Employees)
		if group.Count == 0 {
			continue
		}
		group.AverageSalary = float64(total) / float64(group.Count)
		groups = append(groups, group)
	}
	return groups
}

// MostPopulated returns the first city with the highest head count.
func MostPopulated(groups []CityGroup) (CityGroup, bool) {
	if len(groups) == 0 {
		return CityGroup{}, false
	}
	best := groups[0]
	for _, group := range groups[1:] {
		if group.Count > best.Count {
			best = group
		}
	}
	return best, true
}

// HighestAverageSalary returns the first city whose average salary beats
// every earlier one, starting from an average of zero.
func HighestAverageSalary(groups []CityGroup) (CityGroup, bool) {
	var best CityGroup
	found := false
	for _, group := range groups {
		if group.AverageSalary > best.AverageSalary {
			best = group
			found = true
		}
	}
	return best, found
}
