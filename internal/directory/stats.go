package directory

import (
	"errors"
	"math"
	"slices"
)

var ErrNoRecords = errors.New("no employee records")

// AggregateStats summarises salaries and ages over a set of records.
type AggregateStats struct {
	TotalEmployees int     `json:"totalEmployees"`
	HighestSalary  int     `json:"highestSalary"`
	LowestSalary   int     `json:"lowestSalary"`
	AverageSalary  int     `json:"averageSalary"`
	MedianSalary   float64 `json:"medianSalary"`
	SalaryRange    int     `json:"salaryRange"`
	TopEarner      string  `json:"topEarner"`
	AverageAge     int     `json:"averageAge"`
}

// Summarize computes AggregateStats. The average salary is rounded to the
// nearest 10,000 and the top earner is the first record holding the
// highest salary.
func Summarize(records []EmployeeRecord) (AggregateStats, error) {
	if len(records) == 0 {
		return AggregateStats{}, ErrNoRecords
	}

	salaries := make([]int, len(records))
	highest, lowest := records[0].Salary, records[0].Salary
	topEarner := records[0].Name
	salaryTotal, ageTotal := 0, 0
	for i, record := range records {
		salaries[i] = record.Salary
		salaryTotal += record.Salary
		ageTotal += record.Age
		if record.Salary > highest {
			highest = record.Salary
			topEarner = record.Name
		}
		if record.Salary < lowest {
			lowest = record.Salary
		}
	}

	count := float64(len(records))
	return AggregateStats{
		TotalEmployees: len(records),
		HighestSalary:  highest,
		LowestSalary:   lowest,
		AverageSalary:  int(roundHalfUp(float64(salaryTotal)/count/10000)) * 10000,
		MedianSalary:   Median(salaries),
		SalaryRange:    highest - lowest,
		TopEarner:      topEarner,
		AverageAge:     int(roundHalfUp(float64(ageTotal) / count)),
	}, nil
}

// Median sorts a copy of values numerically; an even count averages the two
// central values. It returns 0 for an empty slice.
func Median(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return float64(sorted[mid])
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
