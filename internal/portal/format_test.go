package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip-england/empportal/internal/directory"
)

func TestNumberFormatter(t *testing.T) {
	f, err := newNumberFormatter("en-US")
	require.NoError(t, err)
	assert.Equal(t, "₹1,234,567", f.Rupees(1234567))
	assert.Equal(t, "₹950", f.Rupees(950))
	assert.Equal(t, "₹955,000", f.RupeesFloat(955000))

	_, err = newNumberFormatter("not a locale!")
	assert.Error(t, err)
}

func TestLakhsAndThousands(t *testing.T) {
	assert.Equal(t, "12.35", lakhs(1234567))
	assert.Equal(t, "3", lakhs(300000))
	assert.Equal(t, "17.5", lakhs(1750000))
	assert.Equal(t, 1235, thousands(1234567))
	assert.Equal(t, 500, thousands(499600))
	assert.Equal(t, "EMP-007", empCode(7))
}

func TestSalaryBars(t *testing.T) {
	records := make([]directory.EmployeeRecord, 12)
	for i := range records {
		records[i] = directory.EmployeeRecord{Name: "Worker Bee", Salary: 300000 + i*100000}
	}
	bars := salaryBars(records)
	require.Len(t, bars, 10)

	assert.Equal(t, 90, bars[0].X)
	assert.Equal(t, 115, bars[0].LabelX)
	assert.InDelta(t, 150, bars[0].Height, 1e-9)
	assert.InDelta(t, 220, bars[0].Y, 1e-9)
	assert.Equal(t, "Worker", bars[0].Name)

	assert.Equal(t, 90+9*65, bars[9].X)
	assert.InDelta(t, 300, bars[9].Height, 1e-9, "heights are capped")
}

func TestSelectEmployee(t *testing.T) {
	records := []directory.EmployeeRecord{{ID: 4}, {ID: 9}}
	got, ok := selectEmployee(records, "9")
	assert.True(t, ok)
	assert.Equal(t, 9, got.ID)

	got, _ = selectEmployee(records, "abc")
	assert.Equal(t, 4, got.ID)

	_, ok = selectEmployee(nil, "1")
	assert.False(t, ok)
}

func TestBuildGallery(t *testing.T) {
	state := directory.GalleryState{Query: "an", Department: "HR", Page: 7}
	g := buildGallery(state, 8)
	numbers := make([]int, len(g.Links))
	for i, link := range g.Links {
		numbers[i] = link.Number
	}
	assert.Equal(t, []int{4, 5, 6, 7, 8}, numbers)
	assert.True(t, g.Links[3].Active)
	assert.Equal(t, "/photo?dept=HR&page=1&pd=HR&pq=an&q=an", g.FirstHref)
	assert.True(t, g.HasNext)

	single := buildGallery(directory.NewGalleryState(), 1)
	assert.Empty(t, single.Links)
	assert.False(t, single.HasNext)
}
