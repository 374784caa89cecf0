package portal

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultNumberLocale = "en-IN"

// numberFormatter renders rupee amounts with locale digit grouping.
type numberFormatter struct {
	printer *message.Printer
}

func newNumberFormatter(locale string) (*numberFormatter, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = defaultNumberLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid number locale %q: %w", locale, err)
	}
	return &numberFormatter{printer: message.NewPrinter(tag)}, nil
}

func (f *numberFormatter) Grouped(n int) string {
	return f.printer.Sprintf("%d", n)
}

func (f *numberFormatter) Rupees(n int) string {
	return "₹" + f.Grouped(n)
}

func (f *numberFormatter) RupeesFloat(v float64) string {
	if v == math.Trunc(v) {
		return f.Rupees(int(v))
	}
	return "₹" + f.printer.Sprintf("%.1f", v)
}

// lakhs converts an amount to lakhs (1 lakh = 100,000) with at most two
// decimals: 1234567 -> "12.35".
func lakhs(amount int) string {
	v := math.Round(float64(amount)/1000) / 100
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// thousands rounds an amount to whole thousands.
func thousands(amount float64) int {
	return int(math.Round(amount / 1000))
}

func empCode(id int) string {
	return fmt.Sprintf("EMP-%03d", id)
}

func (f *numberFormatter) funcMap() template.FuncMap {
	return template.FuncMap{
		"rupees":      f.Rupees,
		"rupeesFloat": f.RupeesFloat,
		"grouped":     f.Grouped,
		"lakhs":       lakhs,
		"thousands":   thousands,
		"empCode":     empCode,
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
	}
}
