package source

import (
	"fmt"
	"strings"
	"time"
)

const (
	KindHTTP        = "http"
	KindSpreadsheet = "spreadsheet"
	KindSnapshot    = "snapshot"
)

// New builds the fetcher for a configured source kind. location is the
// endpoint URL for http and a file path otherwise.
func New(kind, location string, timeout time.Duration) (Fetcher, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindHTTP:
		return NewHTTPFetcher(location, timeout), nil
	case KindSpreadsheet:
		if location == "" {
			return nil, fmt.Errorf("spreadsheet source requires a path")
		}
		return &SpreadsheetFetcher{Path: location}, nil
	case KindSnapshot:
		if location == "" {
			return nil, fmt.Errorf("snapshot source requires a path")
		}
		return &SnapshotFetcher{Path: location}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}
