package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersPayload = `{"users":[
 {"id":1,"firstName":"Emily","lastName":"Johnson","age":28,"email":"emily@x.com","phone":"+1","image":"https://img/1.png",
  "address":{"address":"626 Main Street","city":"Phoenix"},"company":{"name":"Dooley"}},
 {"id":2,"firstName":"Michael","lastName":"Williams","age":0,"email":"m@x.com","phone":"+2","image":"https://img/2.png",
  "address":{"address":"385 Fifth Street","city":"Houston"}}
],"total":2,"skip":0,"limit":30}`

func TestHTTPFetcherDecodesUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.URL.RawQuery, "no pagination parameters are sent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(usersPayload))
	}))
	defer srv.Close()

	users, err := NewHTTPFetcher(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Emily", users[0].FirstName)
	assert.Equal(t, "Phoenix", users[0].Address.City)
	require.NotNil(t, users[0].Company)
	assert.Equal(t, "Dooley", users[0].Company.Name)
	assert.Nil(t, users[1].Company)
	assert.Equal(t, 0, users[1].Age)
}

func TestHTTPFetcherFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		op      string
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { http.Error(w, "nope", http.StatusInternalServerError) },
			op:      "status",
		},
		{
			name:    "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			op:      "status",
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("{not json")) },
			op:      "decode",
		},
		{
			name:    "missing users",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"total":0}`)) },
			op:      "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			users, err := NewHTTPFetcher(srv.URL, time.Second).Fetch(context.Background())
			assert.Nil(t, users)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrLoadFailure))

			var failure *LoadFailure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, tt.op, failure.Op)
		})
	}
}

func TestHTTPFetcherTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(url, time.Second).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailure)
	assert.Contains(t, err.Error(), "transport")
}

func TestNewSelectsFetcher(t *testing.T) {
	f, err := New("", "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, f.(*HTTPFetcher).Endpoint)

	f, err = New("snapshot", "users.json.xz", 0)
	require.NoError(t, err)
	assert.IsType(t, &SnapshotFetcher{}, f)

	f, err = New("Spreadsheet", "roster.xlsx", 0)
	require.NoError(t, err)
	assert.IsType(t, &SpreadsheetFetcher{}, f)

	_, err = New("snapshot", "", 0)
	assert.Error(t, err)
	_, err = New("ftp", "x", 0)
	assert.Error(t, err)
}
