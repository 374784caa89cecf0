package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/phillip-england/empportal/internal/avatar"
	"github.com/phillip-england/empportal/internal/directory"
)

const (
	defaultImageSize = 50
	minImageSize     = 16
	maxImageSize     = 512
	maxPhotoBytes    = 5 << 20
	maxCachedPhotos  = 256
)

// photoProxy fetches remote employee photos and keeps their thumbnails.
type photoProxy struct {
	client *http.Client
	group  singleflight.Group

	mu    sync.Mutex
	cache map[string][]byte
}

func newPhotoProxy(client *http.Client) *photoProxy {
	return &photoProxy{client: client, cache: make(map[string][]byte)}
}

func (p *photoProxy) Thumbnail(ctx context.Context, rawURL string, size int) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("unsupported photo url %q", rawURL)
	}
	key := strconv.Itoa(size) + "|" + u.String()

	p.mu.Lock()
	if data, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return data, nil
	}
	p.mu.Unlock()

	result, err, _ := p.group.Do(key, func() (any, error) {
		raw, err := p.download(context.WithoutCancel(ctx), u.String())
		if err != nil {
			return nil, err
		}
		img, err := avatar.Thumbnail(raw, size)
		if err != nil {
			return nil, err
		}
		data, err := avatar.EncodePNG(img)
		if err != nil {
			return nil, err
		}
		p.store(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (p *photoProxy) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxPhotoBytes {
		return nil, errors.New("photo too large")
	}
	return raw, nil
}

func (p *photoProxy) store(key string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.cache) >= maxCachedPhotos {
		clear(p.cache)
	}
	p.cache[key] = data
}

func imageSize(r *http.Request) int {
	size := parsePositiveInt(r.URL.Query().Get("size"), defaultImageSize)
	return min(max(size, minImageSize), maxImageSize)
}

// employeeFor looks up the employee named by the {id} route variable in the
// cached batch without forcing a reload.
func (s *Server) employeeFor(r *http.Request) (directory.EmployeeRecord, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return directory.EmployeeRecord{}, false
	}
	users, _ := s.users.Get(r.Context())
	for _, user := range users {
		if user.ID == id {
			return s.enricher.Enrich(user), true
		}
	}
	return directory.EmployeeRecord{}, false
}

func (s *Server) avatarImage(w http.ResponseWriter, r *http.Request) {
	name := "?"
	if record, ok := s.employeeFor(r); ok {
		name = record.Name
	}
	s.writePlaceholder(w, r, name, imageSize(r))
}

// photoImage serves a square thumbnail of the employee photo, or the
// first-letter placeholder when the photo cannot be fetched or decoded.
func (s *Server) photoImage(w http.ResponseWriter, r *http.Request) {
	size := imageSize(r)
	record, ok := s.employeeFor(r)
	if !ok {
		s.writePlaceholder(w, r, "?", size)
		return
	}
	if strings.TrimSpace(record.Image) == "" {
		s.writePlaceholder(w, r, record.Name, size)
		return
	}

	data, err := s.photos.Thumbnail(r.Context(), record.Image, size)
	if err != nil {
		s.logger.Debug("photo fallback",
			zap.Int("employee_id", record.ID),
			zap.Error(err),
		)
		s.writePlaceholder(w, r, record.Name, size)
		return
	}
	writePNG(w, data)
}

func (s *Server) writePlaceholder(w http.ResponseWriter, r *http.Request, name string, size int) {
	data, err := avatar.PlaceholderPNG(name, size)
	if err != nil {
		s.logger.Error("placeholder render failed", zap.Error(err))
		http.Error(w, "image unavailable", http.StatusInternalServerError)
		return
	}
	writePNG(w, data)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
