package pms

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/plexgrid/plexgrid/resolver"
)

// fakePMS is a minimal photo server: two sections, one folder level, a rate
// endpoint that records what it got and a downloadable original.
type fakePMS struct {
	srv *httptest.Server

	rateQuery map[string]string
	rateMeth  string

	sectionHits int
}

func newFakePMS(t *testing.T) *fakePMS {
	t.Helper()
	f := &fakePMS{}

	r := mux.NewRouter()
	r.HandleFunc("/identity", func(w http.ResponseWriter, req *http.Request) {
		writeContainer(w, MediaContainer{MachineIdentifier: "machine-test", Version: "1.40.0"})
	})
	r.HandleFunc("/library/sections", func(w http.ResponseWriter, req *http.Request) {
		writeContainer(w, MediaContainer{
			Size: 3,
			Directory: []Directory{
				{Key: "1", Title: "Movies", Type: "movie"},
				{Key: "5", Title: "Family Photos", Type: "photo"},
				{Key: "7", Title: "Hidden Photos", Type: "photo", Hidden: 1},
			},
		})
	})
	r.HandleFunc("/library/sections/5/all", func(w http.ResponseWriter, req *http.Request) {
		f.sectionHits++
		writeContainer(w, MediaContainer{
			Size: 2,
			Metadata: []Metadata{
				{RatingKey: "101", Key: "/library/metadata/101", Type: "photo", Title: "beach", Media: []Media{
					{ID: 1, Part: []Part{{ID: 11, Key: "/library/parts/11/file.jpg", Size: 5}}},
				}},
				{RatingKey: "102", Key: "/library/metadata/102", Type: "photo", Title: "sunset"},
			},
		})
	})
	r.HandleFunc("/library/sections/5/folder", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("parent") == "42" {
			writeContainer(w, MediaContainer{
				Size:     1,
				Metadata: []Metadata{{RatingKey: "201", Type: "photo", Title: "inside folder"}},
			})
			return
		}
		writeContainer(w, MediaContainer{
			Size:      1,
			Directory: []Directory{{Key: "/library/sections/5/folder?parent=42", Title: "2024"}},
		})
	})
	r.HandleFunc("/:/rate", func(w http.ResponseWriter, req *http.Request) {
		f.rateMeth = req.Method
		f.rateQuery = map[string]string{}
		for k := range req.URL.Query() {
			f.rateQuery[k] = req.URL.Query().Get(k)
		}
		w.WriteHeader(http.StatusOK)
	})
	r.HandleFunc("/library/parts/11/file.jpg", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("jpeg!"))
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func writeContainer(w http.ResponseWriter, c MediaContainer) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mediaContainerResponse{MediaContainer: c})
}

func newTestClient(t *testing.T, f *fakePMS, opts ...ClientOptional) *Client {
	t.Helper()
	res, err := resolver.New(resolver.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	d := resolver.Descriptor{
		Name:        "test server",
		MachineID:   "machine-test",
		AccessToken: "tok",
		Endpoints:   []resolver.Endpoint{{URI: f.srv.URL, Local: true}},
	}
	opts = append(opts, WithClientLogger(zaptest.NewLogger(t)))
	return NewClient(res, d, opts...)
}

func TestPhotoLibrariesFiltersSections(t *testing.T) {
	f := newFakePMS(t)
	c := newTestClient(t, f)

	sections, err := c.PhotoLibraries(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 1, "movie and hidden sections must be dropped")
	assert.Equal(t, "Family Photos", sections[0].Title)
	assert.Equal(t, "5", sections[0].Key)
}

func TestSectionAll(t *testing.T) {
	f := newFakePMS(t)
	c := newTestClient(t, f)

	container, err := c.SectionAll(context.Background(), "5", 0, 50)
	require.NoError(t, err)
	require.Len(t, container.Metadata, 2)
	assert.Equal(t, "beach", container.Metadata[0].Title)

	part, ok := container.Metadata[0].OriginalPart()
	require.True(t, ok)
	assert.Equal(t, "/library/parts/11/file.jpg", part.Key)

	_, ok = container.Metadata[1].OriginalPart()
	assert.False(t, ok)
}

func TestBrowseFollowsFolderKeyWithQuery(t *testing.T) {
	f := newFakePMS(t)
	c := newTestClient(t, f)

	top, err := c.Folders(context.Background(), "5")
	require.NoError(t, err)
	require.Len(t, top.Directory, 1)

	// the folder key carries its own query string
	inner, err := c.Browse(context.Background(), top.Directory[0].Key)
	require.NoError(t, err)
	require.Len(t, inner.Metadata, 1)
	assert.Equal(t, "inside folder", inner.Metadata[0].Title)
}

func TestRate(t *testing.T) {
	f := newFakePMS(t)
	c := newTestClient(t, f)

	err := c.Rate(context.Background(), "101", 8)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, f.rateMeth)
	assert.Equal(t, "101", f.rateQuery["key"])
	assert.Equal(t, "8", f.rateQuery["rating"])
	assert.Equal(t, "com.plexapp.plugins.library", f.rateQuery["identifier"])
	assert.Equal(t, "tok", f.rateQuery["X-Plex-Token"])
}

func TestDownload(t *testing.T) {
	f := newFakePMS(t)
	c := newTestClient(t, f)

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "/library/parts/11/file.jpg", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "jpeg!", buf.String())
}

func TestListingCache(t *testing.T) {
	f := newFakePMS(t)
	c := newTestClient(t, f, WithListingCache(time.Minute))

	first, err := c.SectionAll(context.Background(), "5", 0, 50)
	require.NoError(t, err)
	second, err := c.SectionAll(context.Background(), "5", 0, 50)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.sectionHits, "second listing must come from the cache")

	// different pagination is a different listing
	_, err = c.SectionAll(context.Background(), "5", 50, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, f.sectionHits)

	// rating invalidates cached listings
	require.NoError(t, c.Rate(context.Background(), "101", 8))
	_, err = c.SectionAll(context.Background(), "5", 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, f.sectionHits)

	stats := c.cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(3), stats.Sets)
}

func TestPingUsesCachedEndpointOnly(t *testing.T) {
	f := newFakePMS(t)
	c := newTestClient(t, f)

	// nothing cached yet: the background ping must not scan
	err := c.Ping(context.Background())
	require.Error(t, err)

	// a foreground call resolves the endpoint, then the ping rides the cache
	_, err = c.Identity(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
}
