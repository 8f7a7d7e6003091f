package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/miku/purekit/dataset"
	"github.com/miku/purekit/schema/pure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPureServer serves two pages of persons, the first one linking to the
// second.
func setupPureServer(t *testing.T, calls *int32) *httptest.Server {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		user, pass, ok := r.BasicAuth()
		if r.Header.Get("api-key") != "secret" || !ok || user != "u" || pass != "p" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/ws/api/persons":
			if r.URL.Query().Get("offset") == "2" {
				io.WriteString(w, `{"count": 3, "items": [{"uuid": "P3"}],
				  "navigationLinks": [{"ref": "prev", "href": "`+server.URL+`/ws/api/persons?offset=0"}]}`)
				return
			}
			assert.Equal(t, "true", r.URL.Query().Get("navigationLink"))
			assert.Equal(t, "2", r.URL.Query().Get("size"))
			assert.Equal(t, "en_GB", r.URL.Query().Get("locale"))
			io.WriteString(w, `{"count": 3, "items": [{"uuid": "P1"}, {"uuid": "P2"}],
			  "navigationLinks": [{"ref": "next", "href": "`+server.URL+`/ws/api/persons?offset=2"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return server
}

func testHarvester(server *httptest.Server) *PureHarvester {
	return &PureHarvester{
		Client:   server.Client(),
		Endpoint: server.URL + "/ws/api",
		APIKey:   "secret",
		Username: "u",
		Password: "p",
		Size:     2,
		Locale:   "en_GB",
	}
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://pure.example.org/ws/api/524", Endpoint("pure.example.org", "/ws/api/524/"))
}

func TestURL(t *testing.T) {
	h := &PureHarvester{Endpoint: "https://pure.example.org/ws/api/524/"}
	assert.Equal(t, "https://pure.example.org/ws/api/524/journals?navigationLink=true&offset=0&size=1000", h.URL("journals"))
}

func TestSplitName(t *testing.T) {
	var cases = []struct {
		filename string
		page     int
		want     string
	}{
		{"persons.json", 1, "persons-0001.json"},
		{"out/persons.json.gz", 12, "out/persons-0012.json.gz"},
		{"persons", 3, "persons-0003"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SplitName(c.filename, c.page))
	}
}

func TestHarvest(t *testing.T) {
	var calls int32
	server := setupPureServer(t, &calls)
	defer server.Close()
	h := testHarvester(server)

	var pages []int
	var items int
	err := h.Harvest(context.Background(), "persons", func(page int, body []byte, envelope *pure.Envelope) error {
		pages = append(pages, page)
		items += len(envelope.Items)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, pages)
	assert.Equal(t, 3, items)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHarvestHTTPError(t *testing.T) {
	var calls int32
	server := setupPureServer(t, &calls)
	defer server.Close()
	h := testHarvester(server)
	h.APIKey = "wrong"
	err := h.Harvest(context.Background(), "persons", func(int, []byte, *pure.Envelope) error { return nil })
	assert.ErrorContains(t, err, "HTTP 401")

	h = testHarvester(server)
	err = h.Harvest(context.Background(), "unknown", func(int, []byte, *pure.Envelope) error { return nil })
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestWriteFile(t *testing.T) {
	for _, name := range []string{"persons.json", "persons.json.zst"} {
		t.Run(name, func(t *testing.T) {
			var calls int32
			server := setupPureServer(t, &calls)
			defer server.Close()
			h := testHarvester(server)

			filename := filepath.Join(t.TempDir(), name)
			n, err := h.WriteFile(context.Background(), "persons", filename, true)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			persons, err := dataset.Load[pure.Person](filename)
			require.NoError(t, err)
			var uuids []string
			for _, p := range persons {
				uuids = append(uuids, p.UUID)
			}
			assert.Equal(t, []string{"P1", "P2", "P3"}, uuids)

			for page := 1; page <= 2; page++ {
				_, err := os.Stat(SplitName(filename, page))
				assert.NoError(t, err, fmt.Sprintf("page %d", page))
			}
		})
	}
}

func TestWriteFileAborts(t *testing.T) {
	var calls int32
	server := setupPureServer(t, &calls)
	defer server.Close()
	h := testHarvester(server)
	filename := filepath.Join(t.TempDir(), "missing.json")
	_, err := h.WriteFile(context.Background(), "unknown", filename, false)
	require.Error(t, err)
	_, err = os.Stat(filename)
	assert.True(t, os.IsNotExist(err), "no partial file expected")
}
