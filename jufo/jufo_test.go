package jufo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const channel = `[{"Jufo_ID": "51218", "Name": "Journal of Things", "Level": "2",
  "Level_2021": "1", "Jufo_history": "2012-2014: 1; 2015-2019: 2; 2020-: 3"}]`

func setupTestServer(calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		switch r.URL.Path {
		case "/kanava/51218":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, channel)
		case "/kanava/broken":
			io.WriteString(w, `[{"Jufo_ID": `)
		case "/kanava/fail":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestFetch(t *testing.T) {
	var calls int32
	server := setupTestServer(&calls)
	defer server.Close()
	c := &Client{Endpoint: server.URL + "/kanava/", Client: server.Client()}

	b, err := c.Fetch(context.Background(), "51218")
	require.NoError(t, err)
	assert.JSONEq(t, channel, string(b))

	_, err = c.Fetch(context.Background(), "0")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = c.Fetch(context.Background(), "broken")
	assert.True(t, errors.Is(err, ErrInvalidJSON), "got %v", err)

	_, err = c.Fetch(context.Background(), "fail")
	assert.Error(t, err)

	_, err = c.Fetch(context.Background(), " ")
	assert.Error(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestDatasetLevel(t *testing.T) {
	ds, err := Parse([]byte(channel))
	require.NoError(t, err)
	assert.Equal(t, "51218", ds.ID())

	var cases = []struct {
		year  int
		level string
		found bool
	}{
		{2011, "", false},
		{2012, "1", true},
		{2016, "2", true},
		{2021, "1", true}, // yearly field wins over history
		{2024, "3", true},
	}
	for _, c := range cases {
		level, found := ds.Level(c.year)
		assert.Equal(t, c.found, found, "year %d", c.year)
		assert.Equal(t, c.level, level, "year %d", c.year)
	}
}

func TestParseSingleObject(t *testing.T) {
	ds, err := Parse([]byte(`{"Jufo_ID": 7, "Level_2020": 2}`))
	require.NoError(t, err)
	assert.Equal(t, "7", ds.ID())
	level, ok := ds.Level(2020)
	assert.True(t, ok)
	assert.Equal(t, "2", level)

	_, err = Parse([]byte(`"x"`))
	assert.ErrorIs(t, err, ErrInvalidJSON)
	_, err = Parse([]byte(`{`))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestParseHistory(t *testing.T) {
	got := ParseHistory("2005-2011: 1; 2012 - 2014 : 2;2019: 0; 2020-: 3")
	want := []Period{
		{From: 2005, To: 2011, Level: "1"},
		{From: 2012, To: 2014, Level: "2"},
		{From: 2019, To: 2019, Level: "0"},
		{From: 2020, To: 0, Level: "3"},
	}
	assert.Equal(t, want, got)
	assert.Empty(t, ParseHistory(""))
}
