package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>hello</body></html>")
	}))
	defer srv.Close()

	client := NewClient(time.Second, "seoaudit-test/1.0")
	res, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", res.ContentType)
	assert.Equal(t, "<html><body>hello</body></html>", res.Body)
}

func TestFetchSetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := NewClient(time.Second, "seoaudit-test/1.0")
	_, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "seoaudit-test/1.0", gotUA)
}

func TestFetchNotFoundIsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(time.Second, "")
	res, err := client.Fetch(context.Background(), srv.URL+"/missing")
	require.NoError(t, err, "4xx must be a recorded result, not an error")
	assert.Equal(t, 404, res.StatusCode)
}

func TestFetchServerErrorIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(time.Second, "")
	_, err := client.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 500, fetchErr.StatusCode)
}

func TestFetchNetworkErrorHasZeroStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(time.Second, "")
	_, err := client.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 0, fetchErr.StatusCode)
}

func TestFetchRedirectCap(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	client := NewClient(time.Second, "")
	res, err := client.Fetch(context.Background(), srv.URL+"/a")
	require.NoError(t, err, "hitting the redirect cap must return the last response, not an error")
	assert.Equal(t, http.StatusFound, res.StatusCode)
}
