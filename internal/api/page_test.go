package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	body, err := RequestPage(context.Background(), http.DefaultClient, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))
}

func TestRequestPage_Status(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusTooManyRequests} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer srv.Close()

			_, err := RequestPage(context.Background(), http.DefaultClient, srv.URL)
			require.Error(t, err)
			assert.Equal(t, code == http.StatusTooManyRequests, errors.Is(err, ErrTooManyRequests))
		})
	}
}

func TestRequestPage_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := RequestPage(context.Background(), http.DefaultClient, url)
	assert.Error(t, err)
}
