package media

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
)

func TestHostClientUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		name := r.Header.Get("X-File-Name")
		fmt.Fprintf(w, `{"secure_url":"https://cdn.test/%s.png"}`, name)
	}))
	defer srv.Close()

	c := NewHostClient(srv.URL, "key-1")
	url, err := c.Upload(context.Background(), "img-0", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/img-0.png", url)
}

func TestHostClientUploadFailureIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHostClient(srv.URL, "")
	_, err := c.Upload(context.Background(), "x", []byte{1})

	var ue *apperrs.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "media upload", ue.Op)
}

func TestUploadAllPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"secure_url":"https://cdn.test/%s"}`, r.Header.Get("X-File-Name"))
	}))
	defer srv.Close()

	c := NewHostClient(srv.URL, "")
	urls, err := UploadAll(context.Background(), c, []File{
		{Name: "a", Data: []byte{1}},
		{Name: "b", Data: []byte{2}},
		{Name: "c", Data: []byte{3}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.test/a", "https://cdn.test/b", "https://cdn.test/c"}, urls)
}

func TestUploadAllFailsAsAWhole(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"secure_url":"https://cdn.test/ok"}`)
	}))
	defer srv.Close()

	c := NewHostClient(srv.URL, "")
	urls, err := UploadAll(context.Background(), c, []File{
		{Name: "a", Data: []byte{1}},
		{Name: "b", Data: []byte{2}},
		{Name: "c", Data: []byte{3}},
	})
	require.Error(t, err)
	assert.Nil(t, urls, "no partial result on failure")
}
