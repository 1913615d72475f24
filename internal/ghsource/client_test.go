package ghsource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePRRef(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		owner  string
		repo   string
		number int
	}{
		{"short form", "golang/go#12345", "golang", "go", 12345},
		{"full URL", "https://github.com/golang/go/pull/12345", "golang", "go", 12345},
		{"URL without scheme", "github.com/some-org/repo.name/pull/7", "some-org", "repo.name", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, number, err := ParsePRRef(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
			assert.Equal(t, tt.number, number)
		})
	}
}

func TestParsePRRefInvalid(t *testing.T) {
	for _, ref := range []string{"", "not-a-ref", "owner/repo", "owner/repo#abc"} {
		_, _, _, err := ParsePRRef(ref)
		assert.Error(t, err, ref)
	}
}

func TestFetchPRTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"number": 7, "title": "Add retry logic"}`)
	}))
	defer srv.Close()

	c := NewClient("", 10)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.client.BaseURL = base

	title, err := c.FetchPRTitle(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)
	assert.Equal(t, "Add retry logic", title)
}

func TestNewClientWithoutToken(t *testing.T) {
	c := NewClient("", 10)
	require.NotNil(t, c)
	assert.NotNil(t, c.client)
	assert.NotNil(t, c.rateLimiter)
}
