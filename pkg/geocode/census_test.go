package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchResponse(zip, fips string) string {
	return fmt.Sprintf(`{
		"result": {
			"addressMatches": [{
				"matchedAddress": "123 MAIN ST, ATLANTA, GA, %s",
				"addressComponents": {"zip": %q},
				"geographies": {
					"Counties": [{"GEOID": %q, "NAME": "Fulton County"}]
				}
			}]
		}
	}`, zip, zip, fips)
}

func TestLocate_Match(t *testing.T) {
	var gotPath, gotAddress string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAddress = r.URL.Query().Get("address")
		assert.Equal(t, "Public_AR_Current", r.URL.Query().Get("benchmark"))
		assert.Equal(t, "Current_Current", r.URL.Query().Get("vintage"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, matchResponse("30301", "13121"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	zip, fips, err := c.Locate(context.Background(), "123 Main St, Atlanta, GA")
	require.NoError(t, err)
	assert.Equal(t, "30301", zip)
	assert.Equal(t, "13121", fips)
	assert.Equal(t, "/geocoder/geographies/onelineaddress", gotPath)
	assert.Equal(t, "123 Main St, Atlanta, GA", gotAddress)
}

func TestLocate_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result": {"addressMatches": []}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	zip, fips, err := c.Locate(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Empty(t, zip)
	assert.Empty(t, fips)
}

func TestLocate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, _, err := c.Locate(context.Background(), "123 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestNew_DefaultBaseURL(t *testing.T) {
	c := New("", nil)
	assert.Equal(t, "https://geocoding.geo.census.gov", c.baseURL)
}
