package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/transfer-booking/internal/client"
	"github.com/example/transfer-booking/internal/config"
)

const searchResponse = `{"route":{"id":"r1","origin":"airport","destination":"hotel","distance":16,"estimatedTime":40,"vehicles":["v1"]},
"vehicles":[{"id":"v1","name":"Sedan","type":"Sedan","capacity":4,"category":"Standard","basePrice":100}]}`

func run(t *testing.T, cfg config.ClientConfig, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp(cfg)
	app.Writer, app.ErrWriter = &out, &errOut
	err := app.Run(append([]string{"transferctl"}, args...))
	return out.String(), errOut.String(), err
}

func TestParsePicks(t *testing.T) {
	picks, err := parsePicks([]string{"v1", "v2=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"v1": 1, "v2": 3}, picks)

	_, err = parsePicks([]string{"v1=0"})
	assert.ErrorIs(t, err, client.ErrQuantity)
}

func TestCartWorkflow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponse))
	}))
	defer srv.Close()
	cfg := config.ClientConfig{APIBase: srv.URL, CartPath: filepath.Join(t.TempDir(), "cart.json")}

	out, _, err := run(t, cfg, "cart", "add", "--pickup", "airport", "--dropoff", "hotel", "--date", "2026-03-02",
		"--return-date", "2026-03-05", "--vehicle", "v1=2")
	require.NoError(t, err)
	assert.Contains(t, out, "(400.00)")
	id := strings.Fields(strings.TrimPrefix(out, "added service "))[0]

	out, _, err = run(t, cfg, "cart", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "total 400.00")

	_, _, err = run(t, cfg, "cart", "qty", id, "v1", "0")
	assert.ErrorIs(t, err, client.ErrQuantity)

	_, errOut, err := run(t, cfg, "cart", "remove-vehicle", id, "v1")
	assert.Error(t, err)
	assert.Contains(t, errOut, "! Error")

	_, _, err = run(t, cfg, "cart", "qty", id, "v1", "1")
	require.NoError(t, err)
	out, _, err = run(t, cfg, "cart", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "total 200.00")

	_, _, err = run(t, cfg, "cart", "clear")
	require.NoError(t, err)
	out, _, err = run(t, cfg, "cart", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "cart is empty")
}
