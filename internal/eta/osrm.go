package eta

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/example/transfer-booking/internal/models"
)

// OSRMClient performs route lookups against an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

// Estimate queries OSRM /route between points. OSRM reports meters and seconds.
func (o *OSRMClient) Estimate(ctx context.Context, from, to models.Coord) (Leg, error) {
	// /route/v1/driving/{lon1},{lat1};{lon2},{lat2}?overview=false
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=false", o.Endpoint, from.Lon, from.Lat, to.Lon, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Leg{}, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return Leg{}, err
	}
	defer resp.Body.Close()
	var out struct {
		Routes []struct {
			Duration float64 `json:"duration"`
			Distance float64 `json:"distance"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Leg{}, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return Leg{}, fmt.Errorf("osrm no route: %v", out.Code)
	}
	r := out.Routes[0]
	return Leg{DistanceKm: round1(r.Distance / 1000), Minutes: math.Ceil(r.Duration / 60)}, nil
}
