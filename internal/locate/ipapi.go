package locate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/sling"

	"github.com/agenda-lojas/agenda/internal/geo"
)

// DefaultIPAPIURL is the ipapi.co service
const DefaultIPAPIURL = "https://ipapi.co"

const ipapiTimeout = 10 * time.Second

// IPAPIClient looks up an approximate position with ipapi.co.
// Without an address it locates the caller of the service.
type IPAPIClient struct {
	sling *sling.Sling
	ip    string
}

// NewIPAPIClient creates a client for baseURL; an empty baseURL selects ipapi.co
func NewIPAPIClient(baseURL string) *IPAPIClient {
	if baseURL == "" {
		baseURL = DefaultIPAPIURL
	}
	client := &http.Client{Timeout: ipapiTimeout}
	return &IPAPIClient{
		sling: sling.New().Client(client).Base(strings.TrimRight(baseURL, "/") + "/").Set("Accept", "application/json"),
	}
}

// ForIP returns a client that locates ip instead of the caller
func (c *IPAPIClient) ForIP(ip string) *IPAPIClient {
	return &IPAPIClient{sling: c.sling.New(), ip: strings.TrimSpace(ip)}
}

// ipapiResponse holds the fields we use. ipapi.co reports failures in the body with
// "error": true and a reason.
type ipapiResponse struct {
	Latitude  flexFloat `json:"latitude"`
	Longitude flexFloat `json:"longitude"`
	Error     bool      `json:"error"`
	Reason    string    `json:"reason"`
}

// LocateIP queries the service. Zero or missing coordinates count as a failed lookup.
func (c *IPAPIClient) LocateIP(ctx context.Context) (geo.Point, error) {
	path := "json/"
	if c.ip != "" {
		// "./" keeps IPv6 colons from parsing as a scheme
		path = "./" + url.PathEscape(c.ip) + "/json/"
	}

	req, err := c.sling.New().Get(path).Request()
	if err != nil {
		return geo.Point{}, fmt.Errorf("creating request: %w", err)
	}

	var body ipapiResponse
	resp, err := c.sling.Do(req.WithContext(ctx), &body, nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("ip lookup: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return geo.Point{}, fmt.Errorf("ip lookup: unexpected status code: %d", resp.StatusCode)
	}
	if body.Error {
		return geo.Point{}, fmt.Errorf("ip lookup: %s", body.Reason)
	}
	if body.Latitude == 0 || body.Longitude == 0 {
		return geo.Point{}, fmt.Errorf("ip lookup: response has no coordinates")
	}

	return geo.NewPoint(float64(body.Latitude), float64(body.Longitude))
}

// flexFloat decodes a JSON number or numeric string; anything else decodes as 0
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = flexFloat(v)
			return nil
		}
	}
	*f = 0
	return nil
}
