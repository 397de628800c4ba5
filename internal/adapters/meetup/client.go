package meetup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"meetuphere/internal/domain"
)

const openEventsPath = "/2/open_events"

// farAway is the distance assumed when the directory omits one, so the
// event can never pass the match threshold.
const farAway = 1000.0

// openEventsResponse is the Meetup open_events response shape. Results is a
// pointer so that a missing key is told apart from an empty list.
type openEventsResponse struct {
	Results *[]openEvent `json:"results"`
}

type openEvent struct {
	Distance *float64 `json:"distance"`
	Status   string   `json:"status"`
	Name     string   `json:"name"`
	EventURL string   `json:"event_url"`
	Group    struct {
		Name string `json:"name"`
	} `json:"group"`
}

type directoryClient struct {
	client *http.Client
	host   string
	apiKey string
}

// NewDirectoryClient returns an EventDirectory that queries the Meetup
// open events API at host (e.g. https://api.meetup.com).
func NewDirectoryClient(client *http.Client, host, apiKey string) domain.EventDirectory {
	if client == nil {
		client = http.DefaultClient
	}
	return &directoryClient{client: client, host: strings.TrimSuffix(host, "/"), apiKey: apiKey}
}

// Lookup returns events near (lat, lng) in the directory's own distance order.
func (c *directoryClient) Lookup(ctx context.Context, lat, lng float64) ([]domain.CandidateEvent, error) {
	q := url.Values{}
	q.Set("sign", "true")
	q.Set("key", c.apiKey)
	q.Set("order", "distance")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	endpoint := c.host + openEventsPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrDirectory, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch open events: %v", domain.ErrDirectory, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: meetup api returned status: %d", domain.ErrDirectory, resp.StatusCode)
	}

	var data openEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode open events response: %v", domain.ErrDirectory, err)
	}
	if data.Results == nil {
		return nil, fmt.Errorf("%w: response has no results", domain.ErrDirectory)
	}
	return normalize(*data.Results)
}

func normalize(raw []openEvent) ([]domain.CandidateEvent, error) {
	events := make([]domain.CandidateEvent, 0, len(raw))
	for i, r := range raw {
		distance := farAway
		if r.Distance != nil {
			distance = *r.Distance
		}
		if distance < 0 {
			return nil, fmt.Errorf("%w: result %d has negative distance %v", domain.ErrDirectory, i, distance)
		}
		events = append(events, domain.CandidateEvent{
			Name:      r.Name,
			URL:       r.EventURL,
			GroupName: r.Group.Name,
			Distance:  distance,
			Status:    domain.ParseEventStatus(r.Status),
		})
	}
	return events, nil
}
