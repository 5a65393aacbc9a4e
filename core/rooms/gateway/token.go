package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type tokenResponse struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

// fetchToken requests room-join credentials from the authorization
// endpoint. Any non-2xx response or missing token is fatal to the join.
func fetchToken(ctx context.Context, client *http.Client, baseURL, roomName, identity string) (string, error) {
	tokenURL, err := url.Parse(baseURL + "/getToken")
	if err != nil {
		return "", fmt.Errorf("invalid gateway base url: %w", err)
	}
	queryParams := tokenURL.Query()
	queryParams.Set("roomName", roomName)
	queryParams.Set("identity", identity)
	tokenURL.RawQuery = queryParams.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error requesting token: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading token response body: %w", err)
	}

	var body tokenResponse
	if err := json.Unmarshal(bodyBytes, &body); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("error unmarshalling token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if body.Error != "" {
			return "", fmt.Errorf("token request failed: %s", body.Error)
		}
		return "", fmt.Errorf("token request failed: non-OK HTTP status: %s", resp.Status)
	}

	if body.Token == "" {
		return "", fmt.Errorf("token request returned no token")
	}

	return body.Token, nil
}
