package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
)

// UserClient interroge auth-service pour les profils publics.
// Pas de breaker ici : les appels sont déjà best effort côté services.
type UserClient struct {
	baseURL string
	http    *http.Client
}

func NewUserClient(baseURL string) *UserClient {
	return &UserClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type wireUser struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type usersBatchResponse struct {
	Users map[string]wireUser `json:"users"`
}

func (c *UserClient) GetUsers(ctx context.Context, userIDs []int64) (map[int64]domain.UserSummary, error) {
	if len(userIDs) == 0 {
		return map[int64]domain.UserSummary{}, nil
	}

	parts := make([]string, len(userIDs))
	for i, id := range userIDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	url := fmt.Sprintf("%s/api/users/batch?ids=%s", c.baseURL, strings.Join(parts, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth service call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth service returned %d", resp.StatusCode)
	}

	var body usersBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode users response: %w", err)
	}

	out := make(map[int64]domain.UserSummary, len(body.Users))
	for _, wu := range body.Users {
		out[wu.ID] = domain.UserSummary{
			ID:          wu.ID,
			Username:    wu.Username,
			DisplayName: wu.DisplayName,
			AvatarURL:   wu.AvatarURL,
		}
	}
	return out, nil
}
