package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wikilist/internal/model"
)

type ProfilesAPI struct {
	baseUrl string
	client  *http.Client
}

func NewProfilesAPI(baseUrl string, timeout time.Duration) *ProfilesAPI {
	return &ProfilesAPI{
		baseUrl: strings.TrimRight(baseUrl, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *ProfilesAPI) doRequest(ctx context.Context, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Add("accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, result)
}

// ListProfiles fetches one page of the directory. An empty name lists
// every profile; the name parameter is left out of the query entirely.
func (p *ProfilesAPI) ListProfiles(ctx context.Context, name string, page, pageSize int) (*model.ProfilePage, error) {
	slog.Debug("Started ListProfiles", "name", name, "page", page)
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	if name != "" {
		params.Set("name", name)
	}
	listUrl := p.baseUrl + "/profiles?" + params.Encode()

	var data ProfileListResponse
	if err := p.doRequest(ctx, listUrl, &data); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if data.TotalCount < 0 {
		return nil, fmt.Errorf("list profiles: negative totalCount %d", data.TotalCount)
	}

	profiles := make([]model.Profile, 0, len(data.List))
	for _, item := range data.List {
		profile := model.Profile{Name: item.Name}
		if item.Image != nil {
			profile.Image = *item.Image
		}
		profiles = append(profiles, profile)
	}
	slog.Debug("Ended ListProfiles", "total", data.TotalCount, "received", len(profiles))
	return &model.ProfilePage{TotalCount: data.TotalCount, Profiles: profiles}, nil
}
