package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"teslabooking/internal/i18n"
	"teslabooking/internal/model"
	"teslabooking/internal/repository"
)

const partnerAccountsPath = "/api/1/partner_accounts"

// PartnerService stores third-party connections and proxies the partner
// account registration to the regional Fleet API.
type PartnerService struct {
	tokens        repository.PartnerTokenRepository
	domain        string
	defaultRegion string
	regionURLs    map[string]string
	httpClient    *http.Client
}

func NewPartnerService(tokens repository.PartnerTokenRepository, domain, defaultRegion string) *PartnerService {
	if _, ok := model.PartnerRegionURLs[defaultRegion]; !ok {
		defaultRegion = model.RegionEU
	}
	return &PartnerService{
		tokens:        tokens,
		domain:        domain,
		defaultRegion: defaultRegion,
		regionURLs:    model.PartnerRegionURLs,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SaveConnection stores or replaces the caller's third-party token.
func (s *PartnerService) SaveConnection(ctx context.Context, userID string, req *model.SaveConnectionRequest) error {
	if strings.TrimSpace(req.AccessToken) == "" {
		return fmt.Errorf("%w: access_token is required", ErrInvalidInput)
	}
	return s.tokens.Upsert(ctx, &model.PartnerToken{
		UserID:       userID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
	})
}

// ResolveRegion returns region when it is known, the default otherwise.
func (s *PartnerService) ResolveRegion(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	if _, ok := s.regionURLs[region]; ok {
		return region
	}
	return s.defaultRegion
}

// Register forwards the registration call and relays the regional answer.
// It returns the upstream status along with the response; a missing stored
// token is model.ErrPartnerTokenNotFound.
func (s *PartnerService) Register(ctx context.Context, userID string, req *model.PartnerRegisterRequest) (*model.PartnerRegisterResponse, int, error) {
	token, err := s.tokens.GetByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	region := s.ResolveRegion(req.Region)
	t := i18n.Lookup(req.Language)

	body, err := json.Marshal(map[string]string{"domain": s.domain})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal partner request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.regionURLs[region]+partnerAccountsPath, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create partner request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("call partner api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read partner response: %w", err)
	}

	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		result = string(raw)
	}

	out := &model.PartnerRegisterResponse{Region: region, Result: result}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		out.Success = true
		out.Message = t.T(i18n.KeyPartnerRegistered)
	} else {
		out.Error = t.T(i18n.KeyPartnerFailed)
	}
	return out, resp.StatusCode, nil
}
