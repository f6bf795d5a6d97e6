package model

import (
	"errors"
	"time"
)

// Partner API regions
const (
	RegionNA = "na"
	RegionEU = "eu"
	RegionCN = "cn"
)

// PartnerRegionURLs maps a region code to its Fleet API base URL.
var PartnerRegionURLs = map[string]string{
	RegionNA: "https://fleet-api.prd.na.vn.cloud.tesla.com",
	RegionEU: "https://fleet-api.prd.eu.vn.cloud.tesla.com",
	RegionCN: "https://fleet-api.prd.cn.vn.cloud.tesla.cn",
}

// PartnerToken is the caller's stored third-party access token.
type PartnerToken struct {
	UserID       string     `db:"user_id"`
	AccessToken  string     `db:"access_token"`
	RefreshToken *string    `db:"refresh_token"`
	ExpiresAt    *time.Time `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// SaveConnectionRequest is the body of PUT /rest/v1/partner-connection.
type SaveConnectionRequest struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken *string    `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// PartnerRegisterRequest is the optional body of POST /functions/v1/partner-register.
type PartnerRegisterRequest struct {
	Region   string `json:"region"`
	Language string `json:"language"`
}

// PartnerRegisterResponse relays the regional API's answer.
type PartnerRegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Region  string `json:"region"`
	Result  any    `json:"result,omitempty"`
}

var ErrPartnerTokenNotFound = errors.New("partner token not found")
