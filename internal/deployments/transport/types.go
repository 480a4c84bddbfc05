// Package transport provides HTTP request/response types for the deployments domain.
package transport

import (
	"time"

	"github.com/btube/btube-deploy/internal/deployments/domain"
)

// DeploymentListResponse is the response for listing deployments.
type DeploymentListResponse struct {
	Data       []DeploymentItem `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// DeploymentItem is a deployment in a list.
type DeploymentItem struct {
	Network      string `json:"network"`
	ChainID      string `json:"chainId"`
	Address      string `json:"address"`
	ContractName string `json:"contractName"`
	Verified     bool   `json:"verified"`
	TxHash       string `json:"txHash,omitempty"`
}

// Pagination provides pagination metadata.
type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// DeploymentResponse is the response for getting a deployment.
type DeploymentResponse struct {
	ID              string         `json:"id"`
	ContractName    string         `json:"contractName"`
	Network         string         `json:"network"`
	ChainID         string         `json:"chainId"`
	Address         string         `json:"address"`
	DeployerAddress string         `json:"deployerAddress,omitempty"`
	TxHash          string         `json:"txHash,omitempty"`
	BlockNumber     int64          `json:"blockNumber,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	Verified        bool           `json:"verified"`
	VerifiedAt      *time.Time     `json:"verifiedAt,omitempty"`
	VerifiedOn      []string       `json:"verifiedOn,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// ErrorResponse wraps an API error.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the code and message of an API error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toItem(d domain.Deployment) DeploymentItem {
	return DeploymentItem{
		Network:      d.Network,
		ChainID:      d.ChainID,
		Address:      d.Address,
		ContractName: d.ContractName,
		Verified:     d.Verified,
		TxHash:       d.TxHash,
	}
}

func toResponse(d *domain.Deployment) DeploymentResponse {
	return DeploymentResponse{
		ID:              d.ID,
		ContractName:    d.ContractName,
		Network:         d.Network,
		ChainID:         d.ChainID,
		Address:         d.Address,
		DeployerAddress: d.DeployerAddress,
		TxHash:          d.TxHash,
		BlockNumber:     d.BlockNumber,
		Data:            d.DeploymentData,
		Verified:        d.Verified,
		VerifiedAt:      d.VerifiedAt,
		VerifiedOn:      d.VerifiedOn,
		CreatedAt:       d.CreatedAt,
	}
}
