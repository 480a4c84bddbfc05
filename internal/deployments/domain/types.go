// Package domain contains the business logic for the deployment ledger.
package domain

import (
	"time"
)

// Deployment represents a recorded deployment.
type Deployment struct {
	ID              string
	ContractName    string
	Network         string
	ChainID         string
	Address         string
	DeployerAddress string
	TxHash          string
	BlockNumber     int64
	DeploymentData  map[string]any
	Verified        bool
	VerifiedAt      *time.Time
	VerifiedOn      []string
	CreatedAt       time.Time
}

// RecordRequest is the request to record a confirmed deployment.
type RecordRequest struct {
	Contract        string `json:"contract"`
	Network         string `json:"network"`
	ChainID         int64  `json:"chainId"`
	Address         string `json:"address"`
	TxHash          string `json:"txHash,omitempty"`
	DeployerAddress string `json:"deployerAddress,omitempty"`
	BlockNumber     int64  `json:"blockNumber,omitempty"`
	GasUsed         uint64 `json:"gasUsed,omitempty"`
	ArtifactPath    string `json:"artifactPath,omitempty"`
	CompilerVersion string `json:"compilerVersion,omitempty"`
	ConstructorArgs string `json:"constructorArgs,omitempty"`
}

// ListFilter contains filter options for listing deployments.
type ListFilter struct {
	Network  string
	ChainID  string
	Contract string
	Verified *bool
}

// PaginationParams contains pagination options.
type PaginationParams struct {
	Limit  int
	Cursor string
}

// ListResult contains paginated list results.
type ListResult struct {
	Deployments []Deployment
	HasMore     bool
	NextCursor  string
}
