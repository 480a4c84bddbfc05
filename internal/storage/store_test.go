package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// runStoreSuite exercises a migrated, empty Store
func runStoreSuite(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("RecordAndGetDeployment", func(t *testing.T) {
		d := &Deployment{
			ContractName:    "DecentralizedVideoPlatform",
			Network:         "sepolia",
			ChainID:         "11155111",
			Address:         "0x5FbDB2315678afecb367f032d93F642f64180aa3",
			DeployerAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
			TxHash:          "0xabc",
			BlockNumber:     42,
			DeploymentData:  map[string]any{"gasUsed": float64(21000)},
		}
		if err := store.RecordDeployment(ctx, d); err != nil {
			t.Fatalf("RecordDeployment() error = %v", err)
		}
		if d.ID == "" {
			t.Fatal("RecordDeployment() did not assign an ID")
		}

		got, err := store.GetDeployment(ctx, "11155111", d.Address)
		if err != nil {
			t.Fatalf("GetDeployment() error = %v", err)
		}
		if got.ID != d.ID {
			t.Errorf("GetDeployment().ID = %v, want %v", got.ID, d.ID)
		}
		if got.Network != "sepolia" {
			t.Errorf("GetDeployment().Network = %v, want sepolia", got.Network)
		}
		if got.BlockNumber != 42 {
			t.Errorf("GetDeployment().BlockNumber = %v, want 42", got.BlockNumber)
		}
		if got.DeploymentData["gasUsed"] != float64(21000) {
			t.Errorf("GetDeployment().DeploymentData = %v", got.DeploymentData)
		}
		if got.Verified {
			t.Error("GetDeployment().Verified = true, want false")
		}
		if !got.CreatedAt.Equal(d.CreatedAt) {
			t.Errorf("GetDeployment().CreatedAt = %v, want %v", got.CreatedAt, d.CreatedAt)
		}
	})

	t.Run("DuplicateAddress", func(t *testing.T) {
		d := &Deployment{ContractName: "X", Network: "sepolia", ChainID: "11155111", Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}
		err := store.RecordDeployment(ctx, d)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("RecordDeployment() error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("GetDeploymentNotFound", func(t *testing.T) {
		_, err := store.GetDeployment(ctx, "5", "0x0000000000000000000000000000000000000001")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetDeployment() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateVerificationStatus", func(t *testing.T) {
		d, err := store.GetDeployment(ctx, "11155111", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
		if err != nil {
			t.Fatalf("GetDeployment() error = %v", err)
		}
		if err := store.UpdateVerificationStatus(ctx, d.ID, true, []string{"etherscan"}); err != nil {
			t.Fatalf("UpdateVerificationStatus() error = %v", err)
		}

		got, err := store.GetDeployment(ctx, "11155111", d.Address)
		if err != nil {
			t.Fatalf("GetDeployment() error = %v", err)
		}
		if !got.Verified || got.VerifiedAt == nil {
			t.Errorf("verification not recorded: verified=%v at=%v", got.Verified, got.VerifiedAt)
		}
		if len(got.VerifiedOn) != 1 || got.VerifiedOn[0] != "etherscan" {
			t.Errorf("VerifiedOn = %v, want [etherscan]", got.VerifiedOn)
		}

		if err := store.UpdateVerificationStatus(ctx, "00000000-0000-0000-0000-000000000000", true, nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateVerificationStatus() unknown id error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListDeploymentsPaginates", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Microsecond)
		for i := 0; i < 5; i++ {
			d := &Deployment{
				ContractName: "DecentralizedVideoPlatform",
				Network:      "goerli",
				ChainID:      "5",
				Address:      fmt.Sprintf("0x%040d", i+1),
				CreatedAt:    base.Add(time.Duration(i) * time.Second),
			}
			if err := store.RecordDeployment(ctx, d); err != nil {
				t.Fatalf("RecordDeployment(%d) error = %v", i, err)
			}
		}

		filter := DeploymentFilter{Network: "goerli"}
		page1, err := store.ListDeployments(ctx, filter, PaginationParams{Limit: 2})
		if err != nil {
			t.Fatalf("ListDeployments() error = %v", err)
		}
		if len(page1.Data) != 2 || !page1.HasMore || page1.NextCursor == "" {
			t.Fatalf("page1 = %d items, hasMore=%v cursor=%q", len(page1.Data), page1.HasMore, page1.NextCursor)
		}
		if page1.Data[0].Address != fmt.Sprintf("0x%040d", 5) {
			t.Errorf("newest first: got %v", page1.Data[0].Address)
		}

		seen := map[string]bool{}
		for _, d := range page1.Data {
			seen[d.Address] = true
		}
		cursor := page1.NextCursor
		for cursor != "" {
			page, err := store.ListDeployments(ctx, filter, PaginationParams{Limit: 2, Cursor: cursor})
			if err != nil {
				t.Fatalf("ListDeployments() error = %v", err)
			}
			for _, d := range page.Data {
				if seen[d.Address] {
					t.Errorf("duplicate %s across pages", d.Address)
				}
				seen[d.Address] = true
			}
			cursor = page.NextCursor
		}
		if len(seen) != 5 {
			t.Errorf("saw %d deployments across pages, want 5", len(seen))
		}
	})

	t.Run("ListDeploymentsFilters", func(t *testing.T) {
		verified := true
		res, err := store.ListDeployments(ctx, DeploymentFilter{Verified: &verified}, PaginationParams{Limit: 10})
		if err != nil {
			t.Fatalf("ListDeployments() error = %v", err)
		}
		if len(res.Data) != 1 || res.Data[0].ChainID != "11155111" {
			t.Errorf("verified filter returned %d items", len(res.Data))
		}

		res, err = store.ListDeployments(ctx, DeploymentFilter{ChainID: "5", Contract: "DecentralizedVideoPlatform"}, PaginationParams{Limit: 10})
		if err != nil {
			t.Fatalf("ListDeployments() error = %v", err)
		}
		if len(res.Data) != 5 || res.HasMore {
			t.Errorf("chain filter returned %d items, hasMore=%v", len(res.Data), res.HasMore)
		}
	})

	t.Run("ListDeploymentsBadCursor", func(t *testing.T) {
		_, err := store.ListDeployments(ctx, DeploymentFilter{}, PaginationParams{Limit: 10, Cursor: "%%%"})
		if !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("ListDeployments() error = %v, want ErrInvalidCursor", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := store.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}
