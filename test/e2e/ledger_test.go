//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deploymentsDomain "github.com/btube/btube-deploy/internal/deployments/domain"
	"github.com/btube/btube-deploy/pkg/client"
)

func TestLedger_DeployAndQuery(t *testing.T) {
	ctx := context.Background()
	c := newClient()

	dep := deployAndRecord(t, "e2e-sepolia")

	t.Run("get deployment by address", func(t *testing.T) {
		got, err := c.GetDeployment(ctx, dep.ChainID.String(), dep.Address.Hex())
		require.NoError(t, err)
		assert.Equal(t, "DecentralizedVideoPlatform", got.ContractName)
		assert.Equal(t, "e2e-sepolia", got.Network)
		assert.Equal(t, dep.Address.Hex(), got.Address)
		assert.Equal(t, dep.TxHash.Hex(), got.TxHash)
		assert.Equal(t, int64(dep.BlockNumber), got.BlockNumber)
		assert.False(t, got.Verified)
	})

	t.Run("lowercase address", func(t *testing.T) {
		lower := "0x" + dep.Address.Hex()[2:]
		got, err := c.GetDeployment(ctx, dep.ChainID.String(), lower)
		require.NoError(t, err)
		assert.Equal(t, dep.Address.Hex(), got.Address)
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := c.GetDeployment(ctx, dep.ChainID.String(), "0x0000000000000000000000000000000000000001")
		assert.True(t, client.IsNotFound(err))
	})
}

func TestLedger_ListAndPaginate(t *testing.T) {
	ctx := context.Background()
	c := newClient()

	for range 3 {
		deployAndRecord(t, "e2e-goerli")
	}

	first, err := c.ListDeployments(ctx, client.ListOptions{Network: "e2e-goerli", Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Data, 2)
	assert.True(t, first.Pagination.HasMore)
	require.NotEmpty(t, first.Pagination.NextCursor)

	second, err := c.ListDeployments(ctx, client.ListOptions{Network: "e2e-goerli", Limit: 2, Cursor: first.Pagination.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Data, 1)
	assert.False(t, second.Pagination.HasMore)

	seen := map[string]bool{}
	for _, d := range append(first.Data, second.Data...) {
		assert.Equal(t, "e2e-goerli", d.Network)
		assert.False(t, seen[d.Address], "duplicate %s", d.Address)
		seen[d.Address] = true
	}
}

func TestLedger_VerifiedFilter(t *testing.T) {
	ctx := context.Background()
	c := newClient()

	dep := deployAndRecord(t, "e2e-verify")
	svc := deploymentsDomain.NewService(testCtx.Store)
	require.NoError(t, svc.UpdateVerificationStatus(ctx, dep.ChainID.String(), dep.Address.Hex(), true, []string{"etherscan"}))

	verified := true
	resp, err := c.ListDeployments(ctx, client.ListOptions{Network: "e2e-verify", Verified: &verified})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Verified)
	assert.Equal(t, []string{"etherscan"}, resp.Data[0].VerifiedOn)
	assert.NotNil(t, resp.Data[0].VerifiedAt)
}

func TestLedger_ReadOnly(t *testing.T) {
	resp, err := http.Post(testCtx.TestServer.URL+"/api/v1/deployments", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, HEAD, OPTIONS", resp.Header.Get("Allow"))
}
