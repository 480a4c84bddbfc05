package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sqliteTimeLayout is fixed-width so that text ordering matches time ordering
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// encodeCursor returns an opaque cursor for the row after which the next
// page starts
func encodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", ErrInvalidCursor
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	if _, err := uuid.Parse(id); err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	return t, id, nil
}

// deploymentColumns is the select list shared by both stores
const deploymentColumns = `id, contract_name, network, chain_id, address, deployer_address, tx_hash, block_number, deployment_data, verified, verified_at, verified_on, created_at`

// listQuery builds the filtered, keyset-paginated deployment listing.
// placeholder renders the n-th bind parameter; timeArg converts the cursor
// time into the driver's representation.
func listQuery(filter DeploymentFilter, pagination PaginationParams, placeholder func(n int) string, timeArg func(time.Time) any) (string, []any, error) {
	var where []string
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Network != "" {
		where = append(where, "network = "+bind(filter.Network))
	}
	if filter.ChainID != "" {
		where = append(where, "chain_id = "+bind(filter.ChainID))
	}
	if filter.Contract != "" {
		where = append(where, "contract_name = "+bind(filter.Contract))
	}
	if filter.Verified != nil {
		where = append(where, "verified = "+bind(*filter.Verified))
	}
	if pagination.Cursor != "" {
		createdAt, id, err := decodeCursor(pagination.Cursor)
		if err != nil {
			return "", nil, err
		}
		ts := timeArg(createdAt)
		where = append(where, fmt.Sprintf("(created_at < %s OR (created_at = %s AND id < %s))", bind(ts), bind(ts), bind(id)))
	}

	query := "SELECT " + deploymentColumns + " FROM deployments"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + bind(pagination.Limit+1)
	return query, args, nil
}

// paginate trims the extra look-ahead row and sets the next cursor
func paginate(deployments []Deployment, limit int) *PaginatedResult[Deployment] {
	hasMore := len(deployments) > limit
	if hasMore {
		deployments = deployments[:limit]
	}
	result := &PaginatedResult[Deployment]{Data: deployments, HasMore: hasMore}
	if hasMore && len(deployments) > 0 {
		last := deployments[len(deployments)-1]
		result.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return result
}

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalData(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

func unmarshalList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var l []string
	_ = json.Unmarshal(raw, &l)
	return l
}
