package helpers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
)

// ARGQueryOptions represents options for executing an ARG query
type ARGQueryOptions struct {
	// Subscriptions to query. If nil, queries all accessible subscriptions
	Subscriptions []string
	// Maximum number of records to return. If 0, uses default (100)
	Top int32
	// Skip first N records
	Skip int32
	// Format for the results (defaults to ObjectArray)
	ResultFormat armresourcegraph.ResultFormat
}

// ARGClient wraps the ARG client for easier use
type ARGClient struct {
	client *armresourcegraph.Client
	logger *slog.Logger
}

// NewARGClient creates a new ARG client using default credentials
func NewARGClient(ctx context.Context) (*ARGClient, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %v", err)
	}

	client, err := armresourcegraph.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ARG client: %v", err)
	}

	return &ARGClient{
		client: client,
		logger: slog.Default().With("component", "ARGClient"),
	}, nil
}

// ExecuteQuery runs an ARG query with the given options
func (c *ARGClient) ExecuteQuery(ctx context.Context, query string, opts *ARGQueryOptions) (*armresourcegraph.ClientResourcesResponse, error) {
	if opts == nil {
		opts = &ARGQueryOptions{
			ResultFormat: armresourcegraph.ResultFormatObjectArray,
		}
	}

	options := &armresourcegraph.QueryRequestOptions{
		ResultFormat: to.Ptr(opts.ResultFormat),
	}
	if opts.Top > 0 {
		options.Top = to.Ptr(opts.Top)
	}
	if opts.Skip > 0 {
		options.Skip = to.Ptr(opts.Skip)
	}

	var subPtrs []*string
	if opts.Subscriptions != nil {
		for _, sub := range opts.Subscriptions {
			subCopy := sub
			subPtrs = append(subPtrs, &subCopy)
		}
	}

	request := armresourcegraph.QueryRequest{
		Query:         &query,
		Options:       options,
		Subscriptions: subPtrs,
	}

	response, err := c.client.Resources(ctx, request, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ARG query: %v", err)
	}

	return &response, nil
}

// Rows converts the ObjectArray response payload into a slice of maps.
func (c *ARGClient) Rows(response *armresourcegraph.ClientResourcesResponse) []map[string]any {
	data, ok := response.Data.([]any)
	if !ok {
		c.logger.Warn("unexpected ARG response shape", "type", fmt.Sprintf("%T", response.Data))
		return nil
	}

	var rows []map[string]any
	for _, item := range data {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}
