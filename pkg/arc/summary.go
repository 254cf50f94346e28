package arc

import (
	"context"
	"fmt"
	"sort"

	"github.com/helixsec/arcops/internal/helpers"
)

// StatusCount is the number of Arc machines in one connectivity status.
type StatusCount struct {
	Status string
	Count  int
}

const machineSummaryQuery = `resources
| where type =~ 'microsoft.hybridcompute/machines'
| summarize n=count() by status=tostring(properties.status)`

// MachineSummary counts Arc machines by connectivity status across the
// given subscriptions using Azure Resource Graph.
func MachineSummary(ctx context.Context, arg *helpers.ARGClient, subscriptions []string) ([]StatusCount, error) {
	response, err := arg.ExecuteQuery(ctx, machineSummaryQuery, &helpers.ARGQueryOptions{
		Subscriptions: subscriptions,
	})
	if err != nil {
		return nil, err
	}

	var counts []StatusCount
	for _, row := range arg.Rows(response) {
		status, _ := row["status"].(string)
		if status == "" {
			status = "Unknown"
		}

		// ARG hands numbers back as float64.
		n, ok := row["n"].(float64)
		if !ok {
			return nil, fmt.Errorf("unexpected count value in summary row: %v", row["n"])
		}

		counts = append(counts, StatusCount{Status: status, Count: int(n)})
	}

	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts, nil
}
