package arc

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/helixsec/arcops/pkg/types"
)

// VersionCatalog maps "{publisher}.{type}" to the latest published
// version of that extension image. Built once per run and read-only
// afterward; versions are opaque strings and are never parsed.
type VersionCatalog map[string]string

// CatalogKey builds a catalog lookup key from a publisher and an
// extension type identifier.
func CatalogKey(publisher, extensionType string) string {
	return publisher + "." + extensionType
}

// CatalogSource produces the published extension image feed.
type CatalogSource interface {
	LatestImages(ctx context.Context) ([]types.ExtensionImage, error)
}

// AzCLICatalogSource fetches the feed by invoking the Azure CLI once.
// Any exec or decode failure is fatal for the run: every comparison
// downstream depends on the catalog being complete.
type AzCLICatalogSource struct {
	// Location scopes the image listing; the published versions are the
	// same across regions but the API requires one.
	Location string

	// run is swapped out in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewAzCLICatalogSource returns a catalog source backed by
// `az connectedmachine extension-image list`.
func NewAzCLICatalogSource(location string) *AzCLICatalogSource {
	return &AzCLICatalogSource{
		Location: location,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (s *AzCLICatalogSource) LatestImages(ctx context.Context) ([]types.ExtensionImage, error) {
	out, err := s.run(ctx, "az", "connectedmachine", "extension-image", "list",
		"--location", s.Location, "--output", "json")
	if err != nil {
		return nil, fmt.Errorf("failed to list extension images: %v", err)
	}

	var images []types.ExtensionImage
	if err := json.Unmarshal(out, &images); err != nil {
		return nil, fmt.Errorf("failed to parse extension image feed: %v", err)
	}

	return images, nil
}

// BuildCatalog fetches the image feed and builds the version lookup
// table. An empty feed is an error, not an empty catalog: reconciling
// against nothing would flag every installed extension.
func BuildCatalog(ctx context.Context, source CatalogSource) (VersionCatalog, error) {
	images, err := source.LatestImages(ctx)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("extension image feed returned no records")
	}

	catalog := make(VersionCatalog, len(images))
	for _, img := range images {
		// The feed lists one latest image per publisher+type; if it
		// ever repeats a key, the later record wins.
		catalog[CatalogKey(img.Publisher, img.Name)] = img.Version
	}

	return catalog, nil
}
