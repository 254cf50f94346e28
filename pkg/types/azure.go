package types

// ArcMachine is a connected machine as reported by the hybrid compute
// resource provider.
type ArcMachine struct {
	Name              string
	ProvisioningState string
	Status            string
}

// InstalledExtension is one extension instance on one Arc machine.
//
// Name is the resource name chosen at install time. TypeName is the
// type identifier the platform publishes images under; the two diverge
// for some extensions (e.g. MicrosoftDefenderForSQL installs as type
// AdvancedThreatProtection.Windows), so catalog lookups must go through
// TypeName, never Name.
type InstalledExtension struct {
	Machine           string
	Name              string
	Publisher         string
	TypeName          string
	Version           string
	ProvisioningState string
}

// CatalogKey returns the publisher-qualified type identifier used to
// look the extension up in the version catalog.
func (e InstalledExtension) CatalogKey() string {
	return e.Publisher + "." + e.TypeName
}

// ExtensionImage is one record of the published extension image feed.
type ExtensionImage struct {
	Publisher string `json:"publisher"`
	Name      string `json:"extensionType"`
	Version   string `json:"version"`
}

// Mismatch is one extension whose installed version does not match the
// catalog, or which the catalog does not know at all.
type Mismatch struct {
	Machine   string
	Key       string
	Installed string
	Target    string
	InCatalog bool
}
