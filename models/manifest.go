package models

type Manifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Resources   []string `json:"resources"`
	Types       []string `json:"types"`
	IDPrefixes  []string `json:"idPrefixes"`
	// An empty slice is required so the serialized JSON carries "catalogs":[].
	Catalogs      []CatalogItem          `json:"catalogs"`
	BehaviorHints *ManifestBehaviorHints `json:"behaviorHints,omitempty"`
}

type CatalogItem struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ManifestBehaviorHints struct {
	P2P bool `json:"p2p"`
}
