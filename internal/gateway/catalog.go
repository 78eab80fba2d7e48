package gateway

import (
	"fmt"
	"maps"
	"slices"

	"github.com/muurk/imagegen/internal/protocol"
)

// Catalog is the set of generation APIs the gateway can route to.
type Catalog struct {
	apis       map[string]protocol.APIInfo
	defaultAPI string
}

// NewCatalog returns the built-in catalog: the imagen API only.
func NewCatalog() *Catalog {
	return &Catalog{
		apis: map[string]protocol.APIInfo{
			protocol.DefaultAPI: {
				Name:        "Imagen API",
				Description: "구글 Imagen 기반 이미지 생성",
				SupportedSettings: protocol.SupportedSettings{
					ModelType: slices.Clone(protocol.ModelTypes),
					IndexType: slices.Clone(protocol.IndexTypes),
					SearchNum: protocol.Range{Min: protocol.MinSearchNum, Max: protocol.MaxSearchNum},
				},
			},
		},
		defaultAPI: protocol.DefaultAPI,
	}
}

// Names returns the API names in sorted order.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.apis))
}

// Resolve maps an empty name to the default API and rejects unknown names.
func (c *Catalog) Resolve(name string) (string, protocol.APIInfo, error) {
	if name == "" {
		name = c.defaultAPI
	}
	info, ok := c.apis[name]
	if !ok {
		return "", protocol.APIInfo{}, &ValidationError{
			Field:   "api",
			Message: fmt.Sprintf("지원하지 않는 API: %s. 사용 가능한 API: %v", name, c.Names()),
		}
	}
	return name, info, nil
}

// Supports reports whether info accepts the validated settings.
func Supports(info protocol.APIInfo, s protocol.Settings) bool {
	supported := info.SupportedSettings
	return slices.Contains(supported.ModelType, s.ModelType) &&
		slices.Contains(supported.IndexType, s.IndexType) &&
		supported.SearchNum.Contains(s.SearchNum)
}

// Frontend builds the GET /config body.
func (c *Catalog) Frontend(debug bool) protocol.ConfigResponse {
	summaries := make(map[string]protocol.APISummary, len(c.apis))
	for name, info := range c.apis {
		summaries[name] = protocol.APISummary{Name: info.Name, Description: info.Description}
	}

	return protocol.ConfigResponse{
		Config: protocol.FrontendConfig{
			APIs: summaries,
			UI: protocol.UIConfig{
				DefaultSettings: protocol.DefaultSettings(),
				Limits: protocol.Limits{
					MaxSearchNum:    protocol.MaxSearchNum,
					MinSearchNum:    protocol.MinSearchNum,
					MaxPromptLength: protocol.MaxPromptLength,
				},
				Theme: protocol.Theme{
					PrimaryColor: "#646464",
					SuccessColor: "#28a745",
					ErrorColor:   "#dc3545",
				},
			},
			Server: protocol.ServerInfo{Debug: debug},
		},
		APIs: maps.Clone(c.apis),
	}
}
