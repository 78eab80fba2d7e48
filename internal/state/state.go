package state

import (
	"maps"
	"slices"

	"github.com/muurk/imagegen/internal/protocol"
)

// AppState is one immutable snapshot of the client state.
// Never modify a snapshot handed out by the Store; use SetState.
type AppState struct {
	CurrentAPI    string
	AvailableAPIs map[string]protocol.APIInfo
	IsLoading     bool
	CurrentPreset string
	Settings      protocol.Settings
	Config        *protocol.FrontendConfig
	LastResult    *protocol.GenerationResult
	QueryImage    string
	ResultImages  []protocol.VectorItem
}

// Initial returns the state a fresh Store starts with.
func Initial() AppState {
	return AppState{
		CurrentAPI:    protocol.DefaultAPI,
		AvailableAPIs: map[string]protocol.APIInfo{},
		Settings:      protocol.DefaultSettings(),
		ResultImages:  []protocol.VectorItem{},
	}
}

// clone copies the map and slice fields so an update cannot reach
// back into an earlier snapshot.
func (s AppState) clone() AppState {
	s.AvailableAPIs = maps.Clone(s.AvailableAPIs)
	if s.AvailableAPIs == nil {
		s.AvailableAPIs = map[string]protocol.APIInfo{}
	}
	s.ResultImages = slices.Clone(s.ResultImages)
	if s.ResultImages == nil {
		s.ResultImages = []protocol.VectorItem{}
	}
	return s
}

// HasAPI reports whether name is a known API.
func (s AppState) HasAPI(name string) bool {
	_, ok := s.AvailableAPIs[name]
	return ok
}

// SupportedSettings returns what the current API accepts, falling back to
// the built-in lists when no config has been loaded.
func (s AppState) SupportedSettings() protocol.SupportedSettings {
	if api, ok := s.AvailableAPIs[s.CurrentAPI]; ok && len(api.SupportedSettings.ModelType) > 0 {
		return api.SupportedSettings
	}
	return protocol.SupportedSettings{
		ModelType: protocol.ModelTypes,
		IndexType: protocol.IndexTypes,
		SearchNum: protocol.Range{Min: protocol.MinSearchNum, Max: protocol.MaxSearchNum},
	}
}
