package store

import (
	"context"

	"github.com/4ry1337/openvis/pkg/layout"
)

// Preference keys, before prefixing.
const (
	KeyControllers = "controllers"
	KeyParams      = "simulation_params"
	KeyFilters     = "filters"
)

// SavedController is one persisted controller connection.
type SavedController struct {
	URL      string `json:"url" toml:"url"`
	Interval int    `json:"interval" toml:"interval"` // milliseconds
}

// LoadControllers returns the saved controller list, empty on first run.
func LoadControllers(ctx context.Context, s Store) ([]SavedController, error) {
	var list []SavedController
	if _, err := s.Get(ctx, KeyControllers, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveControllers replaces the saved controller list.
func SaveControllers(ctx context.Context, s Store, list []SavedController) error {
	if list == nil {
		list = []SavedController{}
	}
	return s.Set(ctx, KeyControllers, list)
}

// LoadParams returns the saved simulation parameters. A missing or out of
// range value yields the defaults and false.
func LoadParams(ctx context.Context, s Store) (layout.Params, bool, error) {
	var p layout.Params
	ok, err := s.Get(ctx, KeyParams, &p)
	if err != nil || !ok || p.Validate() != nil {
		return layout.DefaultParams(), false, err
	}
	return p, true, nil
}

// SaveParams stores the simulation parameters.
func SaveParams(ctx context.Context, s Store, p layout.Params) error {
	return s.Set(ctx, KeyParams, p)
}

// LoadFilter returns the saved visibility filter, or the default.
func LoadFilter(ctx context.Context, s Store) (layout.Filter, bool, error) {
	f := layout.DefaultFilter()
	ok, err := s.Get(ctx, KeyFilters, &f)
	if err != nil || !ok {
		return layout.DefaultFilter(), false, err
	}
	return f, true, nil
}

// SaveFilter stores the visibility filter.
func SaveFilter(ctx context.Context, s Store, f layout.Filter) error {
	return s.Set(ctx, KeyFilters, f)
}
