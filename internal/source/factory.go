package source

import (
	"fmt"

	"github.com/your-org/facesearch/internal/config"
)

// Build constructs connectors for every enabled source, preserving config
// order. The store is only required when a watchlist source is configured.
func Build(cfgs []config.SourceConfig, store FaceSearcher) ([]Connector, error) {
	connectors := make([]Connector, 0, len(cfgs))
	for _, c := range cfgs {
		switch c.Kind {
		case "reverse_image":
			connectors = append(connectors, NewReverseImage(c))
		case "profile_search":
			connectors = append(connectors, NewProfileSearch(c))
		case "watchlist":
			if store == nil {
				return nil, fmt.Errorf("source %s: watchlist requires a store", c.ID)
			}
			connectors = append(connectors, NewWatchlist(c, store))
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", c.ID, c.Kind)
		}
	}
	return connectors, nil
}
