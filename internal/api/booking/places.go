package booking

import (
	"context"
	"net/http"
)

// Places resolves a free-text station name to backend station ids.
func (c *Client) Places(ctx context.Context, query string) ([]Place, error) {
	root, err := c.doJSON(ctx, "places", http.MethodGet, c.opts.Endpoints.Places(query), nil)
	if err != nil {
		return nil, err
	}

	raw, ok := root.([]any)
	if !ok {
		obj, _ := root.(map[string]any)
		raw = firstList(obj, placeListKeys)
		if raw == nil {
			return nil, &SchemaDriftError{Op: "places", Detail: "no place list in response"}
		}
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		id, ok := firstString(obj, []string{"id"})
		if !ok {
			continue
		}
		name, _ := firstString(obj, placeNameKeys)
		places = append(places, Place{ID: id, Name: name})
	}
	return places, nil
}
