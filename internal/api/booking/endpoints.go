package booking

import (
	"net/url"
	"strings"
)

// Endpoints builds every backend URL. The backend has moved its paths without
// notice before, so nothing else in the package assembles URLs.
type Endpoints interface {
	Search() string
	Results(sessionID string) string
	Offers(journeyID string) string
	Places(query string) string
}

// PathEndpoints joins a base URL with path templates. {id} in ResultsPath and
// OffersPath is replaced by the escaped identifier. An absolute URL in any path
// is used as-is.
type PathEndpoints struct {
	BaseURL     string
	SearchPath  string
	ResultsPath string
	OffersPath  string
	PlacesPath  string
}

func (e PathEndpoints) Search() string {
	return e.join(e.SearchPath)
}

func (e PathEndpoints) Results(sessionID string) string {
	return e.join(strings.ReplaceAll(e.ResultsPath, "{id}", url.PathEscape(sessionID)))
}

func (e PathEndpoints) Offers(journeyID string) string {
	return e.join(strings.ReplaceAll(e.OffersPath, "{id}", url.PathEscape(journeyID)))
}

func (e PathEndpoints) Places(query string) string {
	return e.join(e.PlacesPath) + "?query=" + url.QueryEscape(query)
}

func (e PathEndpoints) join(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
