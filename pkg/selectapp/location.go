package selectapp

import (
	"net/url"
	"strconv"
	"strings"
)

// Location gives read access to the current page's query parameters.
type Location interface {
	Param(name string) string
}

// QueryLocation is a Location backed by parsed query values.
type QueryLocation url.Values

// Param returns the first value of name, or "".
func (q QueryLocation) Param(name string) string {
	return url.Values(q).Get(name)
}

// ParseLocation builds a Location from a raw query string, with or without
// the leading '?'. Malformed pairs are skipped.
func ParseLocation(rawQuery string) QueryLocation {
	values, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	return QueryLocation(values)
}

// LocationFromURL builds a Location from u's query string.
func LocationFromURL(u *url.URL) QueryLocation {
	if u == nil {
		return QueryLocation(nil)
	}
	return QueryLocation(u.Query())
}

// PreselectQuery renders the query string that pre-selects appID, optionally
// opening its info drawer.
func PreselectQuery(appID int, showInfo bool) string {
	values := url.Values{}
	values.Set(ParamAppID, strconv.Itoa(appID))
	if showInfo {
		values.Set(ParamShowInfo, "true")
	}
	return values.Encode()
}
