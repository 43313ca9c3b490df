package common

type httpClientKey struct{}

// HttpClientKey carries an injected *http.Client through the context. The
// process owns one client; components fall back to http.DefaultClient when
// none is present.
var HttpClientKey httpClientKey
