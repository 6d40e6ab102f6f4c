package citekey

import (
	"net/url"
	"regexp"
	"strings"
)

var biorxivPattern = regexp.MustCompile(`/((?:[0-9]{4}\.[0-9]{2}\.[0-9]{2}\.)?[0-9]{6,})`)

// FromURL converts an HTTP(S) URL into a citation key, preferring a
// source-specific key (doi, pubmed, pmc, arxiv) when the URL points at a
// recognized registry. When conversion fails or the converted key does
// not pass inspection, the URL itself is returned as a url: key.
func FromURL(rawURL string) string {
	converted := convertURL(rawURL)
	if converted != "" {
		key := Parse(converted, nil, false)
		if key.Inspect() == "" {
			return key.StandardID
		}
	}
	return "url:" + rawURL
}

func convertURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	path := strings.TrimPrefix(parsed.Path, "/")

	switch {
	case host == "doi.org" || strings.HasSuffix(host, ".doi.org"):
		if unescaped, err := url.PathUnescape(path); err == nil {
			return "doi:" + unescaped
		}
	case strings.Contains(host, "sci-hub"):
		return "doi:" + path
	case host == "biorxiv.org" || strings.HasSuffix(host, ".biorxiv.org"):
		if m := biorxivPattern.FindStringSubmatch(parsed.Path); m != nil {
			return "doi:10.1101/" + m[1]
		}
	case strings.HasSuffix(host, "ncbi.nlm.nih.gov"):
		segments := strings.Split(path, "/")
		if len(segments) >= 2 && segments[0] == "pubmed" {
			return "pubmed:" + segments[1]
		}
		if len(segments) >= 3 && segments[0] == "pmc" && segments[1] == "articles" {
			return "pmc:" + segments[2]
		}
	case host == "arxiv.org" || strings.HasSuffix(host, ".arxiv.org"):
		segments := strings.SplitN(path, "/", 2)
		if len(segments) == 2 {
			return "arxiv:" + strings.TrimSuffix(segments[1], ".pdf")
		}
	}
	return ""
}
