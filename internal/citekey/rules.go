package citekey

import (
	"regexp"
	"strings"
)

// rule describes one identifier namespace: how to normalize accessions
// and how to detect malformed ones.
type rule struct {
	standardPrefix string
	standardize    func(accession string) string
	inspect        func(accession string) string
}

var (
	// https://www.crossref.org/blog/dois-and-matching-regular-expressions/
	doiPattern = regexp.MustCompile(`^10\.[0-9]{4,9}/\S+$`)
	// shortDOI, see http://shortdoi.org
	shortDOIPattern = regexp.MustCompile(`^10/[a-zA-Z0-9]+$`)
	// https://www.nlm.nih.gov/bsd/mms/medlineelements.html#pmid
	pubmedPattern = regexp.MustCompile(`^[1-9][0-9]{0,7}$`)
	// https://www.nlm.nih.gov/bsd/mms/medlineelements.html#pmc
	pmcPattern = regexp.MustCompile(`^PMC[0-9]+$`)
	// https://arxiv.org/help/arxiv_identifier
	arxivPattern = regexp.MustCompile(
		`^(?:[0-9]{4}\.[0-9]{4,5}|[a-z\-]+(?:\.[A-Z]{2})?/[0-9]{7})(?:v[0-9]+)?$`)
	urlPattern = regexp.MustCompile(`^https?://`)
)

var rules = map[string]rule{
	"doi": {
		standardPrefix: "doi",
		standardize:    strings.ToLower,
		inspect:        inspectDOI,
	},
	"shortdoi": {
		standardPrefix: "doi",
		standardize:    strings.ToLower,
		inspect:        inspectDOI,
	},
	"pubmed": {
		standardPrefix: "pubmed",
		inspect:        inspectPubMed,
	},
	"pmid": {
		standardPrefix: "pubmed",
		inspect:        inspectPubMed,
	},
	"pmc": {
		standardPrefix: "pmc",
		standardize:    standardizePMC,
		inspect:        inspectPMC,
	},
	"pmcid": {
		standardPrefix: "pmc",
		standardize:    standardizePMC,
		inspect:        inspectPMC,
	},
	"arxiv": {
		standardPrefix: "arxiv",
		inspect: func(accession string) string {
			if !arxivPattern.MatchString(accession) {
				return "arXiv identifiers must conform to the syntax described at https://arxiv.org/help/arxiv_identifier"
			}
			return ""
		},
	},
	"isbn": {
		standardPrefix: "isbn",
		standardize:    ToISBN13,
		inspect: func(accession string) string {
			if !ValidISBN(accession) {
				return "identifier violates the ISBN-10/ISBN-13 syntax or checksum"
			}
			return ""
		},
	},
	"url": {
		standardPrefix: "url",
		inspect: func(accession string) string {
			if !urlPattern.MatchString(accession) {
				return "URL citations must begin with http:// or https://"
			}
			return ""
		},
	},
	RawPrefix: {standardPrefix: RawPrefix},
	TagPrefix: {standardPrefix: TagPrefix},
}

func isKnownPrefix(prefix string) bool {
	_, ok := rules[prefix]
	return ok
}

func inspectDOI(accession string) string {
	switch {
	case strings.HasPrefix(accession, "10."):
		if !doiPattern.MatchString(accession) {
			return "identifier does not conform to the DOI regex; double check the DOI"
		}
	case strings.HasPrefix(accession, "10/"):
		if !shortDOIPattern.MatchString(accession) {
			return "identifier does not conform to the shortDOI regex; double check the shortDOI"
		}
	default:
		return "DOIs must start with '10.' (or '10/' for shortDOIs)"
	}
	return ""
}

func inspectPubMed(accession string) string {
	if strings.HasPrefix(accession, "PMC") {
		return "PubMed identifiers should start with digits rather than PMC; should the citation source be 'pmc'?"
	}
	if !pubmedPattern.MatchString(accession) {
		return "PubMed identifiers should be 1-8 digits with no leading zeros"
	}
	return ""
}

func inspectPMC(accession string) string {
	if !strings.HasPrefix(accession, "PMC") {
		return "PubMed Central identifiers must start with 'PMC'"
	}
	if !pmcPattern.MatchString(accession) {
		return "identifier does not conform to the PMCID regex; double check the PMCID"
	}
	return ""
}

func standardizePMC(accession string) string {
	return strings.ToUpper(accession)
}

// inferredPrefix guesses the namespace of a prefix-less identifier from
// its shape. Returns "" when no namespace matches.
func inferredPrefix(id string) string {
	switch {
	case doiPattern.MatchString(id):
		return "doi"
	case shortDOIPattern.MatchString(id):
		return "shortdoi"
	case pmcPattern.MatchString(id):
		return "pmc"
	case pubmedPattern.MatchString(id):
		return "pubmed"
	case arxivPattern.MatchString(id):
		return "arxiv"
	case urlPattern.MatchString(id):
		return "url"
	case ValidISBN(id):
		return "isbn"
	}
	return ""
}

// KnownPrefixes returns the recognized prefixes, for error messages.
func KnownPrefixes() []string {
	prefixes := make([]string, 0, len(rules))
	for prefix := range rules {
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}
