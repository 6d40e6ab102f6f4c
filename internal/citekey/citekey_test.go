package citekey

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseStandardizes(t *testing.T) {
	tests := []struct {
		input      string
		standardID string
	}{
		{"doi:10.5061/dryad.q447c/1", "doi:10.5061/dryad.q447c/1"},
		{"DOI:10.5061/DRYad.q447c/1", "doi:10.5061/dryad.q447c/1"},
		{"doi:10/b6vnmd", "doi:10/b6vnmd"},
		{"shortdoi:10/b6vnmd", "doi:10/b6vnmd"},
		{"pmid:24159271", "pubmed:24159271"},
		{"pubmed:24159271", "pubmed:24159271"},
		{"pmcid:PMC4304851", "pmc:PMC4304851"},
		{"pmcid:pmc4304851", "pmc:PMC4304851"},
		{"arxiv:1407.3561v1", "arxiv:1407.3561v1"},
		{"arXiv:1407.3561v1", "arxiv:1407.3561v1"},
		{"arxiv:hep-th/9305059v2", "arxiv:hep-th/9305059v2"},
		{"isbn:1-339-91988-5", "isbn:9781339919881"},
		{"isbn:978-1-339-91988-1", "isbn:9781339919881"},
		{"url:https://peerj.com/articles/705/", "url:https://peerj.com/articles/705/"},
		{"raw:anything at all", "raw:anything at all"},
		// Unknown prefixes fall back to raw with the whole key as accession.
		{"wikidata:Q1", "raw:wikidata:Q1"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key := Parse(tt.input, nil, false)
			if key.StandardID != tt.standardID {
				t.Errorf("Parse(%q).StandardID = %q, want %q", tt.input, key.StandardID, tt.standardID)
			}
			if key.Input != tt.input {
				t.Errorf("Input = %q, want %q", key.Input, tt.input)
			}
		})
	}
}

func TestParseInfersPrefix(t *testing.T) {
	tests := []struct {
		input      string
		standardID string
	}{
		{"10.5061/DRYad.q447c/1", "doi:10.5061/dryad.q447c/1"},
		{"10/b6vnmd", "doi:10/b6vnmd"},
		{"PMC4304851", "pmc:PMC4304851"},
		{"24159271", "pubmed:24159271"},
		{"1407.3561v1", "arxiv:1407.3561v1"},
		{"https://peerj.com/articles/705/", "url:https://peerj.com/articles/705/"},
		{"978-1-339-91988-1", "isbn:9781339919881"},
		{"not an identifier", "raw:not an identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key := Parse(tt.input, nil, true)
			if key.StandardID != tt.standardID {
				t.Errorf("Parse(%q).StandardID = %q, want %q", tt.input, key.StandardID, tt.standardID)
			}
		})
	}
}

func TestParseWithoutInference(t *testing.T) {
	key := Parse("10.5061/dryad.q447c/1", nil, false)
	if key.Prefix != RawPrefix {
		t.Errorf("bare identifier without inference parsed as %q, want raw", key.Prefix)
	}
}

func TestParseExpandsAliases(t *testing.T) {
	aliases := AliasTable{
		"deep-review":     "doi:10.1098/rsif.2017.0387",
		"tag:deep-review": "doi:10.1098/rsif.2017.0387",
	}
	for _, input := range []string{"deep-review", "tag:deep-review"} {
		key := Parse(input, aliases, false)
		if key.StandardID != "doi:10.1098/rsif.2017.0387" {
			t.Errorf("Parse(%q).StandardID = %q, want doi target", input, key.StandardID)
		}
		if key.Dealiased != "doi:10.1098/rsif.2017.0387" {
			t.Errorf("Parse(%q).Dealiased = %q", input, key.Dealiased)
		}
	}
}

func TestIsTag(t *testing.T) {
	key := Parse("tag:undefined-study", nil, false)
	if !key.IsTag() {
		t.Error("undefined tag key should report IsTag")
	}
	if problem := key.Inspect(); !strings.Contains(problem, "not defined") {
		t.Errorf("Inspect() = %q, want undefined-tag problem", problem)
	}
	resolved := Parse("tag:x", AliasTable{"tag:x": "pubmed:24159271"}, false)
	if resolved.IsTag() {
		t.Error("alias-resolved tag should not report IsTag")
	}
}

func TestInspect(t *testing.T) {
	passes := []string{
		"doi:10.7717/peerj.705",
		"doi:10/b6vnmd",
		"pmcid:PMC4304851",
		"pubmed:25648772",
		"arxiv:1407.3561",
		"arxiv:1407.3561v1",
		"arxiv:math.GT/0309136",
		"arxiv:hep-th/9305059v2",
		"isbn:978-1-339-91988-1",
		"isbn:1-339-91988-5",
		"url:https://peerj.com/articles/705/",
		"raw:free-form text",
	}
	for _, input := range passes {
		if problem := Parse(input, nil, false).Inspect(); problem != "" {
			t.Errorf("Inspect(%q) = %q, want no problem", input, problem)
		}
	}

	fails := []struct {
		input    string
		contains string
	}{
		{"doi:10.771/peerj.705", "double check the DOI"},
		{"doi:10/b6v_nmd", "double check the shortDOI"},
		{"doi:7717/peerj.705", "must start with '10.'"},
		{"doi:b6vnmd", "must start with '10.'"},
		{"pmcid:25648772", "must start with 'PMC'"},
		{"pmid:PMC4304851", "should the citation source be 'pmc'"},
		{"pubmed:012345", "no leading zeros"},
		{"isbn:1-339-91988-X", "violates the ISBN"},
		{"arxiv:YYMM.number", "must conform to the syntax"},
		{"url:peerj.com/articles/705/", "must begin with http"},
	}
	for _, tt := range fails {
		problem := Parse(tt.input, nil, false).Inspect()
		if problem == "" {
			t.Errorf("Inspect(%q) passed, want problem containing %q", tt.input, tt.contains)
			continue
		}
		if !strings.Contains(problem, tt.contains) {
			t.Errorf("Inspect(%q) = %q, want substring %q", tt.input, problem, tt.contains)
		}
	}
}

func TestShorten(t *testing.T) {
	tests := []struct {
		standardID string
		short      string
	}{
		{"doi:10.5061/dryad.q447c/1", "kQFQ8EaO"},
		{"arxiv:1407.3561v1", "16kozZ9Ys"},
		{"pmid:24159271", "11sli93ov"},
		{"url:http://blog.dhimmel.com/irreproducible-timestamps/", "QBWMEuxW"},
	}
	for _, tt := range tests {
		if got := Shorten(tt.standardID); got != tt.short {
			t.Errorf("Shorten(%q) = %q, want %q", tt.standardID, got, tt.short)
		}
	}
}

func TestValidISBN(t *testing.T) {
	valid := []string{
		"1-339-91988-5",
		"978-1-339-91988-1",
		"9781339919881",
		"ISBN 0-306-40615-2",
		"0-8044-2957-X",
	}
	for _, isbn := range valid {
		if !ValidISBN(isbn) {
			t.Errorf("ValidISBN(%q) = false, want true", isbn)
		}
	}
	invalid := []string{
		"1-339-91988-X",
		"0-306-40615-1",
		"12345",
		"978133991988",
		"",
	}
	for _, isbn := range invalid {
		if ValidISBN(isbn) {
			t.Errorf("ValidISBN(%q) = true, want false", isbn)
		}
	}
}

func TestToISBN13(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"1-339-91988-5", "9781339919881"},
		{"978-1-339-91988-1", "9781339919881"},
		{"0-306-40615-2", "9780306406157"},
		// Invalid input passes through cleaned for downstream error handling.
		{"not-an-isbn", "NOTANISBN"},
	}
	for _, tt := range tests {
		if got := ToISBN13(tt.in); got != tt.out {
			t.Errorf("ToISBN13(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yml")
	content := "deep-review: doi:10.1098/rsif.2017.0387\nstudy-x: pubmed:24159271\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadAliases(path)
	if err != nil {
		t.Fatalf("LoadAliases: %v", err)
	}
	if table["deep-review"] != "doi:10.1098/rsif.2017.0387" {
		t.Errorf("deep-review target = %q", table["deep-review"])
	}
	if len(table) != 2 {
		t.Errorf("len(table) = %d, want 2", len(table))
	}
}

func TestLoadAliasesRejectsChains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yml")
	content := "a: b\nb: doi:10.1098/rsif.2017.0387\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAliases(path); err == nil {
		t.Error("LoadAliases accepted a chained alias")
	}
}

func TestCheckAliases(t *testing.T) {
	if err := CheckAliases(AliasTable{"x": "x"}); err == nil {
		t.Error("self-referential alias accepted")
	}
	if err := CheckAliases(AliasTable{"a": "b", "b": "doi:10.1/x"}); err == nil {
		t.Error("alias chain accepted")
	}
	if err := CheckAliases(AliasTable{"a": "doi:10.1/x"}); err != nil {
		t.Errorf("valid table rejected: %v", err)
	}
}

func TestFromURL(t *testing.T) {
	tests := []struct {
		url string
		key string
	}{
		{"https://www.doi.org/", "url:https://www.doi.org/"},
		{"https://www.doi.org/factsheets/Identifier_Interoper.html", "url:https://www.doi.org/factsheets/Identifier_Interoper.html"},
		{"https://doi.org/10.1097%2F00004032-200403000-00012", "doi:10.1097/00004032-200403000-00012"},
		{"http://dx.doi.org/10.7554/eLife.46574", "doi:10.7554/elife.46574"},
		{"https://doi.org/10/b6vnmd#anchor", "doi:10/b6vnmd"},
		// shortDOI URLs without the 10/ prefix stay plain URLs
		{"https://doi.org/b6vnmd", "url:https://doi.org/b6vnmd"},
		{"https://www.biorxiv.org/about-biorxiv", "url:https://www.biorxiv.org/about-biorxiv"},
		{"https://sci-hub.tw/10.1038/nature19057", "doi:10.1038/nature19057"},
		{"https://www.biorxiv.org/content/10.1101/087619v3", "doi:10.1101/087619"},
		{"https://www.biorxiv.org/content/early/2017/08/31/087619.full.pdf", "doi:10.1101/087619"},
		{"https://www.biorxiv.org/content/10.1101/2019.12.11.872580v1.full.pdf", "doi:10.1101/2019.12.11.872580"},
		{"https://www.ncbi.nlm.nih.gov", "url:https://www.ncbi.nlm.nih.gov"},
		{"https://www.ncbi.nlm.nih.gov/pubmed", "url:https://www.ncbi.nlm.nih.gov/pubmed"},
		{"https://www.ncbi.nlm.nih.gov/pubmed/31233491", "pubmed:31233491"},
		{"https://www.ncbi.nlm.nih.gov/pmc/about/intro/", "url:https://www.ncbi.nlm.nih.gov/pmc/about/intro/"},
		{"https://www.ncbi.nlm.nih.gov/pmc/articles/PMC4304851/", "pmc:PMC4304851"},
		{"https://arxiv.org/", "url:https://arxiv.org/"},
		{"https://arxiv.org/list/q-fin/recent", "url:https://arxiv.org/list/q-fin/recent"},
		{"https://arxiv.org/abs/1912.03529v1", "arxiv:1912.03529v1"},
		{"https://arxiv.org/pdf/1912.03529v1.pdf", "arxiv:1912.03529v1"},
		{"https://arxiv.org/abs/hep-th/9305059", "arxiv:hep-th/9305059"},
		{"https://arxiv.org/pdf/hep-th/9305059.pdf", "arxiv:hep-th/9305059"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := FromURL(tt.url); got != tt.key {
				t.Errorf("FromURL(%q) = %q, want %q", tt.url, got, tt.key)
			}
		})
	}
}
