package feed

import (
	"strings"
	"testing"
)

func TestArchiveURLs(t *testing.T) {
	urls := ArchiveURLs(2003)
	if len(urls) != 2 {
		t.Fatalf("got %d URLs, want primary + mirror", len(urls))
	}
	for _, u := range urls {
		if !strings.Contains(u, "FY2003_archived_opportunities.csv") {
			t.Errorf("URL missing archive name: %s", u)
		}
	}
	if !strings.HasPrefix(urls[0], "https://sam.gov/") {
		t.Errorf("primary is not sam.gov: %s", urls[0])
	}
	if !strings.HasPrefix(urls[1], "https://falextracts.s3.amazonaws.com/") {
		t.Errorf("mirror is not the S3 bucket: %s", urls[1])
	}
}

func TestArchiveName(t *testing.T) {
	if got := ArchiveName(1998); got != "FY1998_archived_opportunities.csv" {
		t.Fatalf("ArchiveName(1998) = %q", got)
	}
}
