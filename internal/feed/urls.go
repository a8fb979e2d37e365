package feed

import "fmt"

// SAM.gov publishes the current fiscal year as one rolling CSV and each
// closed fiscal year as an archived CSV. The archives are mirrored on a
// public S3 bucket which tends to be more reliable for bulk pulls, so
// it is tried after the primary host.
const (
	currentURL = "https://sam.gov/api/prod/fileextractservices/v1/api/download/Contract%20Opportunities/datagov/ContractOpportunitiesFullCSV.csv?privacy=Public"

	archivePrimary = "https://sam.gov/api/prod/fileextractservices/v1/api/download/Contract%%20Opportunities/Archived%%20Data/%s?privacy=Public"
	archiveMirror  = "https://falextracts.s3.amazonaws.com/Contract%%20Opportunities/Archived%%20Data/%s"
)

// FirstArchiveYear is the oldest fiscal year SAM.gov publishes an
// archive for.
const FirstArchiveYear = 1998

// CurrentName is the spool filename for the rolling current-year
// extract.
const CurrentName = "ContractOpportunitiesFullCSV.csv"

// CurrentURLs returns candidate URLs for the rolling extract.
func CurrentURLs() []string {
	return []string{currentURL}
}

// ArchiveName returns the published filename for one fiscal year's
// archive.
func ArchiveName(year int) string {
	return fmt.Sprintf("FY%d_archived_opportunities.csv", year)
}

// ArchiveURLs returns candidate URLs for one fiscal year's archive,
// primary host first.
func ArchiveURLs(year int) []string {
	name := ArchiveName(year)
	return []string{
		fmt.Sprintf(archivePrimary, name),
		fmt.Sprintf(archiveMirror, name),
	}
}
