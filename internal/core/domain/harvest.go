package domain

// StoredIssue pairs a persisted issue with the cases stored against it.
type StoredIssue struct {
	Issue GazetteIssue
	Cases []CaseRecord
}

// HarvestSummary reports what one run saw and what it persisted.
type HarvestSummary struct {
	Request HarvestRequest

	Pages              int
	DocumentsFetched   int
	DuplicatesSkipped  int
	DownloadFailures   int
	ExtractionFailures int

	BlocksMatched int
	BlocksSkipped int
	BlocksFailed  int

	IssuesStored      int
	CasesStored       int
	CaseStoreFailures int

	Stored []StoredIssue
}

// Cases flattens stored cases in persistence order.
func (s *HarvestSummary) Cases() []CaseRecord {
	var out []CaseRecord
	for _, issue := range s.Stored {
		out = append(out, issue.Cases...)
	}
	return out
}
