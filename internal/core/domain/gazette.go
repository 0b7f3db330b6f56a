package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// GazetteIssue is one downloaded DJE document with its extracted text.
type GazetteIssue struct {
	ID               string `json:"id"`
	SourceURL        string `json:"source_url"`
	AvailabilityDate *Date  `json:"availability_date,omitempty"`
	FullText         string `json:"-"`
}

// CaseRecord is one matching case entry extracted from an issue.
type CaseRecord struct {
	ProcessNumber          string  `json:"process_number"`
	AvailabilityDate       *Date   `json:"availability_date,omitempty"`
	Authors                *string `json:"authors,omitempty"`
	Lawyers                *string `json:"lawyers,omitempty"`
	PrincipalAmount        *string `json:"principal_amount,omitempty"`
	MoratoryInterestAmount *string `json:"moratory_interest_amount,omitempty"`
	AttorneyFeesAmount     *string `json:"attorney_fees_amount,omitempty"`
}

// CaseStoredEvent is published after a case row is committed.
type CaseStoredEvent struct {
	EventID          string    `json:"event_id"`
	IssueID          string    `json:"issue_id"`
	ProcessNumber    string    `json:"process_number"`
	AvailabilityDate string    `json:"availability_date"`
	SourceURL        string    `json:"source_url"`
	StoredAt         time.Time `json:"stored_at"`
}

// HarvestRequest describes one batch run over the DJE search.
type HarvestRequest struct {
	DateStart   string `json:"date_start"`
	DateEnd     string `json:"date_end"`
	SectionCode string `json:"section_code"`
	QueryTerm   string `json:"query_term"`
}

func (r HarvestRequest) Validate() error {
	start, err := ParseCanonicalDate(r.DateStart)
	if err != nil {
		return WrapError(ErrInvalidInput, "validate date_start", err)
	}
	end, err := ParseCanonicalDate(r.DateEnd)
	if err != nil {
		return WrapError(ErrInvalidInput, "validate date_end", err)
	}
	if start.After(end) {
		return WrapError(ErrInvalidInput, "validate date range", fmt.Errorf("%s is after %s", start, end))
	}
	if strings.TrimSpace(r.SectionCode) == "" {
		return WrapError(ErrInvalidInput, "validate section_code", errors.New("section code is required"))
	}
	if strings.TrimSpace(r.QueryTerm) == "" {
		return WrapError(ErrInvalidInput, "validate query_term", errors.New("query term is required"))
	}
	return nil
}
