package node

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spectrumscale/scale-go/common/kvstore"
)

const (
	journalPrefix    = "batch/"
	journalKeyLayout = "20060102T150405.000000000Z"
)

var ErrReportNotFound = errors.New("batch report not found")

// Journal keeps the reports of finished batches in a local key/value store. Keys sort by the time
// the batch started so reports can be listed newest first.
type Journal struct {
	store *kvstore.MapStore[BatchReport]
}

func NewJournal(store *kvstore.MapStore[BatchReport]) *Journal {
	return &Journal{store: store}
}

func journalKey(r BatchReport) string {
	return journalPrefix + r.Started.UTC().Format(journalKeyLayout) + "/" + r.ID
}

func (j *Journal) Record(report BatchReport) error {
	if report.ID == "" {
		return fmt.Errorf("unable to record batch report without an ID")
	}
	return j.store.Set(journalKey(report), report)
}

// List returns up to limit reports, newest first. A limit of zero or less returns all reports.
func (j *Journal) List(limit int) ([]BatchReport, error) {
	entries, err := j.store.List(journalPrefix, limit, true)
	if err != nil {
		return nil, err
	}
	reports := make([]BatchReport, 0, len(entries))
	for _, e := range entries {
		reports = append(reports, e.Value)
	}
	return reports, nil
}

// Get returns the report whose ID starts with idPrefix. The prefix must identify exactly one report.
func (j *Journal) Get(idPrefix string) (BatchReport, error) {
	if idPrefix == "" {
		return BatchReport{}, fmt.Errorf("%w: no batch ID specified", ErrReportNotFound)
	}
	entries, err := j.store.List(journalPrefix, 0, true)
	if err != nil {
		return BatchReport{}, err
	}
	matches := []BatchReport{}
	for _, e := range entries {
		if strings.HasPrefix(e.Value.ID, idPrefix) {
			matches = append(matches, e.Value)
		}
	}
	switch len(matches) {
	case 0:
		return BatchReport{}, fmt.Errorf("%w: %s", ErrReportNotFound, idPrefix)
	case 1:
		return matches[0], nil
	default:
		return BatchReport{}, fmt.Errorf("batch ID %q is ambiguous and matches %d reports", idPrefix, len(matches))
	}
}
