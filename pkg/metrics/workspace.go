package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppecheck/ppecheck/pkg/model"
)

// RecordLister is satisfied by the record archive.
type RecordLister interface {
	ListAll() ([]*model.InspectionRecord, error)
}

// DraftLister is satisfied by the draft store.
type DraftLister interface {
	List() ([]*model.InspectionSession, error)
}

// WorkspaceCollector reports archived records and open drafts at scrape
// time, so the numbers survive process restarts.
type WorkspaceCollector struct {
	records RecordLister
	drafts  DraftLister

	recordsDesc *prometheus.Desc
	draftsDesc  *prometheus.Desc
}

// NewWorkspaceCollector returns a collector over the given stores.
func NewWorkspaceCollector(records RecordLister, drafts DraftLister) *WorkspaceCollector {
	return &WorkspaceCollector{
		records: records,
		drafts:  drafts,
		recordsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "records"),
			"Archived inspection records, labeled by outcome.",
			[]string{"outcome"}, nil),
		draftsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "drafts_open"),
			"Sessions saved as drafts and not yet submitted.",
			nil, nil),
	}
}

func (c *WorkspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.recordsDesc
	ch <- c.draftsDesc
}

func (c *WorkspaceCollector) Collect(ch chan<- prometheus.Metric) {
	counts := map[model.Outcome]int{
		model.OutcomeSuccess:           0,
		model.OutcomeSuccessWithIssues: 0,
	}
	if recs, err := c.records.ListAll(); err != nil {
		ch <- prometheus.NewInvalidMetric(c.recordsDesc, err)
	} else {
		for _, r := range recs {
			counts[r.Outcome]++
		}
		for outcome, n := range counts {
			ch <- prometheus.MustNewConstMetric(c.recordsDesc, prometheus.GaugeValue, float64(n), string(outcome))
		}
	}

	// Unreadable drafts are still reported by the lister alongside an
	// error; count what could be read.
	sessions, _ := c.drafts.List()
	open := 0
	for _, s := range sessions {
		if !s.Submitted() {
			open++
		}
	}
	ch <- prometheus.MustNewConstMetric(c.draftsDesc, prometheus.GaugeValue, float64(open))
}
