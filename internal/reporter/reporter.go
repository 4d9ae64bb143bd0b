// Package reporter renders the audit results of a session to files. It
// combines the session, link-graph, duplicate-content and issue reports
// into one document and writes it as JSON or plain text.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"seoaudit/internal/issues"
	"seoaudit/internal/models"
)

// Format selects the report output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// AuditReport is the combined document written to disk. Any of the three
// analysis reports may be nil when that pass was not run.
type AuditReport struct {
	Session     *models.CrawlSession           `json:"session"`
	LinkGraph   *models.LinkGraphReport        `json:"link_graph,omitempty"`
	Duplicates  *models.DuplicateContentReport `json:"duplicate_content,omitempty"`
	Issues      *models.IssueReport            `json:"issues,omitempty"`
	GeneratedAt time.Time                      `json:"generated_at"`
}

// Reporter writes audit reports into a target directory.
type Reporter struct {
	path   string
	format Format
}

// New creates a Reporter. Unknown formats fall back to JSON.
func New(path string, format Format) *Reporter {
	if format != FormatJSON && format != FormatText {
		log.Warn().Str("format", string(format)).Msg("Unknown report format, using json")
		format = FormatJSON
	}
	if path == "" {
		path = "./reports"
	}
	return &Reporter{path: path, format: format}
}

// Write renders the report and returns the path of the written file.
func (r *Reporter) Write(report *AuditReport) (string, error) {
	if report.Session == nil {
		return "", fmt.Errorf("audit report has no session")
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now().UTC()
	}

	if err := os.MkdirAll(r.path, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("audit_%s_%s.%s",
		report.Session.ID,
		report.GeneratedAt.Format("20060102_150405"),
		extension(r.format))
	target := filepath.Join(r.path, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	switch r.format {
	case FormatText:
		err = writeText(f, report)
	default:
		err = writeJSON(f, report)
	}
	if err != nil {
		return "", err
	}

	log.Info().Str("path", target).Str("format", string(r.format)).Msg("Report written")
	return target, nil
}

func extension(format Format) string {
	if format == FormatText {
		return "txt"
	}
	return "json"
}

func writeJSON(w io.Writer, report *AuditReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// writeText renders a human-readable summary. It is deliberately lossy;
// the JSON format is the machine-readable one.
func writeText(w io.Writer, report *AuditReport) error {
	s := report.Session
	fmt.Fprintf(w, "SEO Audit Report\n")
	fmt.Fprintf(w, "================\n\n")
	fmt.Fprintf(w, "Session:       %s\n", s.ID)
	fmt.Fprintf(w, "Domain:        %s\n", s.RootDomain)
	fmt.Fprintf(w, "Status:        %s\n", s.Status)
	fmt.Fprintf(w, "Pages crawled: %d\n", s.PagesCrawled)
	fmt.Fprintf(w, "Generated:     %s\n", report.GeneratedAt.Format(time.RFC3339))

	if g := report.LinkGraph; g != nil {
		fmt.Fprintf(w, "\nLink Graph\n----------\n")
		fmt.Fprintf(w, "Distribution score: %.1f\n", g.DistributionScore)
		fmt.Fprintf(w, "Orphan pages:       %d\n", len(g.OrphanPages))
		fmt.Fprintf(w, "Broken links:       %d\n", len(g.BrokenLinks))
		for _, b := range g.BrokenLinks {
			fmt.Fprintf(w, "  %s -> %s\n", b.SourceURL, b.TargetURL)
		}
	}

	if d := report.Duplicates; d != nil {
		fmt.Fprintf(w, "\nDuplicate Content\n-----------------\n")
		fmt.Fprintf(w, "Pages analyzed: %d\n", d.PagesAnalyzed)
		fmt.Fprintf(w, "Groups found:   %d\n", len(d.Groups))
		for _, grp := range d.Groups {
			fmt.Fprintf(w, "  [%s] similarity %.2f\n", grp.Type, grp.Similarity)
			for _, m := range grp.Members {
				fmt.Fprintf(w, "    %s (%.2f)\n", m.URL, m.Similarity)
			}
		}
	}

	if ir := report.Issues; ir != nil {
		fmt.Fprintf(w, "\nTechnical Issues\n----------------\n")
		fmt.Fprintf(w, "Score:  %.1f / 100\n", ir.Score)
		fmt.Fprintf(w, "Checks: %d / %d passed\n", ir.ChecksPassed, ir.ChecksTotal)
		sorted := make([]models.TechnicalIssue, len(ir.Issues))
		copy(sorted, ir.Issues)
		issues.SortBySeverity(sorted)
		for _, issue := range sorted {
			fmt.Fprintf(w, "  [%s] %s\n", issue.Severity, issue.Description)
			if issue.Recommendation != "" {
				fmt.Fprintf(w, "      -> %s\n", issue.Recommendation)
			}
		}
	}

	return nil
}
