package report

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/aristath/carbonscreen/internal/modules/portfolio"
	"github.com/aristath/carbonscreen/internal/modules/risk"
	"github.com/aristath/carbonscreen/internal/modules/scoring"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var printer = message.NewPrinter(language.English)

var reportTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"num":      formatCount,
	"score":    scoring.FormatScore,
	"pct":      func(v float64) string { return printer.Sprintf("%.1f%%", v) },
	"mt":       func(v float64) string { return printer.Sprintf("%.2f", v) },
	"date":     func(t time.Time) string { return formatDate(t) },
	"datetime": formatDateTime,
}).ParseFS(templatesFS, "templates/report.html.tmpl"))

// ChartLink is a chart embedded in the report
type ChartLink struct {
	Title string
	Href  string
}

// Document is the data behind report.html
type Document struct {
	Run         RunInfo
	Summary     portfolio.Summary
	Flags       []risk.FlagStat
	Methodology Methodology
	Charts      []ChartLink
	Dropped     int
}

// WriteHTML renders the HTML report
func WriteHTML(w io.Writer, doc Document) error {
	return reportTemplate.Execute(w, doc)
}

// formatCount renders an integer with thousands separators
func formatCount(v interface{}) string {
	return printer.Sprintf("%d", v)
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}
