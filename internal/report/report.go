// Package report renders projections as markdown documents.
package report

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"fire/internal/core"
	"fire/internal/projection"
)

//go:embed templates/*.md
var templates embed.FS

var projectionTmpl = template.Must(template.ParseFS(templates, "templates/projection.md"))

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = money.USD

type (
	// Projection is the template view of a projection result.
	Projection struct {
		Title   string
		ROI     string
		Start   int
		End     int
		Streams []StreamLine
		Rows    []RowLine
	}

	StreamLine struct {
		Name           string
		StartYear      int
		EndYear        int
		StartValue     string
		AnnualAddition string
		Increase       string
	}

	RowLine struct {
		Year      int
		Start     string
		Deltas    []string
		Additions string
		Growth    string
		End       string
	}
)

// Amount formats v in currency, rounded to the currency's minor unit.
func Amount(v float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	minor := decimal.NewFromFloat(v).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// Percent formats a fractional rate, 0.07 as "7%".
func Percent(f float64) string {
	return decimal.NewFromFloat(f).Shift(2).Round(4).String() + "%"
}

// NewProjection builds the view of result for the streams of state.
func NewProjection(title string, state core.StoreState, result projection.Result, currency string) Projection {
	p := Projection{
		Title: title,
		ROI:   Percent(state.ROI),
		Start: result.Window.Start,
		End:   result.Window.End,
	}
	for _, s := range projection.Streams(state) {
		p.Streams = append(p.Streams, StreamLine{
			Name:           escape(s.Name),
			StartYear:      s.StartYear,
			EndYear:        s.EndYear,
			StartValue:     Amount(s.StartValue, currency),
			AnnualAddition: Amount(s.AnnualAddition, currency),
			Increase:       Percent(s.AnnualAdditionIncrease),
		})
	}
	for _, r := range result.Rows {
		line := RowLine{
			Year:      r.Year,
			Start:     Amount(r.StartingBalance, currency),
			Additions: Amount(r.AdditionSum, currency),
			Growth:    Amount(r.Growth, currency),
			End:       Amount(r.EndingBalance, currency),
		}
		for _, d := range r.Deltas {
			line.Deltas = append(line.Deltas, Amount(d, currency))
		}
		p.Rows = append(p.Rows, line)
	}
	return p
}

// Markdown renders the projection document.
func (p Projection) Markdown() (string, error) {
	var b strings.Builder
	if err := projectionTmpl.Execute(&b, p); err != nil {
		return "", fmt.Errorf("render projection: %w", err)
	}
	return b.String(), nil
}

// escape keeps user supplied names from breaking table cells.
func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
