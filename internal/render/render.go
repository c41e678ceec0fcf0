// Package render fills the quote document template and converts it to HTML.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/pricing"
	"github.com/hpungsan/lanequote/internal/quote"
)

//go:embed quote.md
var defaultTemplate string

// Batch cover letter placeholders.
const (
	BatchScope    = "Pricing for multiple lanes as requested."
	BatchOps      = "As per the attached batch pricing file."
	BatchMultiple = "Multiple - See attached Excel"
	BatchSeeSheet = "See attached Excel"
)

// DefaultClientOps is the operations text when the caller gives none.
const DefaultClientOps = "..."

// Fields are the template placeholders.
type Fields struct {
	ClientCompanySummary string
	ScopeSummary         string
	ClientOpsDetails     string
	PreparedBy           string
	Lane                 string
	TruckType            string
	Currency             string
	Price                string
	Terms                string
}

func (f Fields) values() map[string]string {
	return map[string]string{
		"client_company_summary": f.ClientCompanySummary,
		"scope_summary":          f.ScopeSummary,
		"client_ops_details":     f.ClientOpsDetails,
		"prepared_by":            f.PreparedBy,
		"lane":                   f.Lane,
		"truck_type":             f.TruckType,
		"currency":               f.Currency,
		"price":                  f.Price,
		"terms_and_conditions":   f.Terms,
	}
}

// Document is a rendered quote.
type Document struct {
	Name string `json:"name"`
	HTML string `json:"html"`
}

// Renderer turns Fields into documents.
type Renderer struct {
	tmpl *template.Template
	md   goldmark.Markdown
}

// New parses the template at path, or the built-in template when path is empty.
func New(path string) (*Renderer, error) {
	text := defaultTemplate
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewFileNotFound(path)
			}
			return nil, errors.NewInternal(err)
		}
		text = string(b)
	}

	tmpl, err := template.New("quote").
		Option("missingkey=error").
		Funcs(template.FuncMap{"cell": tableCell}).
		Parse(text)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid quote template: %v", err))
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	return &Renderer{tmpl: tmpl, md: md}, nil
}

// Render fills the template and wraps the converted Markdown in a standalone
// HTML page.
func (r *Renderer) Render(name string, f Fields) (Document, error) {
	var src bytes.Buffer
	if err := r.tmpl.Execute(&src, f.values()); err != nil {
		return Document{}, fmt.Errorf("fill quote template: %w", err)
	}

	var body bytes.Buffer
	if err := r.md.Convert(src.Bytes(), &body); err != nil {
		return Document{}, fmt.Errorf("convert quote markdown: %w", err)
	}

	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(strings.TrimSuffix(name, ".html")))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	return Document{Name: name, HTML: page.String()}, nil
}

// QuoteInput is what a single-lane document needs besides the price.
type QuoteInput struct {
	ClientSummary string
	Scope         string
	ClientOps     string
	PreparedBy    string
	Lane          quote.Lane
	TruckType     string
	Currency      string
	Terms         string
}

// Quote renders the document for a priced lane. Failed results have no document.
func (r *Renderer) Quote(in QuoteInput, res pricing.Result) (Document, bool, error) {
	if !res.HasPrice() {
		return Document{}, false, nil
	}

	scope := in.Scope
	if strings.TrimSpace(scope) == "" {
		scope = DefaultScope(in.TruckType, in.Lane)
	}
	clientOps := in.ClientOps
	if strings.TrimSpace(clientOps) == "" {
		clientOps = DefaultClientOps
	}

	doc, err := r.Render(QuoteFileName(in.Lane, res.Kind == pricing.KindEstimated), Fields{
		ClientCompanySummary: in.ClientSummary,
		ScopeSummary:         scope,
		ClientOpsDetails:     clientOps,
		PreparedBy:           TitleCase(in.PreparedBy),
		Lane:                 LaneText(in.Lane),
		TruckType:            in.TruckType,
		Currency:             in.Currency,
		Price:                FormatPrice(res.Price, res.Kind == pricing.KindEstimated),
		Terms:                in.Terms,
	})
	if err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}

// Cover renders the batch cover letter.
func (r *Renderer) Cover(clientSummary, preparedBy, terms string) (Document, error) {
	return r.Render(CoverFileName(preparedBy), Fields{
		ClientCompanySummary: clientSummary,
		ScopeSummary:         BatchScope,
		ClientOpsDetails:     BatchOps,
		PreparedBy:           TitleCase(preparedBy),
		Lane:                 BatchMultiple,
		TruckType:            BatchMultiple,
		Currency:             BatchSeeSheet,
		Price:                BatchSeeSheet,
		Terms:                terms,
	})
}

// DefaultScope is the scope text when the caller gives none.
func DefaultScope(truckType string, lane quote.Lane) string {
	lane = lane.Trimmed()
	return fmt.Sprintf("Standard %s transport from %s to %s.", strings.TrimSpace(truckType), lane.FromCity, lane.ToCity)
}

var titler = cases.Title(language.Und)

// TitleCase upper-cases the first letter of every word and lower-cases the rest.
func TitleCase(s string) string {
	return titler.String(strings.TrimSpace(s))
}

// LaneText renders "Dubai, UAE to Riyadh, KSA".
func LaneText(l quote.Lane) string {
	l = l.Trimmed()
	return fmt.Sprintf("%s, %s to %s, %s", TitleCase(l.FromCity), l.FromCountry, TitleCase(l.ToCity), l.ToCountry)
}

// FormatPrice renders a price with two decimals and thousands separators.
func FormatPrice(price decimal.Decimal, estimated bool) string {
	s := groupThousands(price.StringFixed(2))
	if estimated {
		s += " (Estimated)"
	}
	return s
}

func groupThousands(s string) string {
	if strings.HasPrefix(s, "-") {
		return "-" + groupThousands(s[1:])
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(whole) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// QuoteFileName is Quote_<from>_to_<to>.html, or ESTIMATE_... for estimates.
func QuoteFileName(l quote.Lane, estimated bool) string {
	prefix := "Quote"
	if estimated {
		prefix = "ESTIMATE"
	}
	l = l.Trimmed()
	return SanitizeFileName(fmt.Sprintf("%s_%s_to_%s", prefix, l.FromCity, l.ToCity)) + ".html"
}

// CoverFileName is Quote_Cover_Letter_<prepared_by>.html.
func CoverFileName(preparedBy string) string {
	return SanitizeFileName("Quote_Cover_Letter_"+strings.TrimSpace(preparedBy)) + ".html"
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// SanitizeFileName replaces runs of characters that are unsafe in file names
// with a single underscore.
func SanitizeFileName(name string) string {
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_-")
	if name == "" {
		return "quote"
	}
	return name
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
