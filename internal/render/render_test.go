package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/pricing"
	"github.com/hpungsan/lanequote/internal/quote"
)

var dubaiRiyadh = quote.Lane{FromCountry: "UAE", FromCity: "dubai", ToCountry: "KSA", ToCity: "riyadh"}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in        string
		estimated bool
		want      string
	}{
		{"0", false, "0.00"},
		{"5500", false, "5,500.00"},
		{"1234.5", false, "1,234.50"},
		{"2500.3", true, "2,500.30 (Estimated)"},
		{"1234567.891", false, "1,234,567.89"},
		{"999.999", false, "1,000.00"},
		{"-1234.5", false, "-1,234.50"},
	}
	for _, tt := range tests {
		got := FormatPrice(decimal.RequireFromString(tt.in), tt.estimated)
		if got != tt.want {
			t.Errorf("FormatPrice(%s, %v) = %q, want %q", tt.in, tt.estimated, got, tt.want)
		}
	}
}

func TestTitleCaseAndLane(t *testing.T) {
	if got := TitleCase("  jane DOE "); got != "Jane Doe" {
		t.Errorf("TitleCase = %q", got)
	}
	lane := quote.Lane{FromCountry: "UAE", FromCity: " abu dhabi", ToCountry: "KSA", ToCity: "riyadh "}
	if got := LaneText(lane); got != "Abu Dhabi, UAE to Riyadh, KSA" {
		t.Errorf("LaneText = %q", got)
	}
}

func TestFileNames(t *testing.T) {
	lane := quote.Lane{FromCountry: "UAE", FromCity: "Abu Dhabi", ToCountry: "KSA", ToCity: "Riyadh"}
	if got := QuoteFileName(lane, false); got != "Quote_Abu_Dhabi_to_Riyadh.html" {
		t.Errorf("found name = %q", got)
	}
	if got := QuoteFileName(lane, true); got != "ESTIMATE_Abu_Dhabi_to_Riyadh.html" {
		t.Errorf("estimate name = %q", got)
	}
	if got := CoverFileName("jane/../doe"); got != "Quote_Cover_Letter_jane_doe.html" {
		t.Errorf("cover name = %q", got)
	}
	if got := SanitizeFileName("../.."); got != "quote" {
		t.Errorf("SanitizeFileName = %q", got)
	}
}

func TestQuote_Found(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	doc, ok, err := r.Quote(QuoteInput{
		ClientSummary: "Acme moves things.",
		PreparedBy:    "jane doe",
		Lane:          dubaiRiyadh,
		TruckType:     "Box - 2 Axle 12M",
		Currency:      "AED",
		Terms:         "Price is valid for 7 days.\nStandard T&Cs apply.",
	}, pricing.Found(decimal.NewFromInt(5500), "AED"))
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, "Quote_dubai_to_riyadh.html", doc.Name)
	require.True(t, strings.HasPrefix(doc.HTML, "<!DOCTYPE html>"))
	require.Contains(t, doc.HTML, "<table>")
	require.Contains(t, doc.HTML, "Dubai, UAE to Riyadh, KSA")
	require.Contains(t, doc.HTML, "5,500.00")
	require.NotContains(t, doc.HTML, "(Estimated)")
	require.Contains(t, doc.HTML, "Jane Doe")
	require.Contains(t, doc.HTML, "Standard Box - 2 Axle 12M transport from dubai to riyadh.")
	require.Contains(t, doc.HTML, "Standard T&amp;Cs apply.")
	require.Contains(t, doc.HTML, "<br")
}

func TestQuote_Estimated(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	res := pricing.Estimated(decimal.RequireFromString("6000"), "AED", decimal.RequireFromString("1200"))
	doc, ok, err := r.Quote(QuoteInput{PreparedBy: "ops", Lane: dubaiRiyadh, TruckType: "Flatbed", Currency: "AED", Scope: "Custom scope"}, res)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ESTIMATE_dubai_to_riyadh.html", doc.Name)
	require.Contains(t, doc.HTML, "6,000.00 (Estimated)")
	require.Contains(t, doc.HTML, "Custom scope")
}

func TestQuote_FailedHasNoDocument(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	_, ok, err := r.Quote(QuoteInput{Lane: dubaiRiyadh}, pricing.Failed(pricing.ReasonNoRate, "AED"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCover(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	doc, err := r.Cover("Client details as provided by user.", "jane doe", "1. Price is valid for 7 days.")
	require.NoError(t, err)
	require.Equal(t, "Quote_Cover_Letter_jane_doe.html", doc.Name)
	require.Contains(t, doc.HTML, BatchScope)
	require.Contains(t, doc.HTML, BatchMultiple)
	require.Contains(t, doc.HTML, BatchSeeSheet)
}

func TestTableCellEscapesPipes(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	doc, err := r.Render("x.html", Fields{Lane: "A | B", TruckType: "T", Currency: "AED", Price: "1.00"})
	require.NoError(t, err)
	require.Contains(t, doc.HTML, "A | B")
}

func TestNew_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tpl.md")
	require.NoError(t, os.WriteFile(path, []byte("Hello **{{.prepared_by}}**, {{.price}}"), 0o600))

	r, err := New(path)
	require.NoError(t, err)
	doc, err := r.Render("x.html", Fields{PreparedBy: "Jane", Price: "1.00"})
	require.NoError(t, err)
	require.Contains(t, doc.HTML, "Hello <strong>Jane</strong>, 1.00")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.md"))
	require.True(t, errors.Is(err, errors.ErrFileNotFound))

	path := filepath.Join(t.TempDir(), "bad.md")
	require.NoError(t, os.WriteFile(path, []byte("{{.price"), 0o600))
	_, err = New(path)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRender_UnknownPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tpl.md")
	require.NoError(t, os.WriteFile(path, []byte("{{.nope}}"), 0o600))

	r, err := New(path)
	require.NoError(t, err)
	_, err = r.Render("x.html", Fields{})
	require.Error(t, err)
}
