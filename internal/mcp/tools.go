package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/lanequote/internal/quote"
)

func laneParams() []mcp.ToolOption {
	countries := mcp.Enum(quote.Countries...)
	return []mcp.ToolOption{
		mcp.WithString("from_country", mcp.Required(), countries, mcp.Description("Origin country code")),
		mcp.WithString("from_city", mcp.Required(), mcp.Description("Origin city")),
		mcp.WithString("to_country", mcp.Required(), countries, mcp.Description("Destination country code")),
		mcp.WithString("to_city", mcp.Required(), mcp.Description("Destination city")),
	}
}

func clientParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("client_type", mcp.Enum(quote.ClientExisting, quote.ClientNew)),
		mcp.WithString("client_company", mcp.Description("Client company name; used for the client summary")),
		mcp.WithString("contact_name"),
		mcp.WithString("contact_email"),
		mcp.WithString("contact_phone"),
	}
}

func tool(name, description string, groups ...[]mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(description)}
	for _, g := range groups {
		opts = append(opts, g...)
	}
	return mcp.NewTool(name, opts...)
}

var quoteLaneToolDef = tool("quote_lane",
	"Price one freight lane. Returns the catalogued price, or an estimate of rate per km times driving distance, "+
		"and the rendered HTML quote document when a price exists. Every call is recorded in the request log.",
	laneParams(),
	[]mcp.ToolOption{
		mcp.WithString("truck_type", mcp.Required(), mcp.Description("Truck type, e.g. "+strings.Join(quote.TruckTypes[:3], "; "))),
		mcp.WithString("currency", mcp.Required(), mcp.Description("Quote currency, see quote_currencies")),
		mcp.WithString("prepared_by", mcp.Required(), mcp.Description("Name of the person preparing the quote")),
	},
	clientParams(),
	[]mcp.ToolOption{
		mcp.WithString("scope_summary", mcp.Description("Understanding of scope; defaults to a standard transport sentence")),
		mcp.WithString("client_ops_details", mcp.Description("Client operations description")),
		mcp.WithString("terms_and_conditions", mcp.Description("Overrides the catalogued terms")),
		mcp.WithBoolean("save", mcp.Description("Also write the document into the exports directory")),
	},
)

var quoteBatchToolDef = tool("quote_batch",
	"Price every row of an .xlsx workbook (columns From_Country, From_City, To_Country, To_City, Truck_Type) "+
		"in one currency. Writes the priced workbook and a cover letter into the exports directory.",
	[]mcp.ToolOption{
		mcp.WithString("path", mcp.Required(), mcp.Description("Workbook path; must be directly in the exports directory or an allowed path")),
		mcp.WithString("currency", mcp.Required()),
		mcp.WithString("prepared_by", mcp.Required()),
		mcp.WithBoolean("save", mcp.Description("Write outputs to the exports directory (default true)")),
	},
	clientParams(),
)

var quoteTermsToolDef = tool("quote_terms",
	"Default terms and conditions for a country pair, falling back to the DEFAULT terms.",
	[]mcp.ToolOption{
		mcp.WithString("from_country", mcp.Required()),
		mcp.WithString("to_country", mcp.Required()),
	},
)

var laneDistanceToolDef = tool("lane_distance",
	"Driving distance of a lane in km, from the distance cache or the routing provider.",
	laneParams(),
)

var clientSummaryToolDef = tool("client_summary",
	"Short description of a client company, from the summary cache or the text provider.",
	[]mcp.ToolOption{
		mcp.WithString("company", mcp.Required()),
	},
)

var requestLogToolDef = tool("request_log",
	"Recent quote requests, newest first.",
	[]mcp.ToolOption{
		mcp.WithNumber("limit", mcp.Description("Max rows (default 20, max 100)")),
		mcp.WithNumber("offset"),
	},
)

var quoteCurrenciesToolDef = tool("quote_currencies",
	"Currencies available on the rate card.",
)
