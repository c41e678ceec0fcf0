package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/logging"
	"github.com/hpungsan/lanequote/internal/ops"
	"github.com/hpungsan/lanequote/internal/quote"
	"github.com/hpungsan/lanequote/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(svc *ops.Service) *cli.App {
	app := &cli.App{
		Name:    "lanequote",
		Usage:   "Freight lane quoting",
		Version: Version,
		Commands: []*cli.Command{
			quoteCmd(svc),
			batchCmd(svc),
			termsCmd(svc),
			distanceCmd(svc),
			summaryCmd(svc),
			currenciesCmd(svc),
			importCmd(svc),
			logCmd(svc),
			serveCmd(svc),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func laneFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from-country", Usage: "Origin country code (e.g. UAE)"},
		&cli.StringFlag{Name: "from-city", Usage: "Origin city"},
		&cli.StringFlag{Name: "to-country", Usage: "Destination country code"},
		&cli.StringFlag{Name: "to-city", Usage: "Destination city"},
	}
}

func laneFrom(c *cli.Context) quote.Lane {
	return quote.Lane{
		FromCountry: c.String("from-country"),
		FromCity:    c.String("from-city"),
		ToCountry:   c.String("to-country"),
		ToCity:      c.String("to-city"),
	}
}

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "client-type", Usage: "Existing Client|New Client"},
		&cli.StringFlag{Name: "company", Usage: "Client company name"},
		&cli.StringFlag{Name: "contact-name", Usage: "Client contact name"},
		&cli.StringFlag{Name: "email", Usage: "Client contact email"},
		&cli.StringFlag{Name: "phone", Usage: "Client contact phone"},
	}
}

func clientFrom(c *cli.Context) quote.Client {
	return quote.Client{
		Type:        c.String("client-type"),
		Company:     c.String("company"),
		ContactName: c.String("contact-name"),
		Email:       c.String("email"),
		Phone:       c.String("phone"),
	}
}

// currency returns the --currency flag, else the configured default.
func currency(c *cli.Context, svc *ops.Service) string {
	if v := c.String("currency"); v != "" {
		return v
	}
	return svc.Config.DefaultCurrency
}

func quoteCmd(svc *ops.Service) *cli.Command {
	flags := append(laneFlags(), clientFlags()...)
	flags = append(flags,
		&cli.StringFlag{Name: "truck", Aliases: []string{"t"}, Usage: "Truck type"},
		&cli.StringFlag{Name: "currency", Aliases: []string{"c"}, Usage: "Currency code (defaults to config default_currency)"},
		&cli.StringFlag{Name: "prepared-by", Aliases: []string{"p"}, Usage: "Name printed on the quote"},
		&cli.StringFlag{Name: "scope", Usage: "Scope summary (defaults to a standard transport line)"},
		&cli.StringFlag{Name: "ops", Usage: "Client operations details"},
		&cli.StringFlag{Name: "terms", Usage: "Terms and conditions override"},
		&cli.BoolFlag{Name: "save", Usage: "Write the quote document to the exports directory"},
		&cli.BoolFlag{Name: "html", Usage: "Print the rendered document instead of JSON"},
	)

	return &cli.Command{
		Name:  "quote",
		Usage: "Price one lane and render its quote",
		Flags: flags,
		Action: func(c *cli.Context) error {
			lane := laneFrom(c)
			output, err := svc.Quote(c.Context, ops.QuoteInput{
				FromCountry: lane.FromCountry,
				FromCity:    lane.FromCity,
				ToCountry:   lane.ToCountry,
				ToCity:      lane.ToCity,
				TruckType:   c.String("truck"),
				Currency:    currency(c, svc),
				PreparedBy:  c.String("prepared-by"),
				Client:      clientFrom(c),
				Scope:       c.String("scope"),
				ClientOps:   c.String("ops"),
				Terms:       c.String("terms"),
				Save:        c.Bool("save"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("html") {
				if output.Document == nil {
					return outputError(errors.NewInvalidRequest("no document: " + output.Status))
				}
				_, err := io.WriteString(c.App.Writer, output.Document.HTML)
				return err
			}
			return outputJSON(c, output)
		},
	}
}

func batchCmd(svc *ops.Service) *cli.Command {
	flags := append(clientFlags(),
		&cli.StringFlag{Name: "currency", Aliases: []string{"c"}, Usage: "Currency code (defaults to config default_currency)"},
		&cli.StringFlag{Name: "prepared-by", Aliases: []string{"p"}, Usage: "Name printed on the cover letter"},
		&cli.BoolFlag{Name: "save", Value: true, Usage: "Write the priced workbook and cover letter to the exports directory"},
	)

	return &cli.Command{
		Name:      "batch",
		Usage:     "Price every lane of an .xlsx workbook",
		ArgsUsage: "<path>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("workbook path is required"))
			}

			output, err := svc.Batch(c.Context, ops.BatchInput{
				Path:       c.Args().First(),
				Currency:   currency(c, svc),
				PreparedBy: c.String("prepared-by"),
				Client:     clientFrom(c),
				Save:       c.Bool("save"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func termsCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "terms",
		Usage: "Show the default terms for a country pair",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Origin country code"},
			&cli.StringFlag{Name: "to", Usage: "Destination country code"},
		},
		Action: func(c *cli.Context) error {
			output, err := svc.Terms(c.Context, ops.TermsInput{
				FromCountry: c.String("from"),
				ToCountry:   c.String("to"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func distanceCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "distance",
		Usage: "Resolve the driving distance of a lane",
		Flags: laneFlags(),
		Action: func(c *cli.Context) error {
			output, err := svc.Distance(c.Context, laneFrom(c))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func summaryCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "summary",
		Usage:     "Describe a client company",
		ArgsUsage: "<company>",
		Action: func(c *cli.Context) error {
			output, err := svc.Summary(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func currenciesCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "currencies",
		Usage: "List currencies with a rate card entry",
		Action: func(c *cli.Context) error {
			output, err := svc.Currencies(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func importCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import reference tables from an .xlsx workbook",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "table", Usage: "Import only this table: price_list|rate_list|terms_list"},
			&cli.BoolFlag{Name: "replace", Usage: "Replace existing rows instead of appending"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("workbook path is required"))
			}

			output, err := svc.Import(c.Context, ops.ImportInput{
				Path:    c.Args().First(),
				Table:   c.String("table"),
				Replace: c.Bool("replace"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func logCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "List request log entries, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := svc.Log(c.Context, ops.LogInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

func serveCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(svc, c.String("bind"), c.Int("port"))
			return web.Run(srv, logging.Named("web"))
		},
	}
}

// outputJSON writes result to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	qErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", qErr.Code, qErr.Message), 1)
}
