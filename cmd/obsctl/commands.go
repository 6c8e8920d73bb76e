package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/sea-ice-obs/internal/adapter/sqlite"
	"github.com/couchcryptid/sea-ice-obs/internal/codec"
	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/couchcryptid/sea-ice-obs/internal/importer"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// errRowsRejected signals a non-zero exit after the row errors were printed.
var errRowsRejected = errors.New("rows rejected")

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE",
		Short: "Print the format a file would be decoded as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), codec.Detect(args[0], content))
			return nil
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Decode a file and report every rejected row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0])
			if err != nil {
				return err
			}
			res := codec.Decode(args[0], content)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Format:   %s\n", res.Format)
			if res.Voyage != nil && res.Voyage.Name != "" {
				fmt.Fprintf(out, "Voyage:   %s\n", res.Voyage.Name)
			}
			fmt.Fprintf(out, "Accepted: %d\n", len(res.Observations))
			fmt.Fprintf(out, "Rejected: %d\n", len(res.Errors))
			if res.OK() {
				return nil
			}
			fmt.Fprintln(out, renderRowErrors(res.Errors))
			return fmt.Errorf("%s: %w: %d", args[0], errRowsRejected, len(res.Errors))
		},
	}
}

func newConvertCommand() *cobra.Command {
	var to, outPath string

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Convert a file to another format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := codec.ParseFormat(to)
			if err != nil {
				return err
			}
			content, err := readInput(args[0])
			if err != nil {
				return err
			}

			res := codec.Decode(args[0], content)
			if !res.OK() {
				fmt.Fprintln(cmd.ErrOrStderr(), renderRowErrors(res.Errors))
				return fmt.Errorf("%s: %w: %d", args[0], errRowsRejected, len(res.Errors))
			}

			encoded, err := codec.Encode(format, res.Voyage, res.Observations)
			if err != nil {
				return err
			}
			return writeOutput(cmd, outPath, encoded)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target format: tabular, aspect or report")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (default: stdout)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newImportCommand(c *commandContext) *cobra.Command {
	var voyageID string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a file into the record store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *importer.Service, _ *sqlite.Store) error {
				report, err := svc.Import(ctx, importer.ImportRequest{
					VoyageID: voyageID,
					Filename: args[0],
					Content:  content,
				})
				if err != nil {
					reportImportFailure(cmd.ErrOrStderr(), report, err)
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d observations (%s) into voyage %s\n",
					report.Persisted, report.Format, report.VoyageID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&voyageID, "voyage", "", "Target voyage id (default: voyage named in the file)")
	return cmd
}

// reportImportFailure prints what a failed import left behind: the row errors
// of a rejected batch, or how far a store failure got.
func reportImportFailure(w io.Writer, report importer.ImportReport, err error) {
	switch {
	case errors.Is(err, importer.ErrImportRejected):
		fmt.Fprintln(w, renderRowErrors(report.Errors))
	case errors.Is(err, importer.ErrPersistFailed):
		fmt.Fprintf(w, "Persisted %d of %d before failure into voyage %s\n",
			report.Persisted, report.Accepted, report.VoyageID)
		for _, id := range report.IDs {
			fmt.Fprintln(w, "  "+id)
		}
	}
}

func newExportCommand(c *commandContext) *cobra.Command {
	var formatName, outPath string

	cmd := &cobra.Command{
		Use:   "export VOYAGE_ID",
		Short: "Export a voyage's observations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := codec.ParseFormat(formatName)
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *importer.Service, _ *sqlite.Store) error {
				out, err := svc.Export(ctx, args[0], format)
				if err != nil {
					return err
				}
				return writeOutput(cmd, outPath, out.Content)
			})
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", "tabular", "Output format: tabular, aspect or report")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (default: stdout)")
	return cmd
}

func newVoyagesCommand(c *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "voyages",
		Short: "List stored voyages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, _ *importer.Service, st *sqlite.Store) error {
				voyages, err := st.ListVoyages(ctx)
				if err != nil {
					return err
				}
				if len(voyages) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No voyages.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderVoyages(voyages))
				return nil
			})
		},
	}
}

func renderRowErrors(errs []domain.RowError) string {
	rows := make([]table.Row, len(errs))
	for i, e := range errs {
		rows[i] = table.Row{e.Line, e.Field, e.Kind, e.Message}
	}
	return renderTable(table.Row{"Line", "Field", "Kind", "Message"}, rows, 1)
}

func renderVoyages(voyages []domain.Voyage) string {
	rows := make([]table.Row, len(voyages))
	for i, v := range voyages {
		rows[i] = table.Row{v.ID, v.Name, v.Vessel, v.CreatedAt.Format("2006-01-02 15:04")}
	}
	return renderTable(table.Row{"ID", "Name", "Vessel", "Created"}, rows)
}
