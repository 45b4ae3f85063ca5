package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ssargent/pchunk/pkg/container"
)

type infoOutput struct {
	File    string            `json:"file"`
	Summary container.Summary `json:"summary"`
	Chunks  []container.Row   `json:"chunks"`
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <png>",
		Short: "List the chunks of a PNG file",
		Long: `List every chunk with its offset, declared size, data length and CRC.
Chunks whose stored CRC does not match their contents are flagged.

Examples:
  pchunk info image.png
  pchunk info image.png --type tEXt,zTXt --text
  pchunk info broken.png --mode heuristic --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			showText, _ := cmd.Flags().GetBool("text")

			c, err := loadSelected(cmd, args[0])
			if err != nil {
				return err
			}

			out := infoOutput{
				File:    args[0],
				Summary: c.Summary(),
				Chunks:  c.ReportWith(container.ReportOptions{Text: showText}),
			}
			switch format {
			case "json":
				return outputInfoJSON(cmd.OutOrStdout(), out)
			case "table":
				return outputInfoTable(cmd.OutOrStdout(), out, showText, configFrom(cmd).Debug())
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
		},
	}

	addSelectionFlags(cmd)
	cmd.Flags().StringP("format", "f", "table", "Output format: table or json")
	cmd.Flags().Bool("text", false, "Decode and show tEXt, zTXt and iTXt contents")

	return cmd
}

func outputInfoJSON(w io.Writer, out infoOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// outputInfoTable prints one line per chunk; No is 1-based like the listing
// users know, Offset is where the type tag starts. The strict rejection is
// printed only with debug set.
func outputInfoTable(w io.Writer, out infoOutput, showText, debug bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := "No\tType\tOffset\tSize\tData Length\tCRC\tStatus"
	if showText {
		header += "\tText"
	}
	fmt.Fprintln(tw, header)

	for _, row := range out.Chunks {
		status := "ok"
		if !row.Valid {
			status = fmt.Sprintf("BAD (want %08x)", row.Expected)
		}
		fmt.Fprintf(tw, "%d\t%s\t%#x\t%d\t%d\t%08x\t%s",
			row.Index+1, row.Type, row.Offset, row.Length, row.DataLength, row.CRC, status)
		if showText {
			fmt.Fprintf(tw, "\t%s", textColumn(row))
		}
		fmt.Fprintln(tw)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	s := out.Summary
	fmt.Fprintf(w, "\n%d chunks, %d invalid, %d bytes, %s decode\n", s.Chunks, s.Invalid, s.FileSize, s.Strategy)
	if debug && s.Fallback != "" {
		fmt.Fprintf(w, "strict decode rejected: %s\n", s.Fallback)
	}
	return nil
}

func textColumn(row container.Row) string {
	switch {
	case row.TextError != "":
		return "error: " + row.TextError
	case row.Text == nil:
		return ""
	case row.Text.Language != "":
		return fmt.Sprintf("%s [%s]: %q", row.Text.Keyword, row.Text.Language, row.Text.Value)
	default:
		return fmt.Sprintf("%s: %q", row.Text.Keyword, row.Text.Value)
	}
}
