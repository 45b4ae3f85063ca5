package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newRepairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair <png>",
		Short: "Recompute chunk CRCs and write a fixed PNG",
		Long: `Recompute the CRC of every selected chunk from its type and data and
write the result. Lengths and data are left untouched.

Examples:
  pchunk repair broken.png
  pchunk repair broken.png --out fixed.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = repairedName(args[0])
			}

			c, err := loadSelected(cmd, args[0])
			if err != nil {
				return err
			}

			for _, ch := range c.Invalid() {
				cmd.Printf("Fixing chunk %d (%s) CRC %08x\n", ch.Index, ch.Type, ch.CRC)
			}

			data := c.RepairAll().Render()
			if err := os.WriteFile(out, data, 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}

			cmd.Printf("Repaired %d of %d chunks, wrote %s\n", len(c.Invalid()), c.Len(), out)
			return nil
		},
	}

	addSelectionFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "Output file (default: <png>.repaired.png)")

	return cmd
}

func repairedName(path string) string {
	return strings.TrimSuffix(path, ".png") + ".repaired.png"
}
