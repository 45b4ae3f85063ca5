package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <png>",
		Short: "Write each selected chunk to its own file",
		Long: `Write every selected chunk, serialized as it appears in the file, to
<out>/NNN_TYPE.chunk where NNN is its record index.

Examples:
  pchunk extract image.png --out ./chunks
  pchunk extract image.png --type IDAT`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")
			if outDir == "" {
				outDir = configFrom(cmd).OutputDir
			}

			c, err := loadSelected(cmd, args[0])
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			for _, part := range c.Extract() {
				path := filepath.Join(outDir, part.Name)
				if err := os.WriteFile(path, part.Data, 0600); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				cmd.Printf("%s\t%d bytes\n", path, len(part.Data))
			}

			cmd.Printf("Extracted %d chunks to %s\n", c.Len(), outDir)
			return nil
		},
	}

	addSelectionFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "Output directory (default: output_dir from config)")

	return cmd
}
