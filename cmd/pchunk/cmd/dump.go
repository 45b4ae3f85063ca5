package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/pchunk/pkg/codec"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <png>",
		Short: "Rebuild a PNG from the selected chunks",
		Long: `Write the signature followed by every selected chunk, unchanged, to a
new file or into the archive.

Examples:
  pchunk dump image.png --out stripped.png --type IHDR,IDAT,IEND
  pchunk dump broken.png --archive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			toArchive, _ := cmd.Flags().GetBool("archive")
			if out == "" && !toArchive {
				return fmt.Errorf("one of --out or --archive is required")
			}

			c, err := loadSelected(cmd, args[0])
			if err != nil {
				return err
			}
			data := c.Render()

			if out != "" {
				if err := os.WriteFile(out, data, 0600); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				cmd.Printf("Wrote %d chunks (%d bytes) to %s\n", c.Len(), len(data), out)
			}

			if toArchive {
				id, err := archivePut(cmd, data, c.Types())
				if err != nil {
					return err
				}
				cmd.Printf("Archived %d chunks as %s\n", c.Len(), id)
			}

			return nil
		},
	}

	addSelectionFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "Output file")
	cmd.Flags().Bool("archive", false, "Store the rebuilt file in the archive")

	return cmd
}

// archivePut stores data in the configured archive, indexed by types, and
// returns its id
func archivePut(cmd *cobra.Command, data []byte, types []codec.Tag) (string, error) {
	if deps == nil {
		return "", fmt.Errorf("dependency container not initialized")
	}

	store, err := deps.GetArchiveOpener()(configFrom(cmd).Archive.Dir)
	if err != nil {
		return "", err
	}
	defer store.Close()

	id, err := store.Put(data, types...)
	if err != nil {
		return "", fmt.Errorf("failed to archive: %w", err)
	}
	return id.String(), nil
}
