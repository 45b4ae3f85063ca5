package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/pchunk/pkg/codec"
	"github.com/ssargent/pchunk/pkg/container"
)

// addSelectionFlags registers the chunk selection flags
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("type", "t", nil, "Only chunks of these types (e.g. IHDR,tEXt)")
	cmd.Flags().IntSliceP("index", "i", nil, "Only chunks at these record indices")
	cmd.Flags().IntP("limit", "n", 0, "At most this many chunks (0 means no limit)")
}

// criteriaFromFlags builds selection criteria from the selection flags
func criteriaFromFlags(cmd *cobra.Command) (container.Criteria, error) {
	var crit container.Criteria

	types, _ := cmd.Flags().GetStringSlice("type")
	for _, name := range types {
		tag, err := codec.ParseTag(name)
		if err != nil {
			return crit, err
		}
		crit.Tags = append(crit.Tags, tag)
	}

	crit.Indices, _ = cmd.Flags().GetIntSlice("index")

	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return crit, fmt.Errorf("--limit must not be negative, got %d", limit)
	}
	crit.Limit = limit

	return crit, nil
}

// loadFile reads and decodes a PNG file using the configured mode
func loadFile(cmd *cobra.Command, path string) (*container.Container, error) {
	cfg := configFrom(cmd)

	mode, err := container.ParseMode(cfg.Parse.Mode)
	if err != nil {
		return nil, err
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	c, err := container.LoadWith(buf, container.Options{Mode: mode})
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	diag := c.Diagnostics()
	if cfg.Debug() && diag.Rejected != nil {
		cmd.PrintErrf("strict decode rejected, using heuristic scan: %v\n", diag.Rejected)
	}
	if cfg.Warnings() && diag.Sparse != nil {
		cmd.PrintErrf("Warning: %v\n", diag.Sparse)
	}

	return c, nil
}

// loadSelected decodes path and applies the selection flags
func loadSelected(cmd *cobra.Command, path string) (*container.Container, error) {
	crit, err := criteriaFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	c, err := loadFile(cmd, path)
	if err != nil {
		return nil, err
	}

	return c.Select(crit)
}
