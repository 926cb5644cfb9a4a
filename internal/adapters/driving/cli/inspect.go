package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

var (
	inspectLimit int
	inspectIndex string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Describe an embedding archive",
	Long: `Prints the record count, the vector dimensions and the chunk names
stored in an archive written by embed.

With --index, also reports the run held by a SQLite index written by embed
and whether it matches the archive.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationNoSettings: "true"},
	RunE:        runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 0, "print at most this many names (0 prints all)")
	inspectCmd.Flags().StringVar(&inspectIndex, "index", "", "SQLite index to compare with the archive")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	if deps.Archives == nil {
		return errors.New("archive reader not configured")
	}

	store, err := deps.Archives.Read(args[0])
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	cmd.Printf("Archive:    %s\n", args[0])
	cmd.Printf("Records:    %d\n", store.Len())
	cmd.Printf("Dimensions: %d\n", store.Dimensions)

	if inspectIndex != "" {
		if err := inspectIndexFile(cmd, inspectIndex, store); err != nil {
			return err
		}
	}

	if store.Len() == 0 {
		return nil
	}

	cmd.Println()
	names := store.Names()
	shown := len(names)
	if inspectLimit > 0 && inspectLimit < shown {
		shown = inspectLimit
	}
	for i, name := range names[:shown] {
		cmd.Printf("%6d  %s\n", i, name)
	}
	if shown < len(names) {
		cmd.Printf("        ... %d more\n", len(names)-shown)
	}
	return nil
}

// inspectIndexFile prints the indexed run and compares its records with store.
func inspectIndexFile(cmd *cobra.Command, path string, store *domain.EmbeddingStore) error {
	if deps.OpenIndex == nil {
		return errors.New("index not configured")
	}

	index, err := deps.OpenIndex(path)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer index.Close()

	cmd.Println()
	cmd.Printf("Index:      %s\n", path)

	run, err := index.LatestRun(cmd.Context())
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Println("Run:        (empty)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	records, err := index.Records(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	cmd.Printf("Run:        %s\n", run.ID)
	if run.Model != "" {
		cmd.Printf("Model:      %s\n", run.Model)
	}
	cmd.Printf("Indexed:    %d records, %d dimensions\n", len(records), run.Dimensions)

	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	if run.Dimensions == store.Dimensions && slices.Equal(names, store.Names()) {
		cmd.Println("In sync:    yes")
	} else {
		cmd.Println("In sync:    no")
	}
	return nil
}
