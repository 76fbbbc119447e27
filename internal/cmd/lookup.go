package cmd

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cognicore/deid/pkg/deid/lookup"
	"github.com/cognicore/deid/pkg/deid/store"
)

var (
	importTag      string
	importPriority int
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Manage lookup lists stored in --db",
}

var lookupImportCmd = &cobra.Command{
	Use:   "import <list> <file>",
	Short: "Add the lines of a file to a stored lookup list",
	Args:  cobra.ExactArgs(2),
	RunE:  lookupImport,
}

var lookupListCmd = &cobra.Command{
	Use:   "list [list]",
	Short: "Show stored lookup lists, or the values of one list",
	Args:  cobra.MaximumNArgs(1),
	RunE:  lookupList,
}

var lookupDeleteCmd = &cobra.Command{
	Use:   "delete <list>",
	Short: "Delete a stored lookup list",
	Args:  cobra.ExactArgs(1),
	RunE:  lookupDelete,
}

func init() {
	lookupImportCmd.Flags().StringVar(&importTag, "tag", "", "tag overriding the annotator's tag for these values")
	lookupImportCmd.Flags().IntVar(&importPriority, "priority", 0, "priority stored with these values")

	lookupCmd.AddCommand(lookupImportCmd)
	lookupCmd.AddCommand(lookupListCmd)
	lookupCmd.AddCommand(lookupDeleteCmd)
	rootCmd.AddCommand(lookupCmd)
}

func lookupImport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	list, path := args[0], args[1]

	lines, err := lookup.ReadLines(path)
	if err != nil {
		return err
	}

	st, err := requireStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var priority *int
	if cmd.Flags().Changed("priority") {
		priority = &importPriority
	}
	values := make([]store.LookupValue, 0, len(lines))
	for _, l := range lines {
		values = append(values, store.LookupValue{Value: l, Tag: importTag, Priority: priority})
	}
	if err := st.UpsertLookupValues(ctx, list, values); err != nil {
		return err
	}

	log.Info().Str("list", list).Int("values", len(values)).Msg("lookup list imported")
	fmt.Fprintf(cmd.OutOrStdout(), "✓ imported %d values into %s\n", len(values), list)
	return nil
}

func lookupList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	st, err := requireStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		lists, err := st.LookupLists(ctx)
		if err != nil {
			return err
		}
		for _, name := range lists {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	values, err := st.LookupValues(ctx, args[0])
	if err != nil {
		return err
	}
	for _, v := range values {
		line := v.Value
		if v.Tag != "" || v.Priority != nil {
			line += "\t" + v.Tag
		}
		if v.Priority != nil {
			line += "\t" + strconv.Itoa(*v.Priority)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func lookupDelete(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	st, err := requireStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteLookupList(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ deleted %s\n", args[0])
	return nil
}
