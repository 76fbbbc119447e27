package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/deid/pkg/deid"
)

var recordsLimit int

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect redaction records stored in --db",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest redaction records",
	RunE:  recordsList,
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one redaction record",
	Args:  cobra.ExactArgs(1),
	RunE:  recordsShow,
}

func init() {
	recordsListCmd.Flags().IntVar(&recordsLimit, "limit", 20, "maximum number of records")

	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsShowCmd)
	rootCmd.AddCommand(recordsCmd)
}

func openRecords(cmd *cobra.Command) (*deid.Deid, error) {
	st, err := requireStore(commandContext(cmd))
	if err != nil {
		return nil, err
	}
	return deid.New(deid.Options{Store: st}), nil
}

func recordsList(cmd *cobra.Command, args []string) error {
	engine, err := openRecords(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	recs, err := engine.Records(commandContext(cmd), recordsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(recs) == 0 {
		fmt.Fprintln(out, "no records")
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(out, "%s  %s  %-20s %d spans\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Source, len(r.Spans))
	}
	return nil
}

func recordsShow(cmd *cobra.Command, args []string) error {
	engine, err := openRecords(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	r, err := engine.Record(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:      %s\n", r.ID)
	fmt.Fprintf(out, "source:  %s\n", r.Source)
	fmt.Fprintf(out, "created: %s\n", r.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "spans:   %d\n", len(r.Spans))
	for _, s := range r.Spans {
		fmt.Fprintf(out, "  %-12s %5d-%-5d %s\n", s.Tag, s.Start, s.End, s.Label)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, r.Redacted)
	return nil
}
