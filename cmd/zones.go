package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/aqkit/openaq-ingest/ingest"
)

// ZonesMain is wrapped by NewZonesCommand and only exported for
// testing purposes.
var ZonesMain *ingest.ZonesMain

// NewZonesCommand returns a new cobra command wrapping ZonesMain.
func NewZonesCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	ZonesMain = ingest.NewZonesMain()
	zonesCommand := &cobra.Command{
		Use:   "zones",
		Short: "zones - list the configured ingestion zones",
		RunE: func(cmd *cobra.Command, args []string) error {
			ZonesMain.SetOutput(stdout)
			return ZonesMain.Run()
		},
	}
	flags := zonesCommand.Flags()
	if err := commandeer.Flags(flags, ZonesMain); err != nil {
		panic(err)
	}
	return zonesCommand
}

func init() {
	subcommandFns["zones"] = NewZonesCommand
}
