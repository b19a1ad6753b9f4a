package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/aqkit/openaq-ingest/ingest"
)

// IngestMain is wrapped by NewIngestCommand and only exported for
// testing purposes.
var IngestMain *ingest.Main

// NewIngestCommand returns a new cobra command wrapping IngestMain.
func NewIngestCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	IngestMain = ingest.NewMain()
	ingestCommand := &cobra.Command{
		Use:   "ingest",
		Short: "ingest - pull OpenAQ data for each configured zone into the bronze layer",
		Long: `Runs the three-stage pipeline (locations, sensors, measurements) for
every configured zone over the requested time window. With a bucket
configured, artifacts go to S3; otherwise they land under the output
directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := IngestMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := ingestCommand.Flags()
	if err := commandeer.Flags(flags, IngestMain); err != nil {
		panic(err)
	}
	return ingestCommand
}

func init() {
	subcommandFns["ingest"] = NewIngestCommand
}
