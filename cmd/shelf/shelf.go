// Package shelfcmder
package shelfcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/shelf/cmd/shelf/ask"
	configcmder "github.com/papercomputeco/shelf/cmd/shelf/config"
	ingestcmder "github.com/papercomputeco/shelf/cmd/shelf/ingest"
	servecmder "github.com/papercomputeco/shelf/cmd/shelf/serve"
	versioncmder "github.com/papercomputeco/shelf/cmd/version"
)

const shelfLongDesc string = `Shelf answers questions about a document.

Point it at a plain-text document and it chunks, embeds, and indexes the
text, then serves retrieval and question answering over it:
  shelf ingest         Index the configured document
  shelf ask            Answer a question from the terminal
  shelf serve          Run the API server
  shelf config         Manage persistent configuration`

const shelfShortDesc string = "Shelf - document question answering"

func NewShelfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelf",
		Short: shelfShortDesc,
		Long:  shelfLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing the .shelf/ config (default: walk up from cwd)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
