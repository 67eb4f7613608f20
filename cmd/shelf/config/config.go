// Package configcmder provides the config command for managing persistent
// shelf configuration stored in the .shelf/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent shelf configuration.

Configuration is stored as config.toml in the .shelf/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, document.path,
  retrieval.chunk_size, retrieval.chunk_overlap,
  retrieval.max_context_chars, retrieval.index_name,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  vector_store.provider, vector_store.target, vector_store.db_path,
  llm.provider, llm.target, llm.model,
  events.enabled, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  shelf config set <key> <value>    Set a configuration value
  shelf config get <key>            Get a configuration value
  shelf config list                 List all configuration values

Examples:
  shelf config set document.path docs/handbook.txt
  shelf config set embedding.target http://localhost:8000
  shelf config get retrieval.index_name
  shelf config list`

const configShortDesc string = "Manage persistent shelf configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
