package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Somnusochi/auto-novel/catalog"
	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/sym"
)

// CatalogCmd manages the novels that tasks may point at
var CatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: sym.DB + " Manage the novel catalog",
	Long: sym.DB + ` catalog — Manage the novel catalog

A task is accepted only when the novel (and, for wenku tasks, the volume) is
in the catalog. Seed files are TOML:

  [[web]]
  provider = "kakuyomu"
  novel = "1177354054881165840"
  title_jp = "..."

  [[wenku]]
  novel = "42"
  title = "..."
  volumes = ["vol1.epub"]

Examples:
  sakura catalog import works.toml`,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Upsert every novel in a TOML seed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

var catalogDBPath string

func init() {
	CatalogCmd.PersistentFlags().StringVar(&catalogDBPath, "db-path", "", "Database path (overrides config)")
	CatalogCmd.AddCommand(catalogImportCmd)
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	seed, err := catalog.LoadSeed(args[0])
	if err != nil {
		return err
	}

	database, _, err := openDatabase(catalogDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	result, err := catalog.NewStore(database).Import(cmd.Context(), seed)
	if err != nil {
		return errors.Wrapf(err, "failed to import %s", args[0])
	}

	pterm.Success.Printf("Imported %s\n", args[0])
	pterm.Printf("  Web novels:   %d\n", result.WebNovels)
	pterm.Printf("  Wenku novels: %d\n", result.WenkuNovels)
	pterm.Printf("  Volumes:      %d\n", result.Volumes)
	return nil
}
