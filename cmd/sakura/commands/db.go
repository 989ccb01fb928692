package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Somnusochi/auto-novel/sakura"
	"github.com/Somnusochi/auto-novel/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the Sakura database",
	Long: sym.DB + ` db — Manage the Sakura database

Examples:
  sakura db migrate                 # Apply pending migrations
  sakura db stats                   # Show queue figures`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

var dbPathFlag string

func init() {
	DbCmd.PersistentFlags().StringVar(&dbPathFlag, "db-path", "", "Database path (overrides config)")
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	database, path, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	pterm.Success.Printf("%s is up to date\n", path)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	database, path, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	jobs, err := sakura.NewJobStore(database).List(cmd.Context())
	if err != nil {
		return err
	}
	assigned := 0
	for _, job := range jobs {
		if job.Assigned() {
			assigned++
		}
	}

	var webNovels, wenkuNovels int
	if err := database.QueryRowContext(cmd.Context(), `SELECT COUNT(*) FROM web_novels`).Scan(&webNovels); err != nil {
		return err
	}
	if err := database.QueryRowContext(cmd.Context(), `SELECT COUNT(*) FROM wenku_novels`).Scan(&wenkuNovels); err != nil {
		return err
	}

	pterm.DefaultSection.Printf("%s Database Statistics", sym.DB)
	return pterm.DefaultTable.WithData(pterm.TableData{
		{"Path", path},
		{"Jobs", pterm.Sprint(len(jobs))},
		{"Assigned", pterm.Sprint(assigned)},
		{"Web novels", pterm.Sprint(webNovels)},
		{"Wenku novels", pterm.Sprint(wenkuNovels)},
	}).Render()
}
