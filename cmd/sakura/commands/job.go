package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/sakura"
	"github.com/Somnusochi/auto-novel/sym"
)

// JobCmd inspects and repairs the job queue directly in the database
var JobCmd = &cobra.Command{
	Use:   "job",
	Short: sym.Sakura + " Inspect the job queue",
	Long: sym.Sakura + ` job — Inspect the job queue

These commands read the database directly. Do not run "job release" against a
database a live server is using; its dispatchers own their assignments.

Examples:
  sakura job ls                     # List queued and assigned jobs
  sakura job ls -o yaml             # Same, as YAML
  sakura job rm <id>                # Remove an unassigned job
  sakura job release --all          # Clear assignments after a crash`,
}

var jobLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List jobs in queue order",
	RunE:    runJobLs,
}

var jobRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove an unassigned job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobRm,
}

var jobReleaseCmd = &cobra.Command{
	Use:   "release [id]",
	Short: "Return an assigned job to the queue",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJobRelease,
}

var (
	jobOutput     string
	jobReleaseAll bool
	jobDBPath     string
)

func init() {
	JobCmd.PersistentFlags().StringVar(&jobDBPath, "db-path", "", "Database path (overrides config)")
	jobLsCmd.Flags().StringVarP(&jobOutput, "output", "o", "table", "Output format: table, yaml")
	jobReleaseCmd.Flags().BoolVar(&jobReleaseAll, "all", false, "Release every assigned job")

	JobCmd.AddCommand(jobLsCmd)
	JobCmd.AddCommand(jobRmCmd)
	JobCmd.AddCommand(jobReleaseCmd)
}

func runJobLs(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase(jobDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	jobs, err := sakura.NewJobStore(database).List(cmd.Context())
	if err != nil {
		return err
	}

	switch jobOutput {
	case "yaml":
		data, err := yaml.Marshal(jobs)
		if err != nil {
			return fmt.Errorf("failed to marshal jobs to YAML: %w", err)
		}
		fmt.Print(string(data))
		return nil
	case "table":
	default:
		return fmt.Errorf("unsupported output: %s (supported: table, yaml)", jobOutput)
	}

	if len(jobs) == 0 {
		pterm.Info.Println("Queue is empty")
		return nil
	}

	data := pterm.TableData{{"ID", "TASK", "DESCRIPTION", "SUBMITTER", "WORKER", "AGE"}}
	for _, job := range jobs {
		worker := "-"
		if job.Assigned() {
			worker = shortID(job.WorkerID)
		}
		data = append(data, []string{
			shortID(job.ID),
			job.Task,
			job.Description,
			job.Submitter,
			worker,
			time.Since(job.CreatedAt).Round(time.Second).String(),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runJobRm(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase(jobDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	store := sakura.NewJobStore(database)
	job, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if job.Assigned() {
		return errors.WithHintf(sakura.ErrJobOccupied, "stop worker %s first", job.WorkerID)
	}

	deleted, err := store.Delete(cmd.Context(), job.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return sakura.ErrJobOccupied
	}
	pterm.Success.Printf("Removed %s (%s)\n", job.ID, job.Task)
	return nil
}

func runJobRelease(cmd *cobra.Command, args []string) error {
	if jobReleaseAll == (len(args) == 1) {
		return errors.New("give exactly one of <id> or --all")
	}

	database, _, err := openDatabase(jobDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	store := sakura.NewJobStore(database)
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if jobReleaseAll {
		n, err := store.ReleaseAll(ctx)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Released %d jobs\n", n)
		return nil
	}

	job, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if !job.Assigned() {
		pterm.Info.Printf("%s is not assigned\n", job.ID)
		return nil
	}
	if err := store.Release(ctx, job.ID); err != nil {
		return err
	}
	pterm.Success.Printf("Released %s from worker %s\n", job.ID, shortID(job.WorkerID))
	return nil
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
