package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/camden-git/attendancesys/gallery"
	"github.com/camden-git/attendancesys/repository"
	"github.com/camden-git/attendancesys/services"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage the student roster",
}

var rosterSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Add every gallery identity missing from the roster",
	RunE:  runRosterSync,
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the roster",
	RunE:  runRosterList,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterSyncCmd)
	rosterCmd.AddCommand(rosterListCmd)
}

func runRosterSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	g, err := gallery.Load(a.cfg.GalleryPath)
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}

	roster := services.NewRosterService(repository.NewStudentRepository(a.db), a.logger)
	result, err := roster.SyncFromGallery(cmd.Context(), g)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Roster synced: %d created, %d existing, %d skipped\n",
		result.Created, result.Existing, result.Skipped)
	return nil
}

func runRosterList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	roster := services.NewRosterService(repository.NewStudentRepository(a.db), a.logger)
	students, err := roster.List(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT ID\tNAME")
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\n", s.StudentID, s.Name)
	}
	return w.Flush()
}

