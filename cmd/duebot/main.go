package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "duebot",
	Short: "duebot — track assignment due dates, grades, and weekly plans",
	Long: `duebot ingests assignment CSVs into a deduplicated store and answers
questions about due dates, remaining work, and weighted course grades.

Run "duebot start" to launch the server, then query it:
  duebot upload assignments.csv
  duebot due today
  duebot grade CS101`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Secrets (Notion token, Discord webhook, ...) may live in a
		// local .env file; absence is fine.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.Version = version

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(examsCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(todoCmd)
	rootCmd.AddCommand(remainingCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
