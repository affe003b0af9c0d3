package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/calclabs/mathstream/pkg/mathstream/config"
	"github.com/calclabs/mathstream/pkg/mathstream/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local solved-problem history",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryClearCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		inputType string
		tool      string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List history items, newest first, grouped by age",
		Example: `  mathstream history list
  mathstream history list --input-type latex
  mathstream history list --tool solve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runHistoryList(settings, history.Filter{
				InputType: inputType,
				Tool:      tool,
			})
		},
	}

	cmd.Flags().StringVar(&inputType, "input-type", "", "Filter by input type")
	cmd.Flags().StringVar(&tool, "tool", "", "Filter by tool used")

	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to clear history without --force")
			}
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			store, err := history.NewSQLiteStore(settings.HistoryPath)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Println("history cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation check")

	return cmd
}

func runHistoryList(settings config.Settings, filter history.Filter) error {
	store, err := history.NewSQLiteStore(settings.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	items, err := store.List(filter)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no history items")
		return nil
	}

	grouped := history.Group(items, time.Now())
	printGroup("Today", grouped.Today)
	printGroup("Yesterday", grouped.Yesterday)
	printGroup("Last week", grouped.LastWeek)
	printGroup("Older", grouped.Older)
	return nil
}

func printGroup(title string, items []history.Item) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s:\n", title)
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, item := range items {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
			item.CreatedAt.Format("Jan 02 15:04"), item.Tool, item.Topic, item.Query)
	}
	w.Flush()
}
