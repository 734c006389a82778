package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/scribe/internal/handlers"
)

var reingestSource string

var reingestCmd = &cobra.Command{
	Use:   "reingest",
	Short: "Reingest the configured Confluence spaces and SharePoint folders",
	RunE:  runReingest,
}

var chaseCmd = &cobra.Command{
	Use:   "chase",
	Short: "Scan open Jira tickets and record follow-ups",
	RunE:  runChase,
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Write the daily progress summaries of the configured Jira components",
	RunE:  runProgress,
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Mail open follow-up reminders",
	RunE:  runDispatch,
}

func init() {
	reingestCmd.Flags().StringVarP(&reingestSource, "source", "s", "", "Only reingest this source (confluence or sharepoint)")
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runReingest(cmd *cobra.Command, args []string) error {
	application, err := newOneShotApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ran := 0
	var errs []error
	for _, pipeline := range application.Reingesters() {
		if reingestSource != "" && !strings.EqualFold(pipeline.Source(), reingestSource) {
			continue
		}
		ran++

		results, err := pipeline.Reingest(ctx)
		for _, result := range results {
			fmt.Printf("%-10s %-30s listed=%d inserted=%d replaced=%d skipped=%d failed=%d chunks=%d\n",
				pipeline.Source(), result.Scope, result.Listed, result.Inserted, result.Replaced,
				result.Skipped, result.Failed, result.Chunks)
		}
		if err != nil {
			logger.Error().Str("source", pipeline.Source()).Err(err).Msg("Reingest failed")
			errs = append(errs, err)
		}
	}

	if ran == 0 {
		return application.Unavailable(handlers.OperationReingest, "no document source configured")
	}
	return errors.Join(errs...)
}

func runChase(cmd *cobra.Command, args []string) error {
	application, err := newOneShotApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if application.Chaser == nil {
		return application.Unavailable(handlers.OperationChase, "jira is not configured")
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := application.Chaser.Chase(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("scanned=%d processed=%d skipped=%d failed=%d followups=%d\n",
		result.Scanned, result.Processed, result.Skipped, result.Failed, result.Followups)
	return nil
}

func runProgress(cmd *cobra.Command, args []string) error {
	application, err := newOneShotApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if application.Progress == nil {
		return application.Unavailable(handlers.OperationProgress, "jira is not configured")
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := application.Progress.Reingest(ctx); err != nil {
		return err
	}

	for _, component := range application.Progress.Components() {
		table, err := application.Progress.GetSummaries(ctx, component, 7)
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n\n%s\n", component, table)
	}
	return nil
}

func runDispatch(cmd *cobra.Command, args []string) error {
	application, err := newOneShotApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if !application.Mailer.IsConfigured() {
		return fmt.Errorf("notifier is not configured")
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := application.Dispatcher.Dispatch(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("sent=%d failed=%d\n", result.Sent, result.Failed)
	return nil
}
