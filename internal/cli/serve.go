package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/canari/internal/app"
	"github.com/ppiankov/canari/internal/httpapi"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Long: `Serve starts the HTTP API used by the data entry forms:
- wizard sessions for batch entry (metadata, attribute steps, review, submit)
- count queues (add, remove, submit together)
- batch and count listing, correction and spreadsheet export

Example:
  canari serve
  canari serve --addr :9000 --store redis`,
	RunE: runServe,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Print the variety choices offered on the forms",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			for _, v := range a.Varieties() {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(presetsCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		return httpapi.New(a).ListenAndServe(ctx, a.Config().Server.Addr)
	})
}
