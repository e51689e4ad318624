package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ginjaninja78/trial-balance/internal/web"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report page and workbook downloads",
	Long: `Serve the report page, the workbook downloads and the JSON API.

Downloaded sources are cached for cache.ttl; POST /api/cache/purge drops
them so the next request fetches fresh data. The server shuts down
gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		builder, fetcher, err := newBuilder()
		if err != nil {
			return err
		}

		srv, err := web.NewServer(builder, fetcher, appConfig.Server, logger)
		if err != nil {
			return err
		}

		addr := appConfig.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
