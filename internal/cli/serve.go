package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"github.com/St1cky1/taskflow/internal/api"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task REST API",
		Long: `Serve the task REST API over the configured store.

Endpoints:
  GET    /api/v1/tasks?filter=all|active|completed
  POST   /api/v1/tasks
  PATCH  /api/v1/tasks/{id}
  POST   /api/v1/tasks/{id}/toggle
  DELETE /api/v1/tasks/{id}
  POST   /api/v1/tasks/clear-completed
  GET    /api/v1/stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			store, closeFn, err := openStore(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(store),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				log.Printf("🚀 REST API listening on %s", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Printf("❌ HTTP server error: %v", err)
				}
			}()

			wait := gfshutdown.GracefulShutdown(
				context.Background(),
				shutdownTimeout,
				map[string]gfshutdown.Operation{
					"http-server": func(ctx context.Context) error {
						log.Println("Graceful shutdown initiated...")
						return srv.Shutdown(ctx)
					},
				},
			)

			if exitCode := <-wait; exitCode != 0 {
				return fmt.Errorf("shutdown finished with code %d", exitCode)
			}
			log.Println("✅ REST API stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default http.addr from config)")
	return cmd
}
