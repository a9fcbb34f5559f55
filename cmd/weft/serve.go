package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wefthq/weft"
	"github.com/wefthq/weft/internal/adapters/file"
	httpAdapter "github.com/wefthq/weft/internal/adapters/http"
	"github.com/wefthq/weft/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only status HTTP server",
	Long:  `Serves the workflow position, readiness and graph as a JSON API, plus Prometheus metrics, for dashboards watching the session.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		dir, _ := cmd.Flags().GetString("dir")
		sessionName, _ := cmd.Flags().GetString("session")
		logLevel, _ := cmd.Flags().GetString("log-level")

		logger := logging.New(logging.ParseLevel(logLevel))
		registry := prometheus.NewRegistry()

		eng, err := weft.New(file.New(dir),
			weft.WithLogger(logger),
			weft.WithSessionName(sessionName),
			weft.WithRegistry(registry),
		)
		if err != nil {
			fmt.Printf("Error initializing weft: %v\n", err)
			os.Exit(1)
		}

		manifestPath, _ := cmd.Flags().GetString("manifest")
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			fmt.Printf("Cannot read manifest: %v\n", err)
			os.Exit(1)
		}
		def, err := eng.ParseManifest(data)
		if err != nil {
			fmt.Printf("Manifest invalid:\n%v\n", err)
			os.Exit(1)
		}

		handler := httpAdapter.NewHandler(eng, def, logger, registry)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Weft status server on %s\n", srv.Addr)
			fmt.Printf("Watching session tree: %s\n", dir)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Weft status server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
