package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cacheplan/internal/api"
	"cacheplan/internal/webhooks"
)

var servePort string

// serveCmd runs the HTTP API until SIGINT or SIGTERM
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the optimization HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srvDeps, err := api.NewServer(ctx, cfg, log)
		if err != nil {
			return err
		}
		if cfg.Webhook.URL != "" {
			startWebhooks(ctx, srvDeps.Broker, webhooks.NewWorker(cfg.Webhook, log.WithField("component", "webhooks")))
		}
		srv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           logMiddleware(log, srvDeps.Handler()),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			log.Infof("API listening on %s", srv.Addr)
			errc <- srv.ListenAndServe()
		}()
		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	},
}

// startWebhooks forwards run.completed events to the webhook worker.
func startWebhooks(ctx context.Context, b api.EventBroker, w *webhooks.Worker) {
	w.Start(ctx)
	ch := b.Subscribe(api.RunsTopic)
	go func() {
		defer b.Unsubscribe(api.RunsTopic, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if evt.Type == "run.completed" {
					w.Enqueue(evt.Type, evt)
				}
			}
		}
	}()
}

func logMiddleware(log *logrus.Entry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(logrus.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("request")
	})
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Listen port (overrides PORT)")
}
