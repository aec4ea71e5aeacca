package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/heartline/internal/certs"
	"github.com/Veraticus/heartline/internal/config"
	"github.com/Veraticus/heartline/internal/engine"
	"github.com/Veraticus/heartline/internal/server"
	"github.com/Veraticus/heartline/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses over HTTP",
		Long: `Start an HTTP service around the loaded model.

Endpoints:
  POST /v1/analyze     {"features": [187 samples]} -> probability and decision
  GET  /v1/thresholds  active decision thresholds
  GET  /healthz        liveness
  GET  /metrics        Prometheus metrics

With --tls the server uses a self-signed certificate kept in
server.cert_dir, generated on first use and renewed when it expires.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", config.DefaultServerAddr, "listen address")
	cmd.Flags().Bool("record", false, "record served analyses in history")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	cmd.Flags().StringSlice("tls-host", nil, "hosts the certificate covers (default: localhost)")
	_ = viper.BindPFlag(config.KeyServerAddr, cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag(config.KeyServerTLS, cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	record, _ := cmd.Flags().GetBool("record")
	tlsHosts, _ := cmd.Flags().GetStringSlice("tls-host")

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var recorder engine.Recorder
	if record {
		var store service.Storage
		store, err = initStorage(ctx, settings)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("Failed to close storage", "error", closeErr)
			}
		}()
		recorder = store
	}

	analyzer, inferenceCtx, err := loadAnalyzer(settings, recorder)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var opts []server.Option
	if len(settings.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(settings.CORSOrigins...))
	}
	srv, err := server.New(analyzer, inferenceCtx.FeatureCount(), reg, opts...)
	if err != nil {
		return err
	}

	var cert *tls.Certificate
	if settings.ServerTLS {
		manager := certs.NewFileManager(settings.CertDir, tlsHosts...)
		loaded, err := manager.GetOrCreateCertificate()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		certFile, _ := manager.Paths()
		slog.Info("Using self-signed certificate", "cert", certFile)
		cert = &loaded
	}

	return srv.Run(ctx, settings.ServerAddr, cert)
}
