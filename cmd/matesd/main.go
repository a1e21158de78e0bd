package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codemates/mates"
	"github.com/codemates/mates/api"
	"github.com/codemates/mates/auth"
	"github.com/codemates/mates/config"
	"github.com/codemates/mates/media"
	"github.com/codemates/mates/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("MATES_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer db.Close()

	srv := mates.NewServer()
	srv.ServiceURL = cfg.ServiceURL

	var blobs media.Store
	var mediaDir string
	switch cfg.Blob.Backend {
	case "s3":
		blobs, err = media.NewS3Store(context.Background(), media.S3Config{
			Bucket:        cfg.Blob.Bucket,
			Region:        cfg.Blob.Region,
			Endpoint:      cfg.Blob.Endpoint,
			PublicBaseURL: cfg.Blob.PublicBaseURL,
		})
	case "local":
		baseURL := cfg.Blob.PublicBaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://%s:%d/media", cfg.Host, cfg.Port)
		}
		var cas *media.LocalCAS
		cas, err = media.NewLocalCAS(cfg.Blob.LocalRoot, baseURL)
		if err == nil {
			blobs = cas
			mediaDir = cas.Root()
		}
	}
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	orch := media.NewOrchestrator(blobs, srv.Log)
	orch.Timeout = cfg.BlobTimeout()

	gate, err := auth.NewGate(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	api.New(srv, api.Options{
		Store:          db,
		Media:          orch,
		Gate:           gate,
		Log:            srv.Log,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MediaDir:       mediaDir,
	})

	errc := make(chan error, 1)
	go func() {
		srv.Log.Printf("listening on %s:%d\n", cfg.Host, cfg.Port)
		errc <- srv.Start(cfg.Host, cfg.Port)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil {
			log.Fatalf("server: %v", err)
		}
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		orch.Wait()
	}
}
