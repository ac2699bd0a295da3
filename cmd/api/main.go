/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/HamedShams/sprint-lens/internal/adapters/openai"
    "github.com/HamedShams/sprint-lens/internal/adapters/telegram"
    "github.com/HamedShams/sprint-lens/internal/config"
    "github.com/HamedShams/sprint-lens/internal/http"
    "github.com/HamedShams/sprint-lens/internal/jobs"
    "github.com/HamedShams/sprint-lens/internal/logger"
    "github.com/HamedShams/sprint-lens/internal/repo"
    "github.com/HamedShams/sprint-lens/internal/services"
    "github.com/joho/godotenv"
)

func main() {
    _ = godotenv.Load()
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // DB
    db := repo.MustOpen(ctx, cfg, log)
    defer db.Close()
    repository := repo.NewRepository(db, log)

    // Adapters
    llm := openai.NewClient(cfg, log)
    tg := telegram.NewClient(cfg, log)

    // Service: repository backs every store handle
    svc := services.New(cfg, log, repository, repository, repository, repository, llm, tg)

    // HTTP server (Gin)
    router := http.NewRouter(cfg, log, svc)

    // Cron
    cr := jobs.NewCron(cfg, log, svc, repository)
    cr.Start()
    defer cr.Stop()

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
