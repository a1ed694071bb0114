// Package main hosts the reviewer-calls service entrypoint.
//
// Architecture overview:
//   - Catalog & window: internal/catalog loads data/conferences.yaml, validates every record and keeps the conferences
//     whose next occurrence is 2 to 10 months away. Rolling-review venues and undated records are always included.
//   - Search: internal/search asks a provider (DuckDuckGo HTML, or Serper with DuckDuckGo as fallback) for each
//     conference's homepage and reviewer-call pages. Every provider is serialized behind a rate.Limiter and backs off
//     after a rate-limit response.
//   - Crawl: internal/pipeline runs a per-conference state machine on a bounded errgroup. Seeds are fetched through the
//     Colly-based fetcher (robots.txt, per-host limits, retries), links are scored and the best ones followed two
//     levels deep, staying on the conference's hosts.
//   - Analysis & merge: internal/analyzer scores page text for reviewer-recruitment phrases, extracts deadlines and
//     guesses the role. internal/merge drops duplicates, rejected URLs and past deadlines before the curated
//     data/calls.yaml is rewritten.
//   - Fanout: kept candidates are announced through the log, GitHub issues (gh CLI) and an optional Pub/Sub topic. An
//     evaluation report can be exported locally or to GCS, and the run is recorded in Postgres when a DSN is set.
//   - Plumbing: Viper and godotenv populate config; zap provides structured logging; Prometheus metrics and progress
//     events cover search, fetch, runs and notifications.
//
// Operational notes:
//   - `reviewer-calls discover` performs one pass and exits; it is what the nightly CI job runs.
//   - `reviewer-calls serve` runs the same pass on a cron schedule (default 06:00 UTC) and exposes /healthz, /readyz,
//     /metrics and /v1/runs. Runs are single-flight: a trigger during a run is rejected with 409.
//   - SIGINT/SIGTERM cancels the run; conferences in flight are reported as interrupted and notifications drain
//     before exit.
//
// Quick checklist:
//   - Configure env vars: SERPER_API_KEY (optional), GITHUB_REPOSITORY for issue notifications, DATABASE_URL for the
//     run ledger, or any REVIEWERCALLS_* override. A local .env file is loaded when present.
//   - Run locally: go run ./cmd/reviewer-calls discover --dry-run --limit 3
package main
