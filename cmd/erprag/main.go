// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "erprag",
		Usage: "PII-masked embedding pipeline for accounting ERP documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"ERPRAG_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return setupConfig(c)
		},
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Run an embedding batch for one tenant",
				Action: indexCommand,
				Flags: append(append([]cli.Flag{
					dbFlag(),
					tenantFlag(true),
					&cli.StringFlag{
						Name:  "type",
						Usage: "Batch type (full, incremental, manual)",
						Value: "incremental",
					},
					&cli.StringSliceFlag{
						Name:  "table",
						Usage: "Source table to index; repeat for several (default all)",
					},
					&cli.TimestampFlag{
						Name:   "since",
						Usage:  "Only index documents updated after this RFC3339 time",
						Layout: time.RFC3339,
					},
					&cli.StringFlag{
						Name:  "triggered-by",
						Usage: "Who or what triggered the batch",
						Value: "cli",
					},
				}, embeddingFlags()...), batchFlags()...),
			},
			{
				Name:   "batch",
				Usage:  "Show one batch or list a tenant's batches",
				Action: batchCommand,
				Flags: []cli.Flag{
					dbFlag(),
					tenantFlag(false),
					&cli.StringFlag{
						Name:  "id",
						Usage: "Batch ID",
					},
				},
			},
			{
				Name:   "scan",
				Usage:  "Scan stored vectors and query logs for unmasked PII",
				Action: scanCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "source",
						Usage: "What to scan (vectors, queries, all)",
						Value: "all",
					},
					&cli.BoolFlag{
						Name:  "names",
						Usage: "Also look for Vietnamese personal names",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum records scanned per source",
						Value: 1000,
					},
				},
			},
			{
				Name:  "salt",
				Usage: "Manage masking salts",
				Subcommands: []*cli.Command{
					{
						Name:   "set",
						Usage:  "Store a new version of a salt with the given value",
						Action: saltSetCommand,
						Flags: []cli.Flag{
							dbFlag(),
							tenantFlag(false),
							&cli.StringFlag{
								Name:     "value",
								Usage:    "Salt value",
								EnvVars:  []string{"ERPRAG_SALT"},
								Required: true,
							},
						},
					},
					{
						Name:   "rotate",
						Usage:  "Store a new randomly generated version of a salt",
						Action: saltRotateCommand,
						Flags:  []cli.Flag{dbFlag(), tenantFlag(false)},
					},
					{
						Name:   "show",
						Usage:  "Show which salt a tenant masks with",
						Action: saltShowCommand,
						Flags: []cli.Flag{
							dbFlag(),
							tenantFlag(false),
							&cli.BoolFlag{
								Name:  "reveal",
								Usage: "Print the salt value",
							},
						},
					},
				},
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory",
		EnvVars: []string{"ERPRAG_DB"},
	}
}

func tenantFlag(required bool) cli.Flag {
	usage := "Tenant (company) ID"
	if !required {
		usage += "; omit for the global salt or all tenants"
	}
	return &cli.StringFlag{
		Name:     "tenant",
		Aliases:  []string{"t"},
		Usage:    usage,
		Required: required,
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"ERPRAG_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"ERPRAG_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "embedding-api-key",
			Usage:   "Embedding service API key",
			EnvVars: []string{"ERPRAG_EMBEDDING_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "embedding-api-type",
			Usage:   "Embedding API dialect (openai, azure)",
			EnvVars: []string{"ERPRAG_EMBEDDING_API_TYPE"},
		},
		&cli.StringFlag{
			Name:    "embedding-api-version",
			Usage:   "Azure API version",
			EnvVars: []string{"ERPRAG_EMBEDDING_API_VERSION"},
		},
		&cli.IntFlag{
			Name:    "embedding-dimensions",
			Usage:   "Expected embedding size (0 accepts any)",
			EnvVars: []string{"ERPRAG_EMBEDDING_DIMENSIONS"},
		},
	}
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Number of documents embedded per call (at most 100)",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Record metrics every N documents",
			Value: 1000,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum retry attempts for failed operations",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 1 * time.Second,
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
