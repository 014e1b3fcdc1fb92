package main

import (
	"context"
	_ "embed"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	erprag "github.com/thanhtoan105/accounting-erp-rag"
	"github.com/thanhtoan105/accounting-erp-rag/masking"
)

//go:embed demo.yaml
var demoFixtures []byte

var (
	dbPath          = flag.String("db", "./erp_db", "database directory")
	fixtureFileName = flag.String("file", "", "YAML file of seed documents (default: built-in demo data)")
	generateSalts   = flag.Bool("salts", true, "generate a global salt and one salt per seeded tenant when the file names none")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// seed stores the fixtures' salts and documents.
func seed(ctx context.Context, db *erprag.Database, fixtures *fixtureFile, generate bool) error {
	docs, err := fixtures.Documents(time.Now().UTC())
	if err != nil {
		return err
	}

	tenants := map[uuid.UUID]string{}
	for _, doc := range docs {
		tenants[doc.Header().TenantId] = ""
	}
	for tenant, value := range fixtures.Salts.Tenants {
		tenantId, err := uuid.Parse(tenant)
		if err != nil {
			return err
		}
		tenants[tenantId] = value
	}

	if err := storeSalt(ctx, db, uuid.Nil, fixtures.Salts.Global, generate); err != nil {
		return err
	}
	for tenantId, value := range tenants {
		if err := storeSalt(ctx, db, tenantId, value, generate); err != nil {
			return err
		}
	}

	if err := db.Documents().PutDocuments(ctx, docs...); err != nil {
		return err
	}
	slog.Info("seeded documents", "documents", len(docs), "tenants", len(tenants))
	return nil
}

// storeSalt stores value as the tenant's next salt version. Without a value a
// salt is generated, but only if generate is set and none exists yet.
func storeSalt(ctx context.Context, db *erprag.Database, tenantId uuid.UUID, value string, generate bool) error {
	if value == "" {
		if !generate {
			return nil
		}
		name := masking.GlobalSaltName
		if tenantId != uuid.Nil {
			name = masking.TenantSaltName(tenantId)
		}
		existing, err := db.Secrets().GetSecret(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
	}
	_, err := db.Salts().Rotate(ctx, tenantId, value)
	return err
}

func main() {
	flag.Parse()

	fixtures, err := parseFixtures(demoFixtures)
	if *fixtureFileName != "" {
		fixtures, err = readFixtures(*fixtureFileName)
	}
	if err != nil {
		panic(err)
	}

	db, err := erprag.NewDatabase(*dbPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if err := seed(context.Background(), db, fixtures, *generateSalts); err != nil {
		panic(err)
	}
}
