package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/odyssey-erp/storefront/internal/app"
	"github.com/odyssey-erp/storefront/internal/catalog"
)

func main() {
	path := "scripts/seed/catalog.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.StoreBackend == app.BackendMemory {
		log.Fatalf("STORE_BACKEND=memory does not persist; pick bolt, redis or postgres")
	}

	ctx := context.Background()
	logger := app.NewLogger(cfg)
	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open backend: %v", err)
	}
	defer backend.Close()

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	inputs, err := catalog.LoadFixture(f)
	if err != nil {
		log.Fatalf("load fixture: %v", err)
	}

	fmt.Printf("→ Seeding %d products into %s...\n", len(inputs), backend.Name)
	created, skipped, err := seed(ctx, catalog.NewService(backend.Products, logger), inputs)
	if err != nil {
		log.Fatalf("seed products: %v", err)
	}
	fmt.Printf("✓ Seed complete at %s: %d created, %d already present\n", time.Now().Format(time.RFC3339), created, skipped)
}

// seed creates every input whose name is not in the catalog yet, so reruns are harmless.
func seed(ctx context.Context, svc *catalog.Service, inputs []catalog.ProductInput) (created, skipped int, err error) {
	existing, err := svc.All(ctx)
	if err != nil {
		return 0, 0, err
	}
	names := make(map[string]bool, len(existing))
	for _, p := range existing {
		names[strings.ToLower(p.Name)] = true
	}
	for _, in := range inputs {
		key := strings.ToLower(strings.TrimSpace(in.Name))
		if names[key] {
			skipped++
			continue
		}
		if _, err := svc.Create(ctx, in); err != nil {
			return created, skipped, fmt.Errorf("create %q: %w", in.Name, err)
		}
		names[key] = true
		created++
	}
	return created, skipped, nil
}
