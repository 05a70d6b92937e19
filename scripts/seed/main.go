package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/odyssey-erp/autosales/internal/app"
	"github.com/odyssey-erp/autosales/internal/customers"
	"github.com/odyssey-erp/autosales/internal/platform/db"
	"github.com/odyssey-erp/autosales/internal/shared"
	"github.com/odyssey-erp/autosales/internal/vehicles"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	fmt.Println("→ Seeding vehicles...")
	if err := seedVehicles(ctx, vehicles.NewService(vehicles.NewRepository(pool), nil)); err != nil {
		log.Fatalf("seed vehicles: %v", err)
	}
	fmt.Println("→ Seeding customers...")
	if err := seedCustomers(ctx, customers.NewService(customers.NewRepository(pool))); err != nil {
		log.Fatalf("seed customers: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedVehicles(ctx context.Context, svc *vehicles.Service) error {
	stock := []vehicles.CreateVehicleRequest{
		{Brand: "Toyota", Model: "Corolla", Year: 2022, Color: "White", Price: 21500, VIN: "JTDBR32E720000001"},
		{Brand: "Honda", Model: "Civic", Year: 2021, Color: "Black", Price: 19800, VIN: "2HGFC2F59MH000002"},
		{Brand: "Ford", Model: "Ranger", Year: 2023, Color: "Blue", Price: 32900, VIN: "1FTER4FH3PL000003"},
		{Brand: "Volkswagen", Model: "Golf", Year: 2020, Color: "Silver", Price: 17400, VIN: "WVWZZZAUZLW000004"},
	}
	for _, req := range stock {
		if _, err := svc.Create(ctx, req); err != nil && !errors.Is(err, shared.ErrDuplicate) {
			return err
		}
	}
	return nil
}

func seedCustomers(ctx context.Context, svc *customers.Service) error {
	buyers := []customers.CreateCustomerRequest{
		{Name: "Ana Souza", Email: "ana@example.com", Phone: "+55 11 90000-0001"},
		{Name: "Bruno Lima", Email: "bruno@example.com", Phone: "+55 11 90000-0002"},
		{Name: "Carla Mendes", Email: "carla@example.com"},
	}
	for _, req := range buyers {
		if _, err := svc.Create(ctx, req); err != nil && !errors.Is(err, shared.ErrDuplicate) {
			return err
		}
	}
	return nil
}
