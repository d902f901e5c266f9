package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bearshare/backend/internal/app/auth"
	appMigrations "github.com/bearshare/backend/internal/app/migrations"
	"github.com/bearshare/backend/internal/app/repositories"
	"github.com/bearshare/backend/internal/app/repositories/memory"
	"github.com/bearshare/backend/internal/app/services"
	"github.com/bearshare/backend/internal/bootstrap"
	"github.com/bearshare/backend/internal/config"
	"github.com/bearshare/backend/internal/db"
	pkgAuth "github.com/bearshare/backend/internal/pkg/auth"
)

const commandTimeout = 5 * time.Minute

func (cli *commandLine) hashSecret(secret string) error {
	hash, err := pkgAuth.HashSecret(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, hash)
	return nil
}

func (cli *commandLine) issueToken(subject string, admin bool, ttl time.Duration) error {
	if cli.cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not configured; tokens come from the identity provider")
	}
	role := ""
	if admin {
		role = cli.cfg.Auth.AdminRole
	}
	token, err := pkgAuth.IssueToken(pkgAuth.IssuerConfig{
		Secret:    cli.cfg.Auth.JWTSecret,
		Issuer:    cli.cfg.Auth.Issuer,
		Audience:  cli.cfg.Auth.Audience,
		RoleClaim: cli.cfg.Auth.RoleClaim,
	}, subject, role, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

func (cli *commandLine) reconcile() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	store, closeStore, err := openStoreFunc(ctx, cli.cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	memberships := services.NewMembershipService(store, nil, cli.logger)
	result, err := memberships.ReconcileMemberCounts(ctx, auth.System())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func migrate(cli *commandLine, status bool) error {
	if cli.cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations need the postgres driver, not %q", cli.cfg.Database.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	database, err := db.NewPostgresDB(cli.cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if !status {
		return bootstrap.RunMigrations(ctx, cli.cfg, database, cli.logger)
	}

	applied, err := appMigrations.NewMigrator(database.Pool, cli.logger).Applied(ctx)
	if err != nil {
		return err
	}
	for _, m := range applied {
		fmt.Fprintf(cli.out, "%s\t%s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repositories.Store, func(), error) {
	if cfg.Database.Driver == "memory" {
		return memory.NewStore(), func() {}, nil
	}
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewPostgresStore(database), database.Close, nil
}
