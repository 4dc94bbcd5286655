package deploy

import (
	"context"
	"fmt"

	"github.com/systmms/authstack/internal/config"
	aserrors "github.com/systmms/authstack/internal/errors"
	"github.com/systmms/authstack/internal/postgres"
	"github.com/systmms/authstack/internal/secure"
	"github.com/systmms/authstack/pkg/cluster"
	"github.com/systmms/authstack/pkg/release"
)

// databaseServices are the components that get their own role/database
// pair, in provisioning order.
var databaseServices = []string{config.ComponentKratos, config.ComponentHydra}

// runDatabase provisions the stack's Postgres release. Role passwords are
// regenerated on every run and sealed into the Env for the dsn-secrets
// step; the chart's admin password is read back after the install.
func runDatabase(ctx context.Context, env *Env) error {
	def := env.Def

	passwords := map[string]string{}
	for _, component := range databaseServices {
		cred, err := NewSecret()
		if err != nil {
			return fmt.Errorf("generate %s database password: %w", component, err)
		}
		env.servicePasswords[component] = cred
		if err := cred.Use(func(plain []byte) error {
			passwords[component] = string(plain)
			return nil
		}); err != nil {
			return err
		}
	}

	services := make([]postgres.ServiceDB, 0, len(databaseServices))
	for _, component := range databaseServices {
		services = append(services, postgres.ServiceDB{
			Role:     component,
			Password: passwords[component],
			Database: component,
		})
	}
	script := postgres.InitScript(services)

	// The literal dot in the script filename is escaped for the values
	// parser. The script itself contains no commas (identifiers and
	// passwords are alphanumeric), so it survives parsing intact.
	set := []string{`primary.initdb.scripts.init\.sql=` + script}

	// The chart generates an admin password on first install and refuses
	// upgrades without it, so an existing one is carried forward.
	adminData, err := env.Cluster.GetSecret(ctx, def.Namespace, def.AdminSecretName())
	if err != nil && !cluster.IsNotFound(err) {
		return aserrors.ClusterError("reading database admin secret", err)
	}
	if err == nil {
		if existing, ok := adminData[def.Database.AdminSecretKey]; ok {
			set = append(set, "auth.postgresPassword="+string(existing))
		}
	}

	chart := def.ChartFor(config.ComponentPostgres)
	if err := env.Installer.InstallOrUpgrade(ctx, release.Release{
		Name:      def.DatabaseReleaseName(),
		Chart:     chart.Chart,
		Version:   chart.Version,
		Namespace: def.Namespace,
		Set:       set,
		Wait:      true,
		Timeout:   def.WaitTimeout(),
	}); err != nil {
		return aserrors.ClusterError("installing database", err)
	}
	env.Log.Info("Release %s is ready", def.DatabaseReleaseName())

	adminData, err = env.Cluster.GetSecret(ctx, def.Namespace, def.AdminSecretName())
	if err != nil {
		return aserrors.ClusterError("reading database admin secret", err)
	}
	adminPassword, ok := adminData[def.Database.AdminSecretKey]
	if !ok {
		return aserrors.UserError{
			Message:    fmt.Sprintf("admin secret %s has no key %q", def.AdminSecretName(), def.Database.AdminSecretKey),
			Suggestion: "Set database.adminSecretKey to the key your database chart writes the admin password under",
		}
	}
	// NewCredential wipes its input; the slice belongs to the client
	// response, so seal a copy.
	env.adminPassword = secure.NewCredential(append([]byte(nil), adminPassword...))
	env.Log.Info("Admin password read back from secret %s", def.AdminSecretName())

	return nil
}

// runDSNSecrets builds the per-service connection strings from the
// passwords generated in the database step and writes them as cluster
// secrets for the service charts.
func runDSNSecrets(ctx context.Context, env *Env) error {
	def := env.Def
	host := def.DatabaseHost()

	for _, svc := range []struct {
		component string
		secret    string
	}{
		{config.ComponentKratos, SecretKratosDSN},
		{config.ComponentHydra, SecretHydraDSN},
	} {
		cred, ok := env.servicePasswords[svc.component]
		if !ok {
			return fmt.Errorf("no database password generated for %s", svc.component)
		}

		var dsn string
		if err := cred.Use(func(plain []byte) error {
			dsn = postgres.DSN(svc.component, string(plain), host, def.Database.Port, svc.component)
			return nil
		}); err != nil {
			return err
		}
		env.dsns[svc.component] = secure.NewCredential([]byte(dsn))

		if err := env.Cluster.ApplySecret(ctx, def.Namespace, svc.secret, map[string][]byte{
			dsnKey: []byte(dsn),
		}); err != nil {
			return aserrors.ClusterError("writing secret "+svc.secret, err)
		}
		env.Log.Info("Secret %s/%s updated", def.Namespace, svc.secret)
	}

	return nil
}
