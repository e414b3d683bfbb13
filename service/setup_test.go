package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.accountd.dev/accountd"
	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
)

// newTestContext boots the full application against a shared in-memory
// sqlite database named after the test, so tests stay isolated from each
// other while exercising the real startup path.
func newTestContext(t *testing.T, mutators ...func(*config.Config)) core.Context {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())

	cfg := &config.Config{}
	cfg.Core.Domain = "accountd.test"
	cfg.Core.ServiceName = "accountd"
	cfg.Core.Log.Level = "error"
	cfg.Core.DB.Type = "sqlite"
	cfg.Core.DB.File = fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	cfg.Core.Migration.VerifyInterval = time.Minute

	for _, mutate := range mutators {
		mutate(cfg)
	}

	cm := config.NewManagerFromConfig(cfg)
	require.NoError(t, cm.Init())

	ctx, err := core.NewContext(cm, core.NewLogger(cm))
	require.NoError(t, err)

	app := accountd.NewApp(ctx)
	require.NoError(t, app.Init())
	require.NoError(t, app.Start())

	t.Cleanup(func() {
		_ = app.Stop()
	})

	return app.Context()
}

func withDualWrite(cfg *config.Config) {
	cfg.Core.Migration.DualWrite = true
}

func accounts(ctx core.Context) core.AccountService {
	return core.GetService[core.AccountService](ctx, core.ACCOUNT_SERVICE)
}

func credentials(ctx core.Context) core.CredentialService {
	return core.GetService[core.CredentialService](ctx, core.CREDENTIAL_SERVICE)
}

func externalLogins(ctx core.Context) core.ExternalLoginService {
	return core.GetService[core.ExternalLoginService](ctx, core.EXTERNAL_LOGIN_SERVICE)
}

func profiles(ctx core.Context) core.ProfileService {
	return core.GetService[core.ProfileService](ctx, core.PROFILE_SERVICE)
}

func preferences(ctx core.Context) core.PreferenceService {
	return core.GetService[core.PreferenceService](ctx, core.PREFERENCE_SERVICE)
}

func linking(ctx core.Context) core.AccountLinkingService {
	return core.GetService[core.AccountLinkingService](ctx, core.LINKING_SERVICE)
}

func exporter(ctx core.Context) core.ExportService {
	return core.GetService[core.ExportService](ctx, core.EXPORT_SERVICE)
}

func migration(ctx core.Context) core.MigrationService {
	return core.GetService[core.MigrationService](ctx, core.MIGRATION_SERVICE)
}

func authorization(ctx core.Context) core.AuthorizationService {
	return core.GetService[core.AuthorizationService](ctx, core.AUTHORIZATION_SERVICE)
}

func createTestAccount(t *testing.T, ctx core.Context, email string) *models.Account {
	t.Helper()

	account, err := accounts(ctx).CreateAccount(email, "Test User "+email, "", "correct-horse")
	require.NoError(t, err)

	return account
}
