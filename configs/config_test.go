package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BaseDevAndEnv(t *testing.T) {
	t.Setenv("STOREAPI_MYSQL__DSN", "u:p@tcp(db:3306)/shop")
	t.Setenv("STOREAPI_CART_LOCK__WAIT", "750ms")

	cfg, err := Load(".", "dev")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "u:p@tcp(db:3306)/shop", cfg.MySQL.DSN)
	assert.True(t, cfg.MySQL.AutoMigrate)
	assert.Equal(t, 750*time.Millisecond, cfg.CartLock.Wait)
	assert.Equal(t, 10*time.Second, cfg.CartLock.TTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"admin"}, cfg.Security.BootstrapAdmins)
	assert.Equal(t, "local", cfg.Storage.Driver)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	t.Setenv("STOREAPI_SECURITY__JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load(".", "nope")
	require.NoError(t, err)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Security.TTL)
}

func TestLoad_BaseWithoutSecretFails(t *testing.T) {
	_, err := Load(".", "nope")
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
app: {http_addr: ":1"}
mysql: {dsn: "x"}
security: {jwt_secret: "0123456789abcdef0123456789abcdef"}
mail: {host: "smtp.example.com"}
kafka: {brokers: ["k:9092"]}
storage: {driver: s3}
`), 0o600))

	_, err := Load(dir, "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "mail.from")
	assert.ErrorContains(t, err, "kafka.group_id")
	assert.ErrorContains(t, err, "storage.s3.bucket")
}
