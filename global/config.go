package global

import (
	"github.com/Stormrider66/hockey-hub-sub043/logger"
	"github.com/Stormrider66/hockey-hub-sub043/service/storage"
	ids "github.com/Stormrider66/hockey-hub-sub043/tools/ids"
	security "github.com/Stormrider66/hockey-hub-sub043/tools/security"
)

// ConfigAll runs the unconditional bootstrap steps. Optional backends
// (nats, kafka) are wired by main according to their config presence.
func ConfigAll() {
	ConfigIds()
	ConfigRedis()
}

func ConfigIds() {
	ids.SetNodeID(Config().NodeID)
}

func ConfigRedis() {
	cfg := Config()
	err := storage.InitRedis(storage.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warnf("[global] redis unavailable at %s: %v", cfg.RedisAddr, err)
	}
}

// ConfigVerifier builds the credential verifier against the remote key
// set. Fatal without a key set URL: the gateway cannot authenticate.
func ConfigVerifier() (*security.Verifier, error) {
	cfg := Config()
	return security.NewVerifier(security.Options{
		KeySetURL:    cfg.KeySetURL,
		RefreshEvery: cfg.KeyRefresh,
		Issuer:       cfg.JwtIssuer,
	})
}
