// Package config loads the service configuration from environment variables,
// optionally seeded from a .env file.
//
// Copy .env.example to .env and fill it with secure values. Variables already
// present in the process environment win over the file at startup.
//
// Server settings:
//
//	HOST="0.0.0.0"
//	PORT="8001"
//	HEALTH_PORT="9090"
//	MAX_BODY_BYTES="1048576"
//	TRUST_PROXY_HEADERS="false"
//
// Security settings:
//
//	JWT_SECRET="<random string, at least 32 bytes>"
//	JWT_ALGORITHM="HS256"  # HS256, HS384, HS512
//	ACCESS_TOKEN_EXPIRE_MINUTES="30"
//	CORS_ORIGINS='["https://tienda.example.cl"]'
//	RATE_LIMIT_PER_MINUTE="1000"
//	RATE_LIMIT_PER_HOUR="10000"
//
// Storage and cache settings:
//
//	DATABASE_URL="postgres://filtros:secret@db/filtros?sslmode=disable"
//	REDIS_URL="redis://localhost:6379/0"
//	CACHE_TTL="5m"
//
// Observability settings:
//
//	LOG_LEVEL="INFO"
//	DEBUG="false"
//	OTEL_ENABLED="true"
//	OTEL_ENDPOINT="otel-collector:4317"
//
// With DEBUG=true an empty or well-known JWT_SECRET is replaced by a random one
// (tokens then only live as long as the process); otherwise LoadConfig fails.
//
// Watcher reloads the .env file on change so the log level, rate limits and CORS
// origins can be tuned without a restart.
package config
