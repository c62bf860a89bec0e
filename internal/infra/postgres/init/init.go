package infra_pg_init

import (
	_ "embed"
	"fmt"

	"github.com/humanbelnik/boardmate/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schema string

// MustEstablishConn connects with the configured database/sql driver
// ("postgres" for lib/pq, "pgx" for pgx stdlib) and applies the schema.
func MustEstablishConn(cfg config.Postgres) *sqlx.DB {
	db, err := sqlx.Connect(cfg.Driver, DSN(cfg))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Driver).Msg("failed to connect to postgres")
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if _, err := db.Exec(schema); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	return db
}

func DSN(cfg config.Postgres) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)
}
