package app

import (
	"github.com/humanbelnik/boardmate/internal/config"
	infra_memory "github.com/humanbelnik/boardmate/internal/infra/memory"
	infra_pg_init "github.com/humanbelnik/boardmate/internal/infra/postgres/init"
	infra_postgres_tx "github.com/humanbelnik/boardmate/internal/infra/postgres/tx"
	"github.com/humanbelnik/boardmate/internal/storage"
)

// OpenStorage returns the configured backend and a function releasing it.
func OpenStorage(cfg *config.Config) (storage.Transactor, func() error) {
	if cfg.Storage == config.StoragePostgres {
		db := infra_pg_init.MustEstablishConn(cfg.Postgres)
		return infra_postgres_tx.New(db), db.Close
	}
	return infra_memory.New(), func() error { return nil }
}
