package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

const dir = "sql"

func setup(log *zap.Logger) error {
	goose.SetBaseFS(files)
	goose.SetLogger(zap.NewStdLog(log.Named("goose")))

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return nil
}

// Run applies every pending migration embedded in the binary.
func Run(db *sql.DB, log *zap.Logger) error {
	if err := setup(log); err != nil {
		return fmt.Errorf("migrations.Run: %w", err)
	}

	log.Info("running migrations", zap.String("dir", dir))
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migrations.Run: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("migrations.Run: version: %w", err)
	}
	log.Info("migrations applied", zap.Int64("version", version))
	return nil
}
