package migrations

import (
	"context"
	"fmt"

	"github.com/hivegate/hivegate/pkg/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [up migration] ")

		// Create admission schema
		_, err := db.NewRaw("CREATE SCHEMA IF NOT EXISTS admission").Exec(ctx)
		if err != nil {
			return err
		}

		// Create rules table from struct
		_, err = db.NewCreateTable().
			Model((*models.AdmissionRule)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		// Create tokens table from struct
		_, err = db.NewCreateTable().
			Model((*models.AppToken)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [down migration] ")

		_, err := db.NewDropTable().Model((*models.AppToken)(nil)).IfExists().Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewDropTable().Model((*models.AdmissionRule)(nil)).IfExists().Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewRaw("DROP SCHEMA IF EXISTS admission").Exec(ctx)
		if err != nil {
			return err
		}

		return nil
	})
}
