package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("documents")

		collection.Fields.Add(
			&core.TextField{
				Name:     "path",
				Required: true,
				Max:      300,
				Pattern:  `^[A-Za-z0-9_-]+/[A-Za-z0-9_-]+$`,
			},
			&core.TextField{
				Name:     "collection",
				Required: true,
				Max:      128,
			},
			&core.JSONField{
				Name:    "data",
				MaxSize: 1 << 20,
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_documents_path", true, "path", "")
		collection.AddIndex("idx_documents_collection", false, "collection", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("documents")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
