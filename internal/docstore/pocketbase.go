package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// CollectionName is the PocketBase collection holding every document.
const CollectionName = "documents"

// PocketBase stores documents as records of a single PocketBase collection
// with "path", "collection" and a JSON "data" field.
type PocketBase struct {
	app core.App
}

func NewPocketBase(app core.App) *PocketBase {
	return &PocketBase{app: app}
}

func (s *PocketBase) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	if !ValidSegment(collection) {
		return nil, ErrInvalidPath
	}

	records := []*core.Record{}
	err := s.app.RecordQuery(CollectionName).
		WithContext(ctx).
		AndWhere(dbx.HashExp{"collection": collection}).
		OrderBy("path ASC").
		All(&records)
	if err != nil {
		return nil, fmt.Errorf("docstore: read all %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(records))
	for _, record := range records {
		_, key, err := SplitPath(record.GetString("path"))
		if err != nil {
			continue
		}
		data, err := recordData(record)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Key: key, Data: data})
	}
	return docs, nil
}

func (s *PocketBase) Read(ctx context.Context, path string) ([]byte, error) {
	if _, _, err := SplitPath(path); err != nil {
		return nil, err
	}

	record, err := s.find(ctx, path)
	if err != nil {
		return nil, err
	}
	return recordData(record)
}

func (s *PocketBase) Write(ctx context.Context, path string, data []byte) error {
	collection, _, err := SplitPath(path)
	if err != nil {
		return err
	}
	if err := checkData(data); err != nil {
		return err
	}

	record, err := s.find(ctx, path)
	if errors.Is(err, ErrNotFound) {
		documents, err := s.app.FindCollectionByNameOrId(CollectionName)
		if err != nil {
			return fmt.Errorf("docstore: %s collection: %w", CollectionName, err)
		}
		record = core.NewRecord(documents)
		record.Set("path", path)
		record.Set("collection", collection)
	} else if err != nil {
		return err
	}

	record.Set("data", types.JSONRaw(data))

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("docstore: write %s: %w", path, err)
	}
	return nil
}

func (s *PocketBase) Append(ctx context.Context, collection string, data []byte) (string, error) {
	key, err := NewKey()
	if err != nil {
		return "", err
	}
	if err := s.Write(ctx, Path(collection, key), data); err != nil {
		return "", err
	}
	return key, nil
}

func (s *PocketBase) find(ctx context.Context, path string) (*core.Record, error) {
	record := &core.Record{}
	err := s.app.RecordQuery(CollectionName).
		WithContext(ctx).
		AndWhere(dbx.HashExp{"path": path}).
		Limit(1).
		One(record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: read %s: %w", path, err)
	}
	return record, nil
}

func recordData(record *core.Record) ([]byte, error) {
	data, err := json.Marshal(record.Get("data"))
	if err != nil {
		return nil, fmt.Errorf("docstore: record %s data: %w", record.Id, err)
	}
	return data, nil
}
