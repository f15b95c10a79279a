package importinfra

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Abraxas-365/talentledger/pkg/staffing/importer"
	"github.com/redis/go-redis/v9"
)

// RedisSyncStatusStore keeps the last-run snapshot per data source as JSON
type RedisSyncStatusStore struct {
	client *redis.Client
	prefix string
}

func NewRedisSyncStatusStore(client *redis.Client, prefix string) importer.SyncStatusStore {
	return &RedisSyncStatusStore{client: client, prefix: prefix}
}

func (s *RedisSyncStatusStore) key(dataSource string) string {
	return s.prefix + "import:status:" + dataSource
}

func (s *RedisSyncStatusStore) Save(ctx context.Context, status importer.SyncStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return importer.ErrStatusUnavailable().WithCause(err)
	}
	if err := s.client.Set(ctx, s.key(status.DataSource), data, 0).Err(); err != nil {
		return importer.ErrStatusUnavailable().WithCause(err)
	}
	return nil
}

// Load returns an empty snapshot when the source never ran
func (s *RedisSyncStatusStore) Load(ctx context.Context, dataSource string) (*importer.SyncStatus, error) {
	data, err := s.client.Get(ctx, s.key(dataSource)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &importer.SyncStatus{DataSource: dataSource}, nil
		}
		return nil, importer.ErrStatusUnavailable().WithCause(err)
	}

	var status importer.SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, importer.ErrStatusUnavailable().WithCause(err).WithDetail("data_source", dataSource)
	}
	return &status, nil
}
