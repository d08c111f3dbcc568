// EtcdCheckpointStore is an optional, HA-oriented Store implementation,
// grounded on registry/etcd_registry.go's use of etcd as a small
// strongly-consistent key-value store. A FIX checkpoint is tiny (two
// sequence numbers and the comp-id pair) and changes on every accepted message, so unlike
// the registry's TTL leases, checkpoint keys are written plainly with no
// lease attached — the record should persist even if this process is down.
//
// Default deployments use FileStore; EtcdCheckpointStore exists for
// multi-host failover where the local disk isn't durable across a gateway
// migration (config key CheckpointBackend=etcd, see SPEC_FULL.md).
package session

import (
	"context"
	"encoding/json"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdCheckpointStore implements Store against an etcd v3 cluster.
type EtcdCheckpointStore struct {
	client *clientv3.Client
	prefix string
}

// NewEtcdCheckpointStore creates a Store connected to the given etcd
// endpoints. Keys are written under prefix (default "/fix-session/" if
// empty).
func NewEtcdCheckpointStore(endpoints []string, prefix string) (*EtcdCheckpointStore, error) {
	c, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, fmt.Errorf("session: connect etcd: %w", err)
	}
	if prefix == "" {
		prefix = "/fix-session/"
	}
	return &EtcdCheckpointStore{client: c, prefix: prefix}, nil
}

func (e *EtcdCheckpointStore) key(senderCompID string) string {
	return e.prefix + senderCompID
}

// Load fetches the checkpoint keyed by senderCompID.
func (e *EtcdCheckpointStore) Load(senderCompID string) (Checkpoint, bool, error) {
	resp, err := e.client.Get(context.Background(), e.key(senderCompID))
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("session: etcd get: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return Checkpoint{}, false, nil
	}
	var rec Checkpoint
	if err := json.Unmarshal(resp.Kvs[0].Value, &rec); err != nil {
		return Checkpoint{}, false, fmt.Errorf("session: parse etcd checkpoint: %w", err)
	}
	return rec, true, nil
}

// Save writes rec under its sender-comp-id key. etcd's own Raft commit
// provides the durability spec.md §5 asks of persistence ("fsynced" on the
// local-disk path); no lease is attached, so the record survives this
// process restarting or migrating hosts.
func (e *EtcdCheckpointStore) Save(rec Checkpoint) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: marshal etcd checkpoint: %w", err)
	}
	if _, err := e.client.Put(context.Background(), e.key(rec.SenderCompID), string(val)); err != nil {
		return fmt.Errorf("session: etcd put: %w", err)
	}
	return nil
}

// Close releases the underlying etcd client connection.
func (e *EtcdCheckpointStore) Close() error {
	return e.client.Close()
}
