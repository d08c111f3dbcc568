// EtcdDirectory implements Directory using etcd v3, grounded directly on
// the teacher's EtcdRegistry: the same "Grant a TTL lease, Put under a
// prefix, drain KeepAlive" flow now publishes which FIX gateways are
// reachable for a given counterparty group instead of which RPC server
// instances are up.
package discovery

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdDirectory implements Directory using etcd v3.
type EtcdDirectory struct {
	client *clientv3.Client
}

// NewEtcdDirectory connects to the given etcd endpoints.
func NewEtcdDirectory(endpoints []string) (*EtcdDirectory, error) {
	c, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, err
	}
	return &EtcdDirectory{client: c}, nil
}

// Announce publishes this process's view of a gateway endpoint under a TTL
// lease, so a fleet of FIX clients sharing an etcd cluster can discover
// each other's known-good gateways. Ordinary single-host deployments don't
// need this — it exists for the shared-directory case the way the
// teacher's Register exists for a server announcing itself.
func (d *EtcdDirectory) Announce(group string, ep GatewayEndpoint, ttlSeconds int64) error {
	ctx := context.TODO()

	lease, err := d.client.Grant(ctx, ttlSeconds)
	if err != nil {
		return err
	}

	val, err := json.Marshal(ep)
	if err != nil {
		return err
	}

	if _, err := d.client.Put(ctx, d.key(group, ep.Addr), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	ch, err := d.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Withdraw removes a previously announced endpoint. Nothing in this
// module calls it; the Engine's shutdown path does not withdraw endpoints.
func (d *EtcdDirectory) Withdraw(group, addr string) error {
	_, err := d.client.Delete(context.TODO(), d.key(group, addr))
	return err
}

func (d *EtcdDirectory) key(group, addr string) string {
	return "/fix-session/gateways/" + group + "/" + addr
}

func (d *EtcdDirectory) prefix(group string) string {
	return "/fix-session/gateways/" + group + "/"
}

// Discover returns the currently announced endpoints for group.
func (d *EtcdDirectory) Discover(group string) ([]GatewayEndpoint, error) {
	resp, err := d.client.Get(context.TODO(), d.prefix(group), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	endpoints := make([]GatewayEndpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep GatewayEndpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			continue
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// Watch re-fetches the full endpoint list on any change under group's
// prefix, the same simplification the teacher's Watch makes over parsing
// individual watch events.
func (d *EtcdDirectory) Watch(group string) <-chan []GatewayEndpoint {
	ch := make(chan []GatewayEndpoint, 1)
	go func() {
		watchChan := d.client.Watch(context.TODO(), d.prefix(group), clientv3.WithPrefix())
		for range watchChan {
			endpoints, err := d.Discover(group)
			if err != nil {
				continue
			}
			ch <- endpoints
		}
	}()
	return ch
}

// Close releases the underlying etcd client connection.
func (d *EtcdDirectory) Close() error {
	return d.client.Close()
}
