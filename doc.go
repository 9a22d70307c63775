// Package nsq is a Go client library for an NSQ-style distributed
// message-queue broker: topic/channel pub-sub with at-least-once delivery,
// per-node TCP connections, and HTTP-based topic discovery.
//
// # Quick Start
//
// Publishing:
//
//	client := nsq.NewClient(nsq.WithLogger(logger)) // logger: any nsq.Logger
//	nodes := []nsq.HostAndPort{nsq.FromParts("nsqd-1", 4150), nsq.FromParts("nsqd-2", 4150)}
//	pub, err := nsq.NewPublisher(client, nodes, nsq.DefaultPublisherConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := pub.Publish("events", []byte("hello")); err != nil {
//	    log.Fatal(err)
//	}
//
// Subscribing:
//
//	lookups := []nsq.HostAndPort{nsq.FromParts("lookupd-1", 4161)}
//	sub, err := nsq.NewSubscriber(client, lookups, nsq.DefaultSubscriberConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sub.Subscribe("events", "my-channel", nsq.MessageHandlerFunc(func(msg *nsq.Message) error {
//	    return process(msg.Body)
//	}))
//	defer sub.Stop()
//
// # Key Features
//
//   - Balanced publishing across broker nodes with health-aware failover
//     and a whole-or-nothing atomic batch mode.
//   - Discovery polling that reconciles a subscription's connection set as
//     nodes come and go, with per-URL failure escalation that never stops
//     polling.
//   - Credit-based flow control (RDY distribution) across a subscription's
//     connections, with a three-state backoff machine that pauses and
//     re-probes delivery after handler failures.
//   - Retry accounting with a configurable dead-letter handler once a
//     message exceeds its attempt budget.
//
// # Architecture
//
// A Client owns the shared logger, metrics collector, HTTP client and
// worker pool that every Publisher and Subscriber built from it uses.
// A Publisher owns a balance.Strategy over a fixed node set. A Subscriber
// owns a discovery-driven registry of Subscriptions, each of which owns a
// set of SubConnections reconciled against the latest discovery result and
// flow-controlled by its own backoff state machine.
//
// # Advanced Usage
//
// Custom metrics and a bounded worker pool:
//
//	client := nsq.NewClient(
//	    nsq.WithMetrics(collector), // collector: any nsq.MetricsCollector
//	    nsq.WithWorkerPoolSize(64),
//	)
//
// Atomic batch publishing:
//
//	cfg := nsq.DefaultPublisherConfig()
//	cfg.Atomic = true
//	pub, _ := nsq.NewPublisher(client, nodes, cfg)
//	if err := pub.PublishMulti("events", [][]byte{{1}, {2}, {3}}); err != nil {
//	    var nsqErr *nsq.Error
//	    if errors.As(err, &nsqErr) && nsqErr.Kind == nsq.KindAtomicBatchPublishFailed {
//	        // whole batch rejected, no partial delivery
//	    }
//	}
package nsq
