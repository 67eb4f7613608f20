package eventstream

import "context"

// Publisher publishes pipeline events to an event stream backend.
type Publisher interface {
	PublishIngestion(ctx context.Context, event *DocumentIngestedEvent) error
	PublishQuery(ctx context.Context, event *QueryAnsweredEvent) error
	Close() error
}
