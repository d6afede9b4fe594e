package publisher

import (
	"encoding/json"

	"sjsage522/keypriceworker/helpers"
	"sjsage522/keypriceworker/internal/crawler"
	"sjsage522/keypriceworker/pkg/errors"
)

// Publisher represents a service for publishing finalized tables
type Publisher interface {
	// Publish publishes a message under key to one of the streams
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// TableMessage is the payload published for one finalized table
type TableMessage struct {
	Table      string              `json:"table"`
	CapturedOn string              `json:"captured_on"`
	Columns    []string            `json:"columns"`
	Rows       []map[string]string `json:"rows"`
}

// MessageKey returns the stream field a table is published under
func MessageKey(tableName string) string {
	return "b64_" + tableName
}

// NewTableMessage converts a finalized table into its published payload
func NewTableMessage(t *crawler.Table) TableMessage {
	rows := make([]map[string]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		rows = append(rows, t.RowMap(i))
	}

	return TableMessage{
		Table:      t.Name,
		CapturedOn: helpers.DateStamp(t.CapturedOn),
		Columns:    t.Columns,
		Rows:       rows,
	}
}

// PublishTable publishes a finalized table as one JSON message.
// Empty tables are not published.
func PublishTable(p Publisher, t *crawler.Table) error {
	if t.Len() == 0 {
		return nil
	}

	data, err := json.Marshal(NewTableMessage(t))
	if err != nil {
		return errors.NewPublisher(t.Name, "failed to encode table", err)
	}

	if err := p.Publish(MessageKey(t.Name), data); err != nil {
		return errors.NewPublisher(t.Name, "failed to publish table", err)
	}
	return nil
}
