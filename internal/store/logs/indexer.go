package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"reminder-engine/internal/common/logger"
	"reminder-engine/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// Indexer mirrors notification logs into Elasticsearch so support staff can
// search delivery history without hitting the primary database. Indexing is
// best-effort; the Postgres row stays authoritative.
type Indexer struct {
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(es *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "log-indexer"}),
	}
}

// Index writes one log document keyed by the log id.
func (i *Indexer) Index(ctx context.Context, entry *models.NotificationLog) error {
	doc, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log document: %w", err)
	}

	res, err := i.es.Index(
		i.index,
		bytes.NewReader(doc),
		i.es.Index.WithDocumentID(entry.ID),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index log document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index log document: %s", res.Status())
	}
	return nil
}
