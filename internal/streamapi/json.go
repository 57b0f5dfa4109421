package streamapi

import (
	"github.com/riptide-engine/riptide/internal/models"
)

// JSONCollector implements Emitter by buffering results into a slice for a
// single terminal JSON array response (spec §4.7's third protocol: "a
// single JSON array collected from the stream"). It ignores progress and
// keep-alive events since a non-chunked response has no idle gaps to fill.
type JSONCollector struct {
	Meta    map[string]interface{}
	Results []models.CrawlResult
	Stats   models.BatchStatistics
	Err     error
}

func NewJSONCollector() *JSONCollector {
	return &JSONCollector{}
}

func (c *JSONCollector) Metadata(meta map[string]interface{}) error {
	c.Meta = meta
	return nil
}

func (c *JSONCollector) Result(result models.CrawlResult) error {
	c.Results = append(c.Results, result)
	return nil
}

func (c *JSONCollector) Progress(done, total int) error { return nil }

func (c *JSONCollector) Completion(stats models.BatchStatistics) error {
	c.Stats = stats
	return nil
}

func (c *JSONCollector) Error(err error) error {
	c.Err = err
	return nil
}

func (c *JSONCollector) KeepAlive() error { return nil }
