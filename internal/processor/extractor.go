package processor

import (
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/selector"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

// Collector is a side-effecting Result -> error sink invoked on the worker
// goroutine; implementations touching shared state must synchronize
// internally (§5).
type Collector func(result any) error

// Extractor runs result binding (§4.6) against a Response's text, hands the
// bound result to collect if provided, and returns the emitted follow-up
// Requests.
func Extractor(schema *selector.Schema, collect Collector) Processor {
	return func(resp *types.Response) ([]*types.Request, error) {
		content, err := resp.Text()
		if err != nil {
			return nil, &types.ExtractionError{URL: resp.Request.URL, Err: err}
		}

		result, children, err := schema.Bind(content, resp)
		if err != nil {
			return nil, &types.ExtractionError{URL: resp.Request.URL, Err: err}
		}

		if result != nil && collect != nil {
			if err := collect(result); err != nil {
				return nil, &types.ExtractionError{URL: resp.Request.URL, Err: err}
			}
		}
		return children, nil
	}
}
