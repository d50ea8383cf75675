// Package processor implements the two built-in Processors (§4.7):
// Extractor (result binding + Collector dispatch) and FileDownloader
// (response body persistence), grounded on the teacher's
// internal/media/downloader.go for the atomic-write idiom.
package processor

import "github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"

// Processor adapts a fetched Response into follow-up Requests.
type Processor func(resp *types.Response) ([]*types.Request, error)
