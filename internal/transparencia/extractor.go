package transparencia

import (
	"context"

	"github.com/gmendonca/nfe-pipeline/internal/logger"
)

// FetchYear collects every invoice issued by the given agency in the given
// year, walking pages 1, 2, 3, ... until one of three terminations:
//
//   - a page comes back empty (natural end of the data);
//   - page > maxPages (safety cap; a warning is logged because data may be
//     incomplete);
//   - a page request fails terminally after retries (the error is logged and
//     whatever was collected so far is returned with a nil error).
//
// Records whose issuance date is missing, malformed, or outside the
// requested year are excluded per page. The only error return is a
// configuration failure, raised before the first request.
func (c *Client) FetchYear(ctx context.Context, agencyCode string, year, maxPages int) ([]Record, error) {
	if err := c.checkConfig(); err != nil {
		return nil, err
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	log := logger.FromContext(ctx)
	log.Info().Str("agency_code", agencyCode).Int("year", year).Msg("starting invoice collection")

	var collected []Record
	for page := 1; ; page++ {
		if page > maxPages {
			log.Warn().Int("max_pages", maxPages).
				Msg("page limit reached, collected data may be incomplete; consider raising the limit")
			break
		}

		records, err := c.FetchPage(ctx, agencyCode, page)
		if err != nil {
			log.Error().Err(err).Int("page", page).Msg("page request failed, returning partial results")
			break
		}

		if len(records) == 0 {
			log.Info().Int("page", page).Msg("empty page, collection finished")
			break
		}

		matched := filterByYear(records, year)
		collected = append(collected, matched...)
		log.Info().Int("page", page).Int("matched", len(matched)).Int("year", year).Msg("page processed")
	}

	return collected, nil
}

// filterByYear keeps the records issued in the given year. Records whose
// issuance date is missing or malformed are silently excluded.
func filterByYear(records []Record, year int) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if issued, ok := r.IssuanceDate(); ok && issued.Year() == year {
			out = append(out, r)
		}
	}
	return out
}
