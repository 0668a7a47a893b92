package service

import (
	"context"
	"fmt"
	"time"

	"gamesync/internal/client/igdb"
)

// gameFields is the projection requested for every game page; the remote
// always includes id.
var gameFields = []string{
	"name",
	"summary",
	"first_release_date",
	"rating",
	"rating_count",
	"updated_at",
	"genres",
	"platforms",
	"involved_companies",
	"cover",
	"screenshots",
}

// fetchAllGames enumerates games by offset pagination and returns them in
// request order, together with the number of requests issued. The loop stops
// on the first empty page, never on a short one, so a total that divides the
// page size evenly still costs one trailing request. Exhausting the page
// budget before the remote drains is an error: a partial result must not be
// mistaken for the full window, or everything past the budget would vanish
// behind the next checkpoint.
func (s *SyncService) fetchAllGames(ctx context.Context, since *time.Time) ([]igdb.Game, int, error) {
	limit := normalizeLimit(s.Opts.PageLimit)
	maxPages := normalizeMaxPages(s.Opts.MaxPages)

	var out []igdb.Game
	offset := 0
	pages := 0
	drained := false
	for page := 0; page < maxPages; page++ {
		q := igdb.NewQuery(gameFields...).Limit(limit).Offset(offset)
		if since != nil {
			q.Where(fmt.Sprintf("updated_at > %d", since.Unix()))
		}
		batch, err := s.Client.Games(ctx, q)
		if err != nil {
			return nil, pages, err
		}
		pages++
		if len(batch) == 0 {
			drained = true
			break
		}
		out = append(out, batch...)
		offset += len(batch)
	}
	if !drained {
		return nil, pages, fmt.Errorf("game pagination hit the %d page limit before the remote drained; raise max_pages or page_limit", maxPages)
	}
	return out, pages, nil
}

// fetchByIDs looks up full records for a deduplicated id set in fixed-size
// chunks, one request per chunk. An empty id set issues no request. Ids the
// remote no longer knows are silently absent from the result.
func fetchByIDs[T any](ctx context.Context, ids []int64, chunkSize int, fields []string, fetch func(context.Context, *igdb.Query) ([]T, error)) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []T
	for _, chunk := range chunkIDs(ids, normalizeChunkSize(chunkSize)) {
		q := igdb.NewQuery(fields...).Where(igdb.WhereIDIn(chunk)).Limit(len(chunk))
		batch, err := fetch(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func chunkIDs(items []int64, size int) [][]int64 {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	if len(items) <= size {
		return [][]int64{items}
	}
	chunks := make([][]int64, 0, (len(items)/size)+1)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

func normalizeLimit(limit int) int {
	// Protocol maximum per request.
	if limit <= 0 || limit > 500 {
		return 500
	}
	return limit
}

func normalizeMaxPages(maxPages int) int {
	if maxPages <= 0 {
		return 200
	}
	return maxPages
}

func normalizeChunkSize(size int) int {
	if size <= 0 {
		return 100
	}
	if size > 500 {
		return 500
	}
	return size
}
