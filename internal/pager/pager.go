package pager

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fintrackhq/fintrack/internal/errs"
	"github.com/fintrackhq/fintrack/internal/fintrack"
)

// Mode selects how List pages through results.
type Mode string

const (
	// ModeOffset materializes the full result set, reports exact totals and
	// slices by page number.
	ModeOffset Mode = "offset"
	// ModeCursor passes the limit straight to the store and hands the
	// continuation key back to the caller as an opaque token. No exact totals.
	ModeCursor Mode = "cursor"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeOffset, "":
		return ModeOffset, nil
	case ModeCursor:
		return ModeCursor, nil
	}
	return "", fmt.Errorf("unknown pagination mode %q", s)
}

// Key is the continuation point between store pages: the last record's
// effective date and id.
type Key struct {
	EffectiveDate int64     `json:"d"`
	ID            uuid.UUID `json:"id"`
}

// QueryFunc fetches one store page starting after start. A nil returned key
// means the scan is exhausted. Owner and date range are closed over by the
// caller.
type QueryFunc[T fintrack.Record] func(ctx context.Context, limit int, start *Key) ([]T, *Key, error)

// Result is one page of records plus the pagination facts the caller can
// report. Total and TotalMinor are exact only in offset mode.
type Result[T fintrack.Record] struct {
	Data       []T
	Total      int
	TotalMinor int64
	NextToken  string
}

// DefaultMaxPages caps continuation loops when the caller passes 0.
const DefaultMaxPages = 50

// CollectAll drains query page by page, following continuation keys, capped
// at maxPages (0 means DefaultMaxPages). Exceeding the cap returns
// errs.ErrTooManyPages: the loop is for assembling bounded result sets, not
// unbounded scans.
func CollectAll[T fintrack.Record](ctx context.Context, query QueryFunc[T], maxPages int) ([]T, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	var (
		all   []T
		start *Key
	)
	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("%w: aborted after %d pages", errs.ErrTooManyPages, maxPages)
		}
		records, next, err := query(ctx, 0, start)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if next == nil {
			return all, nil
		}
		start = next
	}
}

// Sort orders records by effective date descending, creation date descending,
// then id ascending. The order is total, so repeated sorts are stable.
func Sort[T fintrack.Record](records []T) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.EffectiveAt() != b.EffectiveAt() {
			return a.EffectiveAt() > b.EffectiveAt()
		}
		if a.CreatedAt() != b.CreatedAt() {
			return a.CreatedAt() > b.CreatedAt()
		}
		return a.RecordID().String() < b.RecordID().String()
	})
}

// sortScanOrder orders one store page the way the backends scan: effective
// date descending, id ascending. Cursor pages must keep this order, not the
// creation-date tiebreak of Sort, so records sharing an effective date stay
// contiguous across continuation boundaries.
func sortScanOrder[T fintrack.Record](records []T) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.EffectiveAt() != b.EffectiveAt() {
			return a.EffectiveAt() > b.EffectiveAt()
		}
		return a.RecordID().String() < b.RecordID().String()
	})
}

// Request is the caller's pagination intent, already validated upstream.
type Request struct {
	Limit     *int
	Page      *int
	NextToken string
}

// Paginator runs list queries in one configured mode.
type Paginator struct {
	Mode     Mode
	MaxPages int
}

// List executes the query under the paginator's mode.
//
// Offset mode drains the whole scan, sorts, computes totals over the full
// set and slices out the requested page (page defaults to 1 when a limit is
// set; no limit means the full set comes back).
//
// Cursor mode fetches a single store page sized by the limit, resuming from
// the decoded token, and returns the next continuation token. Totals are the
// page's own, not the set's.
func List[T fintrack.Record](ctx context.Context, p Paginator, query QueryFunc[T], req Request) (Result[T], error) {
	if p.Mode == ModeCursor {
		return listCursor(ctx, p, query, req)
	}
	return listOffset(ctx, p, query, req)
}

func listOffset[T fintrack.Record](ctx context.Context, p Paginator, query QueryFunc[T], req Request) (Result[T], error) {
	all, err := CollectAll(ctx, query, p.MaxPages)
	if err != nil {
		return Result[T]{}, err
	}
	Sort(all)

	res := Result[T]{Total: len(all)}
	for _, rec := range all {
		res.TotalMinor += rec.Amount()
	}

	if req.Limit == nil {
		res.Data = all
		return res, nil
	}
	limit := *req.Limit
	page := 1
	if req.Page != nil {
		page = *req.Page
	}
	lo := (page - 1) * limit
	// lo goes negative when (page-1)*limit overflows; such a page is past the
	// end of any result set.
	if lo < 0 || lo >= len(all) {
		res.Data = []T{}
		return res, nil
	}
	hi := lo + limit
	if hi > len(all) {
		hi = len(all)
	}
	res.Data = all[lo:hi]
	return res, nil
}

func listCursor[T fintrack.Record](ctx context.Context, p Paginator, query QueryFunc[T], req Request) (Result[T], error) {
	var start *Key
	if req.NextToken != "" {
		k, err := DecodeToken(req.NextToken)
		if err != nil {
			return Result[T]{}, err
		}
		start = &k
	}
	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}
	records, next, err := query(ctx, limit, start)
	if err != nil {
		return Result[T]{}, err
	}
	sortScanOrder(records)

	res := Result[T]{Data: records, Total: len(records)}
	for _, rec := range records {
		res.TotalMinor += rec.Amount()
	}
	if next != nil {
		res.NextToken = EncodeToken(*next)
	}
	return res, nil
}

// EncodeToken renders a continuation key as an opaque URL-safe token.
func EncodeToken(k Key) string {
	b, _ := json.Marshal(k)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeToken parses a token produced by EncodeToken. Any malformed input is
// errs.ErrBadCursor.
func DecodeToken(tok string) (Key, error) {
	b, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", errs.ErrBadCursor, err)
	}
	var k Key
	if err := json.Unmarshal(b, &k); err != nil {
		return Key{}, fmt.Errorf("%w: %v", errs.ErrBadCursor, err)
	}
	return k, nil
}
